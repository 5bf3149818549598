package tiledb

import (
	"reflect"
	"runtime"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

type registryKind int

const (
	dataBuffers registryKind = iota
	offsetsBuffers
	validityBuffers
)

var registryNames = [...]string{"data", "offsets", "validity"}

// pinnedBuffer is a caller slice handed to the engine together with the size
// cell the engine reports the used byte count in. Both stay pinned until
// unpin.
type pinnedBuffer struct {
	pinner   runtime.Pinner
	bytes    []byte
	size     *uint64
	elemSize uint64
	boolean  bool
}

func pinSlice[T Scalar](s []T) *pinnedBuffer {
	pb := &pinnedBuffer{
		size:     new(uint64),
		elemSize: uint64(unsafe.Sizeof(s[0])),
		boolean:  reflect.TypeFor[T]().Kind() == reflect.Bool,
	}
	pb.pinner.Pin(&s[0])
	pb.pinner.Pin(pb.size)
	pb.bytes = view(s)
	*pb.size = uint64(len(pb.bytes))
	return pb
}

// pinBytes pins a raw byte buffer whose element type is unknown.
func pinBytes(b []byte) *pinnedBuffer {
	pb := pinSlice(b)
	pb.elemSize = 0
	return pb
}

func (pb *pinnedBuffer) used() uint64 {
	return *pb.size
}

// bufferRegistry tracks the pinned buffers of one query, at most one per
// field name in each of the data, offsets and validity registries.
type bufferRegistry struct {
	mu     sync.Mutex
	regs   [3]map[string]*pinnedBuffer
	pins   int
	unpins int
}

func (r *bufferRegistry) track() {
	r.mu.Lock()
	r.pins++
	r.mu.Unlock()
}

func (r *bufferRegistry) drop(pb *pinnedBuffer) {
	pb.pinner.Unpin()
	r.mu.Lock()
	r.unpins++
	r.mu.Unlock()
}

// swap registers pb under name and unpins the buffer it replaces.
func (r *bufferRegistry) swap(kind registryKind, name string, pb *pinnedBuffer) {
	r.mu.Lock()
	if r.regs[kind] == nil {
		r.regs[kind] = make(map[string]*pinnedBuffer)
	}
	old := r.regs[kind][name]
	r.regs[kind][name] = pb
	r.mu.Unlock()
	if old != nil {
		Logger().Debug("query buffer replaced",
			zap.String("field", name),
			zap.String("registry", registryNames[kind]))
		r.drop(old)
	}
}

func (r *bufferRegistry) lookup(kind registryKind, name string) *pinnedBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regs[kind][name]
}

// normalizeBools rewrites the bytes the engine wrote into []bool data
// buffers to 0 or 1.
func (r *bufferRegistry) normalizeBools() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pb := range r.regs[dataBuffers] {
		if !pb.boolean {
			continue
		}
		n := min(pb.used(), uint64(len(pb.bytes)))
		normalizeBools(pb.bytes[:n])
	}
}

// names returns every field name with a buffer in any registry.
func (r *bufferRegistry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, reg := range r.regs {
		for name := range reg {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// releaseAll unpins every registered buffer exactly once.
func (r *bufferRegistry) releaseAll() {
	r.mu.Lock()
	var all []*pinnedBuffer
	for i, reg := range r.regs {
		for _, pb := range reg {
			all = append(all, pb)
		}
		r.regs[i] = nil
	}
	r.mu.Unlock()
	for _, pb := range all {
		r.drop(pb)
	}
}

// counts reports how many buffers were pinned and unpinned so far.
func (r *bufferRegistry) counts() (pins, unpins int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pins, r.unpins
}
