package resource

import (
	"fmt"
	"sync/atomic"

	"github.com/wippyai/tiledb-go/errors"
)

// Pointer is the constraint for opaque native pointers.
type Pointer interface {
	~uintptr
}

// state layout: bit 0 is the closed flag, the remaining bits count
// references in units of refUnit. The owner holds one reference until Free.
const (
	closedBit int64 = 1
	refUnit   int64 = 2
)

// Handle owns a native pointer and releases it exactly once, after Free was
// called and every outstanding Borrow has been released.
type Handle[P Pointer] struct {
	free  func(P)
	ptr   P
	state atomic.Int64
}

// NewHandle wraps a freshly allocated pointer. A null pointer means the
// allocation failed; no handle is created in that case.
func NewHandle[P Pointer](ptr P, free func(P)) (*Handle[P], error) {
	if ptr == 0 {
		return nil, errors.AllocationFailed(errors.PhaseAlloc, typeName[P]())
	}
	h := &Handle[P]{ptr: ptr, free: free}
	h.state.Store(refUnit)
	return h, nil
}

// Acquire takes a reference for the duration of one native call.
// It fails once Free has been called.
func (h *Handle[P]) Acquire() (Borrow[P], error) {
	if h == nil {
		return Borrow[P]{}, errors.Disposed(typeName[P]())
	}
	for {
		s := h.state.Load()
		if s&closedBit != 0 {
			return Borrow[P]{}, errors.Disposed(typeName[P]())
		}
		if h.state.CompareAndSwap(s, s+refUnit) {
			return Borrow[P]{h: h}, nil
		}
	}
}

// Free marks the handle closed and drops the owner reference. It is safe to
// call any number of times.
func (h *Handle[P]) Free() {
	if h == nil {
		return
	}
	for {
		s := h.state.Load()
		if s&closedBit != 0 {
			return
		}
		next := (s | closedBit) - refUnit
		if h.state.CompareAndSwap(s, next) {
			if next == closedBit {
				h.destroy()
			}
			return
		}
	}
}

// IsClosed reports whether Free has been called.
func (h *Handle[P]) IsClosed() bool {
	return h == nil || h.state.Load()&closedBit != 0
}

// Refs returns the number of outstanding borrows.
func (h *Handle[P]) Refs() int {
	if h == nil {
		return 0
	}
	s := h.state.Load()
	n := int(s / refUnit)
	if s&closedBit == 0 {
		n--
	}
	return n
}

func (h *Handle[P]) release() {
	if h.state.Add(-refUnit) == closedBit {
		h.destroy()
	}
}

func (h *Handle[P]) destroy() {
	if h.free != nil {
		h.free(h.ptr)
	}
}

// Borrow is a scoped reference obtained from Handle.Acquire. It must be
// released exactly once, normally with defer, and never stored.
type Borrow[P Pointer] struct {
	h *Handle[P]
}

// Ptr returns the borrowed native pointer.
func (b *Borrow[P]) Ptr() P {
	if b.h == nil {
		return 0
	}
	return b.h.ptr
}

// Release returns the reference. Releasing twice is a no-op.
func (b *Borrow[P]) Release() {
	if b.h == nil {
		return
	}
	h := b.h
	b.h = nil
	h.release()
}

func typeName[P Pointer]() string {
	var p P
	return fmt.Sprintf("%T", p)
}
