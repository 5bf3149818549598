package filter

import (
	"context"
	"encoding/binary"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/tiledb-go/errors"
)

// DefaultChunkSize is the chunk size used when a filter list sets none.
const DefaultChunkSize = 64 * 1024

// chunk frame: original length, filtered length, xxh3 of the filtered bytes.
const frameHeader = 24

// Pipeline is an ordered list of filters applied to every chunk of a stream.
type Pipeline struct {
	Filters   []Spec
	ChunkSize uint32
}

// Options tune how a pipeline runs.
type Options struct {
	// Concurrency bounds the number of chunks filtered in parallel.
	Concurrency int
	// OnChunk is called with the raw and filtered size of every chunk.
	OnChunk func(raw, filtered int)
}

func (p Pipeline) codecs() ([]codec, error) {
	out := make([]codec, 0, len(p.Filters))
	for _, s := range p.Filters {
		c, err := codecFor(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (p Pipeline) split(data []byte, elemSize int) [][]byte {
	if elemSize <= 0 {
		elemSize = 1
	}
	size := int(p.ChunkSize)
	if size <= 0 {
		size = DefaultChunkSize
	}
	if size < elemSize {
		size = elemSize
	}
	size -= size % elemSize
	var chunks [][]byte
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}

// Encode filters data and returns the framed result.
func (p Pipeline) Encode(ctx context.Context, data []byte, elemSize int, opts Options) ([]byte, error) {
	codecs, err := p.codecs()
	if err != nil {
		return nil, err
	}
	chunks := p.split(data, elemSize)
	filtered := make([][]byte, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(opts.Concurrency))
	for i, c := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := c
			for _, cd := range codecs {
				var err error
				if out, err = cd.encode(out, elemSize); err != nil {
					return err
				}
			}
			filtered[i] = out
			if opts.OnChunk != nil {
				opts.OnChunk(len(c), len(out))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 8
	for _, f := range filtered {
		total += frameHeader + len(f)
	}
	out := make([]byte, 8, total)
	binary.LittleEndian.PutUint64(out, uint64(len(chunks)))
	var hdr [frameHeader]byte
	for i, f := range filtered {
		binary.LittleEndian.PutUint64(hdr[0:], uint64(len(chunks[i])))
		binary.LittleEndian.PutUint64(hdr[8:], uint64(len(f)))
		binary.LittleEndian.PutUint64(hdr[16:], xxh3.Hash(f))
		out = append(out, hdr[:]...)
		out = append(out, f...)
	}
	return out, nil
}

// Decode reverses Encode. Every chunk checksum is verified.
func (p Pipeline) Decode(ctx context.Context, framed []byte, elemSize int, opts Options) ([]byte, error) {
	codecs, err := p.codecs()
	if err != nil {
		return nil, err
	}
	if len(framed) < 8 {
		return nil, errors.Corrupt("tile", "missing chunk count")
	}
	n := binary.LittleEndian.Uint64(framed)
	rest := framed[8:]

	type frame struct {
		data []byte
		raw  int
	}
	frames := make([]frame, 0, n)
	total := 0
	for i := uint64(0); i < n; i++ {
		if len(rest) < frameHeader {
			return nil, errors.Corrupt("tile", "truncated chunk header")
		}
		raw := binary.LittleEndian.Uint64(rest[0:])
		size := binary.LittleEndian.Uint64(rest[8:])
		sum := binary.LittleEndian.Uint64(rest[16:])
		rest = rest[frameHeader:]
		if uint64(len(rest)) < size {
			return nil, errors.Corrupt("tile", "truncated chunk")
		}
		data := rest[:size]
		rest = rest[size:]
		if xxh3.Hash(data) != sum {
			return nil, errors.Corrupt("tile", "chunk checksum mismatch")
		}
		frames = append(frames, frame{data: data, raw: int(raw)})
		total += int(raw)
	}

	decoded := make([][]byte, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(opts.Concurrency))
	for i, f := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := f.data
			for k := len(codecs) - 1; k >= 0; k-- {
				var err error
				if out, err = codecs[k].decode(out, elemSize); err != nil {
					return err
				}
			}
			if len(out) != f.raw {
				return errors.Corrupt("tile", "decoded chunk has wrong length")
			}
			decoded[i] = out
			if opts.OnChunk != nil {
				opts.OnChunk(f.raw, len(f.data))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, total)
	for _, d := range decoded {
		out = append(out, d...)
	}
	return out, nil
}

func limit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
