package filter

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/wippyai/tiledb-go/errors"
)

func load(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func store(b []byte, size int, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func integerWidth(size int) error {
	switch size {
	case 1, 2, 4, 8:
		return nil
	}
	return errors.Unsupported(errors.PhaseStorage, fmt.Sprintf("element width %d for integer filters", size))
}

// tail copies the bytes after the last whole element unchanged.
func tail(out, src []byte, size int) []byte {
	n := len(src) / size * size
	copy(out[n:], src[n:])
	return out
}

// delta stores the first element followed by wrapping differences.
// With positive set, decreasing input is rejected.
type delta struct {
	positive bool
}

func (d delta) encode(src []byte, size int) ([]byte, error) {
	if err := integerWidth(size); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	var prev uint64
	for i := 0; i+size <= len(src); i += size {
		v := load(src[i:], size)
		if d.positive && i > 0 && v < prev {
			return nil, errors.InvalidInput(errors.PhaseStorage, "positive delta filter requires non-decreasing values")
		}
		store(out[i:], size, v-prev)
		prev = v
	}
	return tail(out, src, size), nil
}

func (d delta) decode(src []byte, size int) ([]byte, error) {
	if err := integerWidth(size); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	var prev uint64
	for i := 0; i+size <= len(src); i += size {
		prev += load(src[i:], size)
		store(out[i:], size, prev)
	}
	return tail(out, src, size), nil
}

// doubleDelta stores differences of consecutive differences.
type doubleDelta struct{}

func (doubleDelta) encode(src []byte, size int) ([]byte, error) {
	first, err := delta{}.encode(src, size)
	if err != nil {
		return nil, err
	}
	if len(first) <= size {
		return first, nil
	}
	second, err := delta{}.encode(first[size:], size)
	if err != nil {
		return nil, err
	}
	return append(first[:size:size], second...), nil
}

func (doubleDelta) decode(src []byte, size int) ([]byte, error) {
	if err := integerWidth(size); err != nil {
		return nil, err
	}
	if len(src) <= size {
		return delta{}.decode(src, size)
	}
	rest, err := delta{}.decode(src[size:], size)
	if err != nil {
		return nil, err
	}
	return delta{}.decode(append(src[:size:size], rest...), size)
}

// xorCodec stores each element xor-ed with its predecessor.
type xorCodec struct{}

func (xorCodec) encode(src []byte, size int) ([]byte, error) {
	if err := integerWidth(size); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	var prev uint64
	for i := 0; i+size <= len(src); i += size {
		v := load(src[i:], size)
		store(out[i:], size, v^prev)
		prev = v
	}
	return tail(out, src, size), nil
}

func (xorCodec) decode(src []byte, size int) ([]byte, error) {
	if err := integerWidth(size); err != nil {
		return nil, err
	}
	out := make([]byte, len(src))
	var prev uint64
	for i := 0; i+size <= len(src); i += size {
		prev ^= load(src[i:], size)
		store(out[i:], size, prev)
	}
	return tail(out, src, size), nil
}

// rle encodes runs of equal elements as a uint32 count followed by the value.
type rle struct{}

func (rle) encode(src []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	out := make([]byte, 0, len(src)/2)
	var hdr [4]byte
	for i := 0; i < len(src); {
		j := i + size
		for j+size <= len(src) && string(src[j:j+size]) == string(src[i:i+size]) && (j-i)/size < 1<<31 {
			j += size
		}
		binary.LittleEndian.PutUint32(hdr[:], uint32((j-i)/size))
		out = append(out, hdr[:]...)
		out = append(out, src[i:i+size]...)
		i = j
	}
	return out, nil
}

func (rle) decode(src []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	var out []byte
	for i := 0; i < len(src); i += 4 + size {
		if i+4+size > len(src) {
			return nil, errors.Corrupt("rle", "truncated run")
		}
		n := int(binary.LittleEndian.Uint32(src[i:]))
		v := src[i+4 : i+4+size]
		for k := 0; k < n; k++ {
			out = append(out, v...)
		}
	}
	return out, nil
}

// byteshuffle groups byte k of every element together.
type byteshuffle struct{}

func (byteshuffle) encode(src []byte, size int) ([]byte, error) {
	if size <= 1 {
		return src, nil
	}
	n := len(src) / size
	out := make([]byte, len(src))
	for i := 0; i < n; i++ {
		for k := 0; k < size; k++ {
			out[k*n+i] = src[i*size+k]
		}
	}
	copy(out[n*size:], src[n*size:])
	return out, nil
}

func (byteshuffle) decode(src []byte, size int) ([]byte, error) {
	if size <= 1 {
		return src, nil
	}
	n := len(src) / size
	out := make([]byte, len(src))
	for i := 0; i < n; i++ {
		for k := 0; k < size; k++ {
			out[i*size+k] = src[k*n+i]
		}
	}
	copy(out[n*size:], src[n*size:])
	return out, nil
}

// bitshuffle groups bit b of every element together.
type bitshuffle struct{}

func (bitshuffle) encode(src []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	n := len(src) / size
	bits := size * 8
	out := make([]byte, len(src))
	for b := 0; b < bits; b++ {
		for i := 0; i < n; i++ {
			if src[i*size+b/8]&(1<<(b%8)) != 0 {
				pos := b*n + i
				out[pos/8] |= 1 << (pos % 8)
			}
		}
	}
	copy(out[n*size:], src[n*size:])
	return out, nil
}

func (bitshuffle) decode(src []byte, size int) ([]byte, error) {
	if size <= 0 {
		size = 1
	}
	n := len(src) / size
	bits := size * 8
	out := make([]byte, len(src))
	for b := 0; b < bits; b++ {
		for i := 0; i < n; i++ {
			pos := b*n + i
			if src[pos/8]&(1<<(pos%8)) != 0 {
				out[i*size+b/8] |= 1 << (b % 8)
			}
		}
	}
	copy(out[n*size:], src[n*size:])
	return out, nil
}

// checksum appends a digest of the chunk and verifies it on decode.
type checksum struct {
	name string
	new  func() hash.Hash
}

var (
	md5Checksum    = checksum{name: "md5", new: md5.New}
	sha256Checksum = checksum{name: "sha256", new: sha256.New}
)

func (c checksum) encode(src []byte, _ int) ([]byte, error) {
	h := c.new()
	h.Write(src)
	return h.Sum(src[:len(src):len(src)]), nil
}

func (c checksum) decode(src []byte, _ int) ([]byte, error) {
	h := c.new()
	n := len(src) - h.Size()
	if n < 0 {
		return nil, errors.Corrupt(c.name, "chunk shorter than digest")
	}
	h.Write(src[:n])
	if string(h.Sum(nil)) != string(src[n:]) {
		return nil, errors.Corrupt(c.name, "checksum mismatch")
	}
	return src[:n], nil
}
