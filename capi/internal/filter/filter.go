// Package filter implements the tile filter pipeline: every stored stream
// is split into chunks, each chunk runs through the configured filters in
// order and is framed with its original length and an xxh3 checksum.
package filter

import (
	"fmt"

	"github.com/wippyai/tiledb-go/errors"
)

// Type is a filter code; values match the ABI's filter type enum.
type Type uint32

const (
	None              Type = 0
	Gzip              Type = 1
	Zstd              Type = 2
	LZ4               Type = 3
	RLE               Type = 4
	Bzip2             Type = 5
	DoubleDelta       Type = 6
	BitWidthReduction Type = 7
	Bitshuffle        Type = 8
	Byteshuffle       Type = 9
	PositiveDelta     Type = 10
	ChecksumMD5       Type = 12
	ChecksumSHA256    Type = 13
	Dictionary        Type = 14
	ScaleFloat        Type = 15
	XOR               Type = 16
	Deprecated        Type = 17
	WebP              Type = 18
	Delta             Type = 19
)

// DefaultCompression selects the codec's own default level.
const DefaultCompression = -1

var names = map[Type]string{
	None:              "NONE",
	Gzip:              "GZIP",
	Zstd:              "ZSTD",
	LZ4:               "LZ4",
	RLE:               "RLE",
	Bzip2:             "BZIP2",
	DoubleDelta:       "DOUBLE_DELTA",
	BitWidthReduction: "BIT_WIDTH_REDUCTION",
	Bitshuffle:        "BITSHUFFLE",
	Byteshuffle:       "BYTESHUFFLE",
	PositiveDelta:     "POSITIVE_DELTA",
	ChecksumMD5:       "CHECKSUM_MD5",
	ChecksumSHA256:    "CHECKSUM_SHA256",
	Dictionary:        "DICTIONARY",
	ScaleFloat:        "SCALE_FLOAT",
	XOR:               "XOR",
	Deprecated:        "DEPRECATED",
	WebP:              "WEBP",
	Delta:             "DELTA",
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("FILTER(%d)", uint32(t))
}

// Valid reports whether t is a known filter code.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// ParseType maps a filter name back to its code.
func ParseType(s string) (Type, bool) {
	for t, n := range names {
		if n == s {
			return t, true
		}
	}
	return 0, false
}

// Spec is one configured filter.
type Spec struct {
	Type  Type
	Level int32
}

// codec transforms one chunk. elemSize is the width of the values the chunk
// holds; chunks always contain whole elements.
type codec interface {
	encode(src []byte, elemSize int) ([]byte, error)
	decode(src []byte, elemSize int) ([]byte, error)
}

func codecFor(s Spec) (codec, error) {
	switch s.Type {
	case None:
		return noop{}, nil
	case Gzip:
		return gzipCodec{level: s.Level}, nil
	case Zstd:
		return zstdCodec{level: s.Level}, nil
	case LZ4:
		return lz4Codec{level: s.Level}, nil
	case RLE:
		return rle{}, nil
	case Byteshuffle:
		return byteshuffle{}, nil
	case Bitshuffle:
		return bitshuffle{}, nil
	case Delta:
		return delta{}, nil
	case DoubleDelta:
		return doubleDelta{}, nil
	case PositiveDelta:
		return delta{positive: true}, nil
	case XOR:
		return xorCodec{}, nil
	case ChecksumMD5:
		return md5Checksum, nil
	case ChecksumSHA256:
		return sha256Checksum, nil
	default:
		return nil, errors.Unsupported(errors.PhaseStorage, fmt.Sprintf("%s filter", s.Type))
	}
}

type noop struct{}

func (noop) encode(src []byte, _ int) ([]byte, error) { return src, nil }
func (noop) decode(src []byte, _ int) ([]byte, error) { return src, nil }
