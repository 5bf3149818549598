package filter

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"

	tderrors "github.com/wippyai/tiledb-go/errors"
)

func int32Stream(n int) []byte {
	out := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(i*3/2+7))
	}
	return out
}

func TestPipeline_RoundTrip(t *testing.T) {
	data := int32Stream(5000)
	tests := []struct {
		name    string
		filters []Spec
	}{
		{"none", nil},
		{"gzip", []Spec{{Type: Gzip, Level: DefaultCompression}}},
		{"zstd level 5", []Spec{{Type: Zstd, Level: 5}}},
		{"lz4", []Spec{{Type: LZ4, Level: DefaultCompression}}},
		{"rle", []Spec{{Type: RLE}}},
		{"shuffle then zstd", []Spec{{Type: Byteshuffle}, {Type: Zstd, Level: DefaultCompression}}},
		{"bitshuffle", []Spec{{Type: Bitshuffle}}},
		{"delta", []Spec{{Type: Delta}}},
		{"double delta then gzip", []Spec{{Type: DoubleDelta}, {Type: Gzip, Level: 9}}},
		{"positive delta", []Spec{{Type: PositiveDelta}}},
		{"xor", []Spec{{Type: XOR}}},
		{"checksums", []Spec{{Type: ChecksumMD5}, {Type: ChecksumSHA256}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Pipeline{Filters: tt.filters, ChunkSize: 1000}
			var chunks atomic.Int32
			opts := Options{Concurrency: 4, OnChunk: func(int, int) { chunks.Add(1) }}

			enc, err := p.Encode(context.Background(), data, 4, opts)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if chunks.Load() < 2 {
				t.Fatalf("expected several chunks, got %d", chunks.Load())
			}
			dec, err := p.Decode(context.Background(), enc, 4, opts)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(dec, data) {
				t.Fatal("round trip mismatch")
			}
		})
	}
}

func TestPipeline_ChunksHoldWholeElements(t *testing.T) {
	p := Pipeline{ChunkSize: 10}
	for _, c := range p.split(make([]byte, 64), 8) {
		if len(c)%8 != 0 {
			t.Fatalf("chunk of %d bytes splits an element", len(c))
		}
	}
}

func TestPipeline_DetectsCorruption(t *testing.T) {
	p := Pipeline{Filters: []Spec{{Type: Gzip, Level: DefaultCompression}}}
	enc, err := p.Encode(context.Background(), int32Stream(100), 4, Options{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	enc[len(enc)-1] ^= 0xff

	_, err = p.Decode(context.Background(), enc, 4, Options{})
	if tderrors.KindOf(err) != tderrors.KindCorrupt {
		t.Fatalf("expected corrupt error, got %v", err)
	}
}

func TestPipeline_Unsupported(t *testing.T) {
	for _, typ := range []Type{Bzip2, Dictionary, ScaleFloat, WebP, BitWidthReduction} {
		p := Pipeline{Filters: []Spec{{Type: typ}}}
		_, err := p.Encode(context.Background(), []byte{1, 2, 3, 4}, 4, Options{})
		if tderrors.KindOf(err) != tderrors.KindUnsupported {
			t.Fatalf("%s: expected unsupported error, got %v", typ, err)
		}
	}
}

func TestPositiveDelta_RejectsDecreasing(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, 10)
	binary.LittleEndian.PutUint32(data[4:], 3)

	p := Pipeline{Filters: []Spec{{Type: PositiveDelta}}}
	if _, err := p.Encode(context.Background(), data, 4, Options{}); err == nil {
		t.Fatal("expected error for decreasing values")
	}
}

func TestRLE_Compresses(t *testing.T) {
	data := bytes.Repeat([]byte{1, 0, 0, 0}, 1000)
	enc, err := rle{}.encode(data, 4)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(enc) != 8 {
		t.Fatalf("encoded %d bytes, want one run of 8", len(enc))
	}
}

func TestTypeNames(t *testing.T) {
	for typ, name := range names {
		got, ok := ParseType(name)
		if !ok || got != typ {
			t.Fatalf("ParseType(%q) = %v, %v", name, got, ok)
		}
	}
	if Type(11).Valid() {
		t.Fatal("code 11 is unassigned")
	}
}
