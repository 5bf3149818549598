package tiledb

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/tiledb-go/errors"
)

func TestPackUnpackStrings(t *testing.T) {
	values := []string{"a", "", "ccc", "dd"}
	data, offsets := PackStrings(values)
	if string(data) != "acccdd" {
		t.Errorf("data = %q", data)
	}
	if diff := cmp.Diff([]uint64{0, 1, 1, 4}, offsets); diff != "" {
		t.Errorf("offsets mismatch (-want +got):\n%s", diff)
	}
	got, err := UnpackStrings(data, offsets)
	must(t, err, "UnpackStrings")
	if diff := cmp.Diff(values, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestUnpackStringsRejectsBadOffsets(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		offsets []uint64
	}{
		{"decreasing", "abcd", []uint64{0, 3, 2}},
		{"past end", "abcd", []uint64{0, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnpackStrings([]byte(tt.data), tt.offsets); errors.KindOf(err) != errors.KindInvalidInput {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}
}

func TestOffsetConversion(t *testing.T) {
	elems, err := ElementOffsets([]uint64{0, 8, 24}, 8)
	must(t, err, "ElementOffsets")
	if diff := cmp.Diff([]uint64{0, 1, 3}, elems); diff != "" {
		t.Errorf("element offsets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{0, 8, 24}, ByteOffsets(elems, 8)); diff != "" {
		t.Errorf("byte offsets mismatch (-want +got):\n%s", diff)
	}
	if _, err := ElementOffsets([]uint64{0, 3}, 2); err == nil {
		t.Error("unaligned offset accepted")
	}
	if _, err := ElementOffsets(nil, 0); err == nil {
		t.Error("zero element size accepted")
	}
}
