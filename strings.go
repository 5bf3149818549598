package tiledb

import (
	"github.com/wippyai/tiledb-go/errors"
)

// PackStrings concatenates values into one data buffer and returns the
// starting byte offset of each value, the layout of variable-sized cells.
func PackStrings(values []string) (data []byte, offsets []uint64) {
	n := 0
	for _, v := range values {
		n += len(v)
	}
	data = make([]byte, 0, n)
	offsets = make([]uint64, len(values))
	for i, v := range values {
		offsets[i] = uint64(len(data))
		data = append(data, v...)
	}
	return data, offsets
}

// UnpackStrings splits data at byte offsets. The last value runs to the end
// of data.
func UnpackStrings(data []byte, offsets []uint64) ([]string, error) {
	out := make([]string, len(offsets))
	for i, start := range offsets {
		end := uint64(len(data))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start > end || end > uint64(len(data)) {
			return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				Value(i).
				Detail("offset %d: [%d, %d) is outside %d data bytes or decreasing", i, start, end, len(data)).
				Build()
		}
		out[i] = string(data[start:end])
	}
	return out, nil
}

// ElementOffsets converts byte offsets into element offsets for values of
// elemSize bytes.
func ElementOffsets(byteOffsets []uint64, elemSize uint64) ([]uint64, error) {
	if elemSize == 0 {
		return nil, errors.InvalidInput(errors.PhaseValidate, "element size must not be zero")
	}
	out := make([]uint64, len(byteOffsets))
	for i, o := range byteOffsets {
		if o%elemSize != 0 {
			return nil, errors.InvalidInput(errors.PhaseValidate, "byte offset %d is not a multiple of %d", o, elemSize)
		}
		out[i] = o / elemSize
	}
	return out, nil
}

// ByteOffsets converts element offsets into byte offsets.
func ByteOffsets(elemOffsets []uint64, elemSize uint64) []uint64 {
	out := make([]uint64, len(elemOffsets))
	for i, o := range elemOffsets {
		out[i] = o * elemSize
	}
	return out
}
