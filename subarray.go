package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// Range is an inclusive [Start, End] interval on one dimension.
type Range[T Scalar] struct {
	Start T
	End   T
}

// Subarray selects the cells a query reads: a list of ranges per
// dimension. A fresh subarray covers the whole domain.
type Subarray struct {
	ctx   *Context
	array *Array
	h     *resource.Handle[capi.Subarray]
}

// NewSubarray creates a subarray over arr, which must be open.
func NewSubarray(ctx *Context, arr *Array) (*Subarray, error) {
	if arr == nil {
		return nil, nilArg("array")
	}
	var p capi.Subarray
	if err := call(ctx, arr.h, func(c capi.Ctx, a capi.Array) capi.Status {
		return capi.SubarrayAlloc(c, a, &p)
	}); err != nil {
		return nil, err
	}
	return newSubarray(ctx, arr, p)
}

func newSubarray(ctx *Context, arr *Array, p capi.Subarray) (*Subarray, error) {
	h, err := own(p, capi.SubarrayFree)
	if err != nil {
		return nil, err
	}
	return &Subarray{ctx: ctx, array: arr, h: h}, nil
}

func (s *Subarray) Free() {
	s.h.Free()
}

func (s *Subarray) call(fn func(capi.Ctx, capi.Subarray) capi.Status) error {
	return call(s.ctx, s.h, fn)
}

// SetCoalesceRanges controls whether adjacent ranges added to one dimension
// are merged. Coalescing is on by default.
func (s *Subarray) SetCoalesceRanges(coalesce bool) error {
	return s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarraySetCoalesceRanges(c, p, coalesce)
	})
}

func (s *Subarray) checkDim(name string, idx uint32, t reflect.Type) error {
	dt, err := s.array.dimensionType(name, idx)
	if err != nil {
		return err
	}
	path := name
	if path == "" {
		path = "dimension"
	}
	return checkElemType(dt, t, path)
}

// SetSubarray replaces all ranges with one range per dimension, in
// dimension order. Every dimension must have datatype T.
func SetSubarray[T Scalar](s *Subarray, ranges ...Range[T]) error {
	schema, err := s.array.Schema()
	if err != nil {
		return err
	}
	dom, err := schema.Domain()
	schema.Free()
	if err != nil {
		return err
	}
	ndim, err := dom.NDim()
	dom.Free()
	if err != nil {
		return err
	}
	if uint32(len(ranges)) != ndim {
		return errors.InvalidInput(errors.PhaseValidate, "subarray has %d ranges, array has %d dimensions", len(ranges), ndim)
	}
	flat := make([]T, 0, 2*len(ranges))
	for i, r := range ranges {
		if err := s.checkDim("", uint32(i), reflect.TypeFor[T]()); err != nil {
			return err
		}
		flat = append(flat, r.Start, r.End)
	}
	return s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarraySetSubarray(c, p, bytesOf(flat))
	})
}

// AddRange adds r to dimension dim. The first range added to a dimension
// replaces its default whole-domain range.
func AddRange[T Scalar](s *Subarray, dim uint32, r Range[T]) error {
	if err := s.checkDim("", dim, reflect.TypeFor[T]()); err != nil {
		return err
	}
	lo, hi := bytesOf([]T{r.Start}), bytesOf([]T{r.End})
	return s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarrayAddRange(c, p, dim, lo, hi, nil)
	})
}

// AddRangeByName is AddRange addressing the dimension by name.
func AddRangeByName[T Scalar](s *Subarray, name string, r Range[T]) error {
	if err := s.checkDim(name, 0, reflect.TypeFor[T]()); err != nil {
		return err
	}
	lo, hi := bytesOf([]T{r.Start}), bytesOf([]T{r.End})
	return s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarrayAddRangeByName(c, p, name, lo, hi, nil)
	})
}

func (s *Subarray) RangeNum(dim uint32) (uint64, error) {
	var n uint64
	err := s.call(func(c capi.Ctx, p capi.Subarray) capi.Status { return capi.SubarrayGetRangeNum(c, p, dim, &n) })
	return n, err
}

func (s *Subarray) RangeNumFromName(name string) (uint64, error) {
	var n uint64
	err := s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarrayGetRangeNumFromName(c, p, name, &n)
	})
	return n, err
}

func rangeOf[T Scalar](lo, hi []byte) Range[T] {
	var r Range[T]
	if v := valuesOf[T](lo); len(v) > 0 {
		r.Start = v[0]
	}
	if v := valuesOf[T](hi); len(v) > 0 {
		r.End = v[0]
	}
	return r
}

// GetRange returns range idx of dimension dim.
func GetRange[T Scalar](s *Subarray, dim uint32, idx uint64) (Range[T], error) {
	if err := s.checkDim("", dim, reflect.TypeFor[T]()); err != nil {
		return Range[T]{}, err
	}
	var lo, hi []byte
	if err := s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarrayGetRange(c, p, dim, idx, &lo, &hi)
	}); err != nil {
		return Range[T]{}, err
	}
	return rangeOf[T](lo, hi), nil
}

// GetRangeFromName returns range idx of the named dimension.
func GetRangeFromName[T Scalar](s *Subarray, name string, idx uint64) (Range[T], error) {
	if err := s.checkDim(name, 0, reflect.TypeFor[T]()); err != nil {
		return Range[T]{}, err
	}
	var lo, hi []byte
	if err := s.call(func(c capi.Ctx, p capi.Subarray) capi.Status {
		return capi.SubarrayGetRangeFromName(c, p, name, idx, &lo, &hi)
	}); err != nil {
		return Range[T]{}, err
	}
	return rangeOf[T](lo, hi), nil
}
