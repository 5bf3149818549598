package capi

import (
	"bytes"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

// span is one inclusive range on a dimension, kept both raw and as
// comparable keys.
type span struct {
	lo, hi   []byte
	klo, khi int64
}

func (s span) contains(k int64) bool { return k >= s.klo && k <= s.khi }

// ranges is the per-dimension range set of a subarray. A dimension without
// explicit ranges covers its whole domain.
type ranges struct {
	dims     []*format.Dimension
	spans    [][]span
	explicit []bool
	coalesce bool
}

func newRanges(s *format.Schema) *ranges {
	r := &ranges{
		dims:     s.Dimensions,
		spans:    make([][]span, len(s.Dimensions)),
		explicit: make([]bool, len(s.Dimensions)),
		coalesce: true,
	}
	for i, d := range s.Dimensions {
		n := d.Datatype.Size()
		r.spans[i] = []span{makeSpan(d.Datatype, d.Domain[:n], d.Domain[n:2*n])}
	}
	return r
}

func makeSpan(dt Datatype, lo, hi []byte) span {
	return span{
		lo:  bytes.Clone(lo),
		hi:  bytes.Clone(hi),
		klo: format.Key(dt, lo),
		khi: format.Key(dt, hi),
	}
}

func (r *ranges) clone() *ranges {
	out := &ranges{
		dims:     r.dims,
		spans:    make([][]span, len(r.spans)),
		explicit: append([]bool(nil), r.explicit...),
		coalesce: r.coalesce,
	}
	for i, s := range r.spans {
		out.spans[i] = append([]span(nil), s...)
	}
	return out
}

func (r *ranges) add(dim int, lo, hi, stride []byte) error {
	if dim < 0 || dim >= len(r.dims) {
		return errors.OutOfBounds(errors.PhaseNative, []string{"subarray"}, dim, len(r.dims))
	}
	if len(stride) != 0 {
		return errors.Unsupported(errors.PhaseNative, "Subarray: Cannot add range; Setting range stride is currently unsupported")
	}
	d := r.dims[dim]
	n := d.Datatype.Size()
	if len(lo) != n || len(hi) != n {
		return errors.InvalidInput(errors.PhaseNative, "Subarray: Cannot add range to dimension %q; Range bounds must hold %d bytes", d.Name, n)
	}
	s := makeSpan(d.Datatype, lo, hi)
	if s.klo > s.khi {
		return errors.InvalidInput(errors.PhaseNative, "Subarray: Cannot add range to dimension %q; Lower range bound cannot be larger than the higher bound", d.Name)
	}
	dlo, dhi := d.Bounds()
	if s.klo < dlo || s.khi > dhi {
		return errors.New(errors.PhaseNative, errors.KindOutOfBounds).
			Path("subarray", d.Name).
			Detail("Subarray: Cannot add range to dimension %q; Range [%s, %s] is out of domain bounds",
				d.Name, format.FormatValue(d.Datatype, lo), format.FormatValue(d.Datatype, hi)).
			Build()
	}
	if !r.explicit[dim] {
		r.explicit[dim] = true
		r.spans[dim] = []span{s}
		return nil
	}
	last := &r.spans[dim][len(r.spans[dim])-1]
	if r.coalesce && d.Datatype.IsInteger() && last.khi+1 == s.klo {
		last.hi, last.khi = s.hi, s.khi
		return nil
	}
	r.spans[dim] = append(r.spans[dim], s)
	return nil
}

// set replaces every dimension's ranges with one range taken from data,
// which holds a lower and upper bound per dimension.
func (r *ranges) set(data []byte) error {
	off := 0
	for _, d := range r.dims {
		off += 2 * d.Datatype.Size()
	}
	if len(data) != off {
		return errors.InvalidInput(errors.PhaseNative, "Subarray: Cannot set subarray; Expected %d bytes, got %d", off, len(data))
	}
	next := r.clone()
	for i := range next.explicit {
		next.explicit[i] = false
	}
	off = 0
	for i, d := range r.dims {
		n := d.Datatype.Size()
		if err := next.add(i, data[off:off+n], data[off+n:off+2*n], nil); err != nil {
			return err
		}
		off += 2 * n
	}
	*r = *next
	return nil
}

func (r *ranges) dimIndex(name string) (int, error) {
	for i, d := range r.dims {
		if d.Name == name {
			return i, nil
		}
	}
	return -1, errors.NotFound(errors.PhaseNative, "dimension", name)
}

// contains reports whether a cell with the given coordinate keys falls in
// the subarray.
func (r *ranges) contains(keys []int64) bool {
	for i, k := range keys {
		in := false
		for _, s := range r.spans[i] {
			if s.contains(k) {
				in = true
				break
			}
		}
		if !in {
			return false
		}
	}
	return true
}

// single reports whether every dimension has exactly one range.
func (r *ranges) single() bool {
	for _, s := range r.spans {
		if len(s) != 1 {
			return false
		}
	}
	return true
}

type subarrayObj struct {
	r *ranges
}

// SubarrayAlloc creates a subarray over the whole domain of an open array.
func SubarrayAlloc(ctx Ctx, arr Array, sub *Subarray) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("create subarray"); err != nil {
			return err
		}
		return put(kindSubarray, &subarrayObj{r: newRanges(a.schema)}, sub)
	})
}

func SubarrayFree(sub *Subarray) {
	drop(kindSubarray, sub)
}

func withSubarray(ctx Ctx, sub Subarray, fn func(r *ranges) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := sub.obj()
		if err != nil {
			return err
		}
		return fn(o.r)
	})
}

// SubarraySetCoalesceRanges controls whether adjacent integer ranges added
// to the same dimension are merged. It defaults to true.
func SubarraySetCoalesceRanges(ctx Ctx, sub Subarray, coalesce bool) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		r.coalesce = coalesce
		return nil
	})
}

func SubarraySetSubarray(ctx Ctx, sub Subarray, data []byte) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		return r.set(data)
	})
}

// SubarrayAddRange adds [lo, hi] to dimension dim. The first range added to
// a dimension replaces its default whole-domain range.
func SubarrayAddRange(ctx Ctx, sub Subarray, dim uint32, lo, hi, stride []byte) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		return r.add(int(dim), lo, hi, stride)
	})
}

func SubarrayAddRangeByName(ctx Ctx, sub Subarray, name string, lo, hi, stride []byte) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		i, err := r.dimIndex(name)
		if err != nil {
			return err
		}
		return r.add(i, lo, hi, stride)
	})
}

func SubarrayGetRangeNum(ctx Ctx, sub Subarray, dim uint32, n *uint64) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		if int(dim) >= len(r.spans) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"subarray"}, int(dim), len(r.spans))
		}
		*n = uint64(len(r.spans[dim]))
		return nil
	})
}

func SubarrayGetRangeNumFromName(ctx Ctx, sub Subarray, name string, n *uint64) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		i, err := r.dimIndex(name)
		if err != nil {
			return err
		}
		*n = uint64(len(r.spans[i]))
		return nil
	})
}

func getRange(r *ranges, dim int, idx uint64, lo, hi *[]byte) error {
	if dim >= len(r.spans) {
		return errors.OutOfBounds(errors.PhaseNative, []string{"subarray"}, dim, len(r.spans))
	}
	if idx >= uint64(len(r.spans[dim])) {
		return errors.OutOfBounds(errors.PhaseNative, []string{"subarray", r.dims[dim].Name}, int(idx), len(r.spans[dim]))
	}
	s := r.spans[dim][idx]
	*lo, *hi = bytes.Clone(s.lo), bytes.Clone(s.hi)
	return nil
}

// SubarrayGetRange returns a copy of range idx of dimension dim.
func SubarrayGetRange(ctx Ctx, sub Subarray, dim uint32, idx uint64, lo, hi *[]byte) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		return getRange(r, int(dim), idx, lo, hi)
	})
}

func SubarrayGetRangeFromName(ctx Ctx, sub Subarray, name string, idx uint64, lo, hi *[]byte) Status {
	return withSubarray(ctx, sub, func(r *ranges) error {
		i, err := r.dimIndex(name)
		if err != nil {
			return err
		}
		return getRange(r, i, idx, lo, hi)
	})
}
