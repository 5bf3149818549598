package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// Dimension is one axis of an array domain.
type Dimension struct {
	ctx *Context
	h   *resource.Handle[capi.Dimension]
}

// NewDimension creates a dimension of datatype dt over the inclusive domain
// [domain[0], domain[1]] with the given tile extent. T must be the Go type
// of dt.
func NewDimension[T Scalar](ctx *Context, name string, dt Datatype, domain [2]T, extent T) (*Dimension, error) {
	if err := checkElemType(dt, reflect.TypeFor[T](), name); err != nil {
		return nil, err
	}
	var p capi.Dimension
	if err := ctx.do(func(c capi.Ctx) capi.Status {
		return capi.DimensionAlloc(c, name, capi.Datatype(dt), bytesOf(domain[:]), bytesOf([]T{extent}), &p)
	}); err != nil {
		return nil, err
	}
	return newDimension(ctx, p)
}

func newDimension(ctx *Context, p capi.Dimension) (*Dimension, error) {
	h, err := own(p, capi.DimensionFree)
	if err != nil {
		return nil, err
	}
	return &Dimension{ctx: ctx, h: h}, nil
}

func (d *Dimension) Free() {
	d.h.Free()
}

func (d *Dimension) call(fn func(capi.Ctx, capi.Dimension) capi.Status) error {
	return call(d.ctx, d.h, fn)
}

func (d *Dimension) Name() (string, error) {
	var name string
	err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetName(c, p, &name) })
	return name, err
}

func (d *Dimension) Type() (Datatype, error) {
	var dt capi.Datatype
	err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetType(c, p, &dt) })
	return Datatype(dt), err
}

// Domain returns the bounds decoded to the dimension's Go type.
func (d *Dimension) Domain() (lo, hi any, err error) {
	dt, err := d.Type()
	if err != nil {
		return nil, nil, err
	}
	var b []byte
	if err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetDomain(c, p, &b) }); err != nil {
		return nil, nil, err
	}
	return decodePair(dt, b)
}

// Extent returns the tile extent decoded to the dimension's Go type.
func (d *Dimension) Extent() (any, error) {
	dt, err := d.Type()
	if err != nil {
		return nil, err
	}
	var b []byte
	if err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetTileExtent(c, p, &b) }); err != nil {
		return nil, err
	}
	v, err := decodeValues(dt, b)
	if err != nil {
		return nil, err
	}
	return first(v), nil
}

// DimensionDomain returns the bounds of d as T.
func DimensionDomain[T Scalar](d *Dimension) ([2]T, error) {
	var out [2]T
	dt, err := d.Type()
	if err != nil {
		return out, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), "domain"); err != nil {
		return out, err
	}
	var b []byte
	if err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetDomain(c, p, &b) }); err != nil {
		return out, err
	}
	copy(out[:], valuesOf[T](b))
	return out, nil
}

// DimensionExtent returns the tile extent of d as T.
func DimensionExtent[T Scalar](d *Dimension) (T, error) {
	var zero T
	dt, err := d.Type()
	if err != nil {
		return zero, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), "extent"); err != nil {
		return zero, err
	}
	var b []byte
	if err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetTileExtent(c, p, &b) }); err != nil {
		return zero, err
	}
	if v := valuesOf[T](b); len(v) > 0 {
		return v[0], nil
	}
	return zero, nil
}

func (d *Dimension) SetCellValNum(n uint32) error {
	return d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionSetCellValNum(c, p, n) })
}

func (d *Dimension) CellValNum() (uint32, error) {
	var n uint32
	err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetCellValNum(c, p, &n) })
	return n, err
}

func (d *Dimension) SetFilterList(fl *FilterList) error {
	if fl == nil {
		return nilArg("filter list")
	}
	return callArg(d.ctx, d.h, fl.h, capi.DimensionSetFilterList)
}

func (d *Dimension) FilterList() (*FilterList, error) {
	var fl capi.FilterList
	if err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionGetFilterList(c, p, &fl) }); err != nil {
		return nil, err
	}
	return newFilterList(d.ctx, fl)
}

func (d *Dimension) Dump() (string, error) {
	var out string
	err := d.call(func(c capi.Ctx, p capi.Dimension) capi.Status { return capi.DimensionDumpStr(c, p, &out) })
	return out, err
}
