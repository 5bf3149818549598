package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// Domain is the ordered set of dimensions of an array.
type Domain struct {
	ctx *Context
	h   *resource.Handle[capi.Domain]
}

func NewDomain(ctx *Context) (*Domain, error) {
	var p capi.Domain
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.DomainAlloc(c, &p) }); err != nil {
		return nil, err
	}
	return newDomain(ctx, p)
}

func newDomain(ctx *Context, p capi.Domain) (*Domain, error) {
	h, err := own(p, capi.DomainFree)
	if err != nil {
		return nil, err
	}
	return &Domain{ctx: ctx, h: h}, nil
}

func (d *Domain) Free() {
	d.h.Free()
}

func (d *Domain) call(fn func(capi.Ctx, capi.Domain) capi.Status) error {
	return call(d.ctx, d.h, fn)
}

// AddDimensions appends copies of dims. Dimension names must be unique.
func (d *Domain) AddDimensions(dims ...*Dimension) error {
	for _, dim := range dims {
		if dim == nil {
			return nilArg("dimension")
		}
		if err := callArg(d.ctx, d.h, dim.h, capi.DomainAddDimension); err != nil {
			return err
		}
	}
	return nil
}

func (d *Domain) NDim() (uint32, error) {
	var n uint32
	err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status { return capi.DomainGetNDim(c, p, &n) })
	return n, err
}

// Type returns the datatype shared by all dimensions. It fails when the
// dimensions have different datatypes.
func (d *Domain) Type() (Datatype, error) {
	var dt capi.Datatype
	err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status { return capi.DomainGetType(c, p, &dt) })
	return Datatype(dt), err
}

// Dimension returns the dimension at idx.
func (d *Domain) Dimension(idx uint32) (*Dimension, error) {
	var dim capi.Dimension
	if err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status {
		return capi.DomainGetDimensionFromIndex(c, p, idx, &dim)
	}); err != nil {
		return nil, err
	}
	return newDimension(d.ctx, dim)
}

func (d *Domain) DimensionFromName(name string) (*Dimension, error) {
	var dim capi.Dimension
	if err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status {
		return capi.DomainGetDimensionFromName(c, p, name, &dim)
	}); err != nil {
		return nil, err
	}
	return newDimension(d.ctx, dim)
}

func (d *Domain) HasDimension(name string) (bool, error) {
	var has bool
	err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status { return capi.DomainHasDimension(c, p, name, &has) })
	return has, err
}

func (d *Domain) Dump() (string, error) {
	var out string
	err := d.call(func(c capi.Ctx, p capi.Domain) capi.Status { return capi.DomainDumpStr(c, p, &out) })
	return out, err
}
