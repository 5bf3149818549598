package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// Attribute is a named value stored in every cell of an array.
type Attribute struct {
	ctx *Context
	h   *resource.Handle[capi.Attribute]
}

func NewAttribute(ctx *Context, name string, dt Datatype) (*Attribute, error) {
	var p capi.Attribute
	if err := ctx.do(func(c capi.Ctx) capi.Status {
		return capi.AttributeAlloc(c, name, capi.Datatype(dt), &p)
	}); err != nil {
		return nil, err
	}
	return newAttribute(ctx, p)
}

func newAttribute(ctx *Context, p capi.Attribute) (*Attribute, error) {
	h, err := own(p, capi.AttributeFree)
	if err != nil {
		return nil, err
	}
	return &Attribute{ctx: ctx, h: h}, nil
}

func (a *Attribute) Free() {
	a.h.Free()
}

func (a *Attribute) call(fn func(capi.Ctx, capi.Attribute) capi.Status) error {
	return call(a.ctx, a.h, fn)
}

func (a *Attribute) Name() (string, error) {
	var name string
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetName(c, p, &name) })
	return name, err
}

func (a *Attribute) Type() (Datatype, error) {
	var dt capi.Datatype
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetType(c, p, &dt) })
	return Datatype(dt), err
}

// SetCellValNum sets the number of values per cell. VarNum makes the
// attribute variable-sized.
func (a *Attribute) SetCellValNum(n uint32) error {
	return a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeSetCellValNum(c, p, n) })
}

func (a *Attribute) CellValNum() (uint32, error) {
	var n uint32
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetCellValNum(c, p, &n) })
	return n, err
}

// CellSize returns the size of one cell in bytes; for variable-sized
// attributes it is VarNum.
func (a *Attribute) CellSize() (uint64, error) {
	var n uint64
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetCellSize(c, p, &n) })
	return n, err
}

func (a *Attribute) SetNullable(nullable bool) error {
	return a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeSetNullable(c, p, nullable) })
}

func (a *Attribute) Nullable() (bool, error) {
	var nullable bool
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetNullable(c, p, &nullable) })
	return nullable, err
}

func (a *Attribute) SetFilterList(fl *FilterList) error {
	if fl == nil {
		return nilArg("filter list")
	}
	return callArg(a.ctx, a.h, fl.h, capi.AttributeSetFilterList)
}

func (a *Attribute) FilterList() (*FilterList, error) {
	var fl capi.FilterList
	if err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetFilterList(c, p, &fl) }); err != nil {
		return nil, err
	}
	return newFilterList(a.ctx, fl)
}

// FillValueBytes returns the raw fill value of one cell.
func (a *Attribute) FillValueBytes() ([]byte, error) {
	var b []byte
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetFillValue(c, p, &b) })
	return b, err
}

func (a *Attribute) SetEnumerationName(name string) error {
	return a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeSetEnumerationName(c, p, name) })
}

// EnumerationName returns the enumeration the attribute refers to, or ""
// when it has none.
func (a *Attribute) EnumerationName() (string, error) {
	var name string
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeGetEnumerationName(c, p, &name) })
	return name, err
}

func (a *Attribute) Dump() (string, error) {
	var out string
	err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status { return capi.AttributeDumpStr(c, p, &out) })
	return out, err
}

func (a *Attribute) checkType(t reflect.Type) error {
	dt, err := a.Type()
	if err != nil {
		return err
	}
	name, _ := a.Name()
	return checkElemType(dt, t, name)
}

// SetFillValue sets the value read from cells that were never written. It
// holds one value per cell for fixed-sized attributes.
func SetFillValue[T Scalar](a *Attribute, values ...T) error {
	if err := a.checkType(reflect.TypeFor[T]()); err != nil {
		return err
	}
	return a.call(func(c capi.Ctx, p capi.Attribute) capi.Status {
		return capi.AttributeSetFillValue(c, p, bytesOf(values))
	})
}

// SetFillValueNullable sets the fill value and fill validity of a nullable
// attribute.
func SetFillValueNullable[T Scalar](a *Attribute, valid bool, values ...T) error {
	if err := a.checkType(reflect.TypeFor[T]()); err != nil {
		return err
	}
	return a.call(func(c capi.Ctx, p capi.Attribute) capi.Status {
		return capi.AttributeSetFillValueNullable(c, p, bytesOf(values), valid)
	})
}

// FillValue returns the fill value of a as T.
func FillValue[T Scalar](a *Attribute) ([]T, error) {
	if err := a.checkType(reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	b, err := a.FillValueBytes()
	if err != nil {
		return nil, err
	}
	return valuesOf[T](b), nil
}

// FillValueNullable returns the fill value and fill validity of a nullable
// attribute.
func FillValueNullable[T Scalar](a *Attribute) ([]T, bool, error) {
	if err := a.checkType(reflect.TypeFor[T]()); err != nil {
		return nil, false, err
	}
	var b []byte
	var valid bool
	if err := a.call(func(c capi.Ctx, p capi.Attribute) capi.Status {
		return capi.AttributeGetFillValueNullable(c, p, &b, &valid)
	}); err != nil {
		return nil, false, err
	}
	return valuesOf[T](b), valid, nil
}
