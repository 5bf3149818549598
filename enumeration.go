package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// Enumeration is a named list of unique values that attribute cells index
// into.
type Enumeration struct {
	ctx *Context
	h   *resource.Handle[capi.Enumeration]
}

// NewEnumeration creates an enumeration of fixed-sized values, one per
// entry.
func NewEnumeration[T Scalar](ctx *Context, name string, ordered bool, values []T) (*Enumeration, error) {
	dt, err := DatatypeOf[T]()
	if err != nil {
		return nil, err
	}
	return allocEnumeration(ctx, name, dt, 1, ordered, bytesOf(values), nil)
}

// NewStringEnumeration creates an enumeration of STRING_UTF8 values.
func NewStringEnumeration(ctx *Context, name string, ordered bool, values []string) (*Enumeration, error) {
	data, offsets := PackStrings(values)
	return allocEnumeration(ctx, name, DatatypeStringUTF8, VarNum, ordered, data, bytesOf(offsets))
}

func allocEnumeration(ctx *Context, name string, dt Datatype, cellValNum uint32, ordered bool, data, offsets []byte) (*Enumeration, error) {
	var p capi.Enumeration
	if err := ctx.do(func(c capi.Ctx) capi.Status {
		return capi.EnumerationAlloc(c, name, capi.Datatype(dt), cellValNum, ordered, data, offsets, &p)
	}); err != nil {
		return nil, err
	}
	return newEnumeration(ctx, p)
}

func newEnumeration(ctx *Context, p capi.Enumeration) (*Enumeration, error) {
	h, err := own(p, capi.EnumerationFree)
	if err != nil {
		return nil, err
	}
	return &Enumeration{ctx: ctx, h: h}, nil
}

func (e *Enumeration) Free() {
	e.h.Free()
}

func (e *Enumeration) call(fn func(capi.Ctx, capi.Enumeration) capi.Status) error {
	return call(e.ctx, e.h, fn)
}

func (e *Enumeration) Name() (string, error) {
	var name string
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetName(c, p, &name) })
	return name, err
}

func (e *Enumeration) Type() (Datatype, error) {
	var dt capi.Datatype
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetType(c, p, &dt) })
	return Datatype(dt), err
}

func (e *Enumeration) CellValNum() (uint32, error) {
	var n uint32
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetCellValNum(c, p, &n) })
	return n, err
}

func (e *Enumeration) Ordered() (bool, error) {
	var ordered bool
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetOrdered(c, p, &ordered) })
	return ordered, err
}

// Data returns the concatenated values.
func (e *Enumeration) Data() ([]byte, error) {
	var b []byte
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetData(c, p, &b) })
	return b, err
}

// Offsets returns the byte offsets of variable-sized values.
func (e *Enumeration) Offsets() ([]uint64, error) {
	var b []byte
	if err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationGetOffsets(c, p, &b) }); err != nil {
		return nil, err
	}
	return valuesOf[uint64](b), nil
}

// StringValues returns the values of a variable-sized character
// enumeration.
func (e *Enumeration) StringValues() ([]string, error) {
	dt, err := e.Type()
	if err != nil {
		return nil, err
	}
	if !dt.IsString() {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, "string", dt.String())
	}
	data, err := e.Data()
	if err != nil {
		return nil, err
	}
	offsets, err := e.Offsets()
	if err != nil {
		return nil, err
	}
	return UnpackStrings(data, offsets)
}

// ExtendStrings returns a new enumeration holding e's values followed by
// values. e is unchanged.
func (e *Enumeration) ExtendStrings(values []string) (*Enumeration, error) {
	data, offsets := PackStrings(values)
	return e.extend(data, bytesOf(offsets))
}

func (e *Enumeration) extend(data, offsets []byte) (*Enumeration, error) {
	var p capi.Enumeration
	if err := e.call(func(c capi.Ctx, old capi.Enumeration) capi.Status {
		return capi.EnumerationExtend(c, old, data, offsets, &p)
	}); err != nil {
		return nil, err
	}
	return newEnumeration(e.ctx, p)
}

func (e *Enumeration) Dump() (string, error) {
	var out string
	err := e.call(func(c capi.Ctx, p capi.Enumeration) capi.Status { return capi.EnumerationDumpStr(c, p, &out) })
	return out, err
}

// EnumerationValues returns the values of a fixed-sized enumeration as T.
func EnumerationValues[T Scalar](e *Enumeration) ([]T, error) {
	dt, err := e.Type()
	if err != nil {
		return nil, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	data, err := e.Data()
	if err != nil {
		return nil, err
	}
	return valuesOf[T](data), nil
}

// ExtendEnumeration returns a new enumeration holding e's values followed
// by values.
func ExtendEnumeration[T Scalar](e *Enumeration, values []T) (*Enumeration, error) {
	dt, err := e.Type()
	if err != nil {
		return nil, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T]()); err != nil {
		return nil, err
	}
	return e.extend(bytesOf(values), nil)
}
