package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// ArraySchema describes an array: its type, domain, attributes, orders and
// filters. A schema is immutable once the array exists; change it with an
// ArraySchemaEvolution.
type ArraySchema struct {
	ctx *Context
	h   *resource.Handle[capi.ArraySchema]
}

func NewArraySchema(ctx *Context, t ArrayType) (*ArraySchema, error) {
	var p capi.ArraySchema
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.ArraySchemaAlloc(c, capi.ArrayType(t), &p) }); err != nil {
		return nil, err
	}
	return newArraySchema(ctx, p)
}

// LoadArraySchema reads the latest schema of the array at uri.
func LoadArraySchema(ctx *Context, uri string) (*ArraySchema, error) {
	var p capi.ArraySchema
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.ArraySchemaLoad(c, uri, &p) }); err != nil {
		return nil, err
	}
	return newArraySchema(ctx, p)
}

func newArraySchema(ctx *Context, p capi.ArraySchema) (*ArraySchema, error) {
	h, err := own(p, capi.ArraySchemaFree)
	if err != nil {
		return nil, err
	}
	return &ArraySchema{ctx: ctx, h: h}, nil
}

func (s *ArraySchema) Free() {
	s.h.Free()
}

func (s *ArraySchema) call(fn func(capi.Ctx, capi.ArraySchema) capi.Status) error {
	return call(s.ctx, s.h, fn)
}

func (s *ArraySchema) Type() (ArrayType, error) {
	var t capi.ArrayType
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetArrayType(c, p, &t) })
	return ArrayType(t), err
}

// SetDomain copies d into the schema.
func (s *ArraySchema) SetDomain(d *Domain) error {
	if d == nil {
		return nilArg("domain")
	}
	return callArg(s.ctx, s.h, d.h, capi.ArraySchemaSetDomain)
}

func (s *ArraySchema) Domain() (*Domain, error) {
	var d capi.Domain
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetDomain(c, p, &d) }); err != nil {
		return nil, err
	}
	return newDomain(s.ctx, d)
}

// AddAttributes copies each attribute into the schema in order. Attributes
// added before a failing one stay added.
func (s *ArraySchema) AddAttributes(attrs ...*Attribute) error {
	for _, a := range attrs {
		if a == nil {
			return nilArg("attribute")
		}
		if err := callArg(s.ctx, s.h, a.h, capi.ArraySchemaAddAttribute); err != nil {
			return err
		}
	}
	return nil
}

func (s *ArraySchema) AttributeNum() (uint32, error) {
	var n uint32
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetAttributeNum(c, p, &n) })
	return n, err
}

func (s *ArraySchema) AttributeFromIndex(idx uint32) (*Attribute, error) {
	var a capi.Attribute
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaGetAttributeFromIndex(c, p, idx, &a)
	}); err != nil {
		return nil, err
	}
	return newAttribute(s.ctx, a)
}

func (s *ArraySchema) AttributeFromName(name string) (*Attribute, error) {
	var a capi.Attribute
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaGetAttributeFromName(c, p, name, &a)
	}); err != nil {
		return nil, err
	}
	return newAttribute(s.ctx, a)
}

// Attributes returns every attribute in schema order. The caller frees them.
func (s *ArraySchema) Attributes() ([]*Attribute, error) {
	n, err := s.AttributeNum()
	if err != nil {
		return nil, err
	}
	out := make([]*Attribute, 0, n)
	for i := uint32(0); i < n; i++ {
		a, err := s.AttributeFromIndex(i)
		if err != nil {
			for _, prev := range out {
				prev.Free()
			}
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *ArraySchema) HasAttribute(name string) (bool, error) {
	var has bool
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaHasAttribute(c, p, name, &has) })
	return has, err
}

func (s *ArraySchema) SetCellOrder(l Layout) error {
	return s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaSetCellOrder(c, p, capi.Layout(l))
	})
}

func (s *ArraySchema) CellOrder() (Layout, error) {
	var l capi.Layout
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetCellOrder(c, p, &l) })
	return Layout(l), err
}

func (s *ArraySchema) SetTileOrder(l Layout) error {
	return s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaSetTileOrder(c, p, capi.Layout(l))
	})
}

func (s *ArraySchema) TileOrder() (Layout, error) {
	var l capi.Layout
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetTileOrder(c, p, &l) })
	return Layout(l), err
}

// SetCapacity sets the number of cells per data tile of a sparse array.
func (s *ArraySchema) SetCapacity(capacity uint64) error {
	return s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaSetCapacity(c, p, capacity)
	})
}

func (s *ArraySchema) Capacity() (uint64, error) {
	var n uint64
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetCapacity(c, p, &n) })
	return n, err
}

// SetAllowsDups allows duplicate coordinates in a sparse array.
func (s *ArraySchema) SetAllowsDups(allows bool) error {
	return s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaSetAllowsDups(c, p, allows)
	})
}

func (s *ArraySchema) AllowsDups() (bool, error) {
	var allows bool
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaGetAllowsDups(c, p, &allows) })
	return allows, err
}

func (s *ArraySchema) SetCoordsFilterList(fl *FilterList) error {
	if fl == nil {
		return nilArg("filter list")
	}
	return callArg(s.ctx, s.h, fl.h, capi.ArraySchemaSetCoordsFilterList)
}

func (s *ArraySchema) CoordsFilterList() (*FilterList, error) {
	return s.filterList(capi.ArraySchemaGetCoordsFilterList)
}

func (s *ArraySchema) SetOffsetsFilterList(fl *FilterList) error {
	if fl == nil {
		return nilArg("filter list")
	}
	return callArg(s.ctx, s.h, fl.h, capi.ArraySchemaSetOffsetsFilterList)
}

func (s *ArraySchema) OffsetsFilterList() (*FilterList, error) {
	return s.filterList(capi.ArraySchemaGetOffsetsFilterList)
}

func (s *ArraySchema) SetValidityFilterList(fl *FilterList) error {
	if fl == nil {
		return nilArg("filter list")
	}
	return callArg(s.ctx, s.h, fl.h, capi.ArraySchemaSetValidityFilterList)
}

func (s *ArraySchema) ValidityFilterList() (*FilterList, error) {
	return s.filterList(capi.ArraySchemaGetValidityFilterList)
}

func (s *ArraySchema) filterList(get func(capi.Ctx, capi.ArraySchema, *capi.FilterList) capi.Status) (*FilterList, error) {
	var fl capi.FilterList
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return get(c, p, &fl) }); err != nil {
		return nil, err
	}
	return newFilterList(s.ctx, fl)
}

// AddEnumeration copies e into the schema. Attributes refer to it by name
// through SetEnumerationName.
func (s *ArraySchema) AddEnumeration(e *Enumeration) error {
	if e == nil {
		return nilArg("enumeration")
	}
	return callArg(s.ctx, s.h, e.h, capi.ArraySchemaAddEnumeration)
}

func (s *ArraySchema) EnumerationFromName(name string) (*Enumeration, error) {
	var e capi.Enumeration
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaGetEnumerationFromName(c, p, name, &e)
	}); err != nil {
		return nil, err
	}
	return newEnumeration(s.ctx, e)
}

// EnumerationFromAttributeName returns the enumeration the named attribute
// refers to.
func (s *ArraySchema) EnumerationFromAttributeName(attr string) (*Enumeration, error) {
	var e capi.Enumeration
	if err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaGetEnumerationFromAttributeName(c, p, attr, &e)
	}); err != nil {
		return nil, err
	}
	return newEnumeration(s.ctx, e)
}

// TimestampRange returns the timestamps at which the schema was written.
func (s *ArraySchema) TimestampRange() (lo, hi uint64, err error) {
	err = s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status {
		return capi.ArraySchemaGetTimestampRange(c, p, &lo, &hi)
	})
	return lo, hi, err
}

// Check validates the schema the way array creation does.
func (s *ArraySchema) Check() error {
	return s.call(capi.ArraySchemaCheck)
}

// IsVarSize reports whether the named attribute or dimension holds
// variable-sized cells.
func (s *ArraySchema) IsVarSize(name string) (bool, error) {
	n, err := s.cellValNum(name)
	return n == VarNum, err
}

// IsNullable reports whether the named attribute is nullable. Dimensions
// are never nullable.
func (s *ArraySchema) IsNullable(name string) (bool, error) {
	has, err := s.HasAttribute(name)
	if err != nil || !has {
		if err == nil {
			_, err = s.cellValNum(name)
		}
		return false, err
	}
	a, err := s.AttributeFromName(name)
	if err != nil {
		return false, err
	}
	defer a.Free()
	return a.Nullable()
}

func (s *ArraySchema) cellValNum(name string) (uint32, error) {
	has, err := s.HasAttribute(name)
	if err != nil {
		return 0, err
	}
	if has {
		a, err := s.AttributeFromName(name)
		if err != nil {
			return 0, err
		}
		defer a.Free()
		return a.CellValNum()
	}
	d, err := s.Domain()
	if err != nil {
		return 0, err
	}
	defer d.Free()
	dim, err := d.DimensionFromName(name)
	if err != nil {
		return 0, err
	}
	defer dim.Free()
	return dim.CellValNum()
}

// Dump renders the schema as text.
func (s *ArraySchema) Dump() (string, error) {
	var out string
	err := s.call(func(c capi.Ctx, p capi.ArraySchema) capi.Status { return capi.ArraySchemaDumpStr(c, p, &out) })
	return out, err
}
