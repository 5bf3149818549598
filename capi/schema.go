package capi

import (
	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type schemaObj struct {
	s *format.Schema
}

func ArraySchemaAlloc(ctx Ctx, t ArrayType, schema *ArraySchema) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if t != ArrayDense && t != ArraySparse {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Invalid array type %d", t)
		}
		return put(kindSchema, &schemaObj{s: format.NewSchema(uint32(t))}, schema)
	})
}

func ArraySchemaFree(schema *ArraySchema) {
	drop(kindSchema, schema)
}

func withSchema(ctx Ctx, schema ArraySchema, fn func(s *format.Schema) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := schema.obj()
		if err != nil {
			return err
		}
		return fn(o.s)
	})
}

func ArraySchemaGetArrayType(ctx Ctx, schema ArraySchema, t *ArrayType) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*t = ArrayType(s.ArrayType)
		return nil
	})
}

// ArraySchemaSetDomain copies the dimensions of d into the schema.
func ArraySchemaSetDomain(ctx Ctx, schema ArraySchema, d Domain) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		do, err := d.obj()
		if err != nil {
			return err
		}
		if len(do.dims) == 0 {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot set domain; Domain has no dimensions")
		}
		s.Dimensions = make([]*format.Dimension, len(do.dims))
		for i, dim := range do.dims {
			s.Dimensions[i] = dim.Clone()
		}
		s.HasDomain = true
		return nil
	})
}

func ArraySchemaGetDomain(ctx Ctx, schema ArraySchema, d *Domain) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		o := &domainObj{}
		for _, dim := range s.Dimensions {
			o.dims = append(o.dims, dim.Clone())
		}
		return put(kindDomain, o, d)
	})
}

// ArraySchemaAddAttribute appends a copy of attr.
func ArraySchemaAddAttribute(ctx Ctx, schema ArraySchema, attr Attribute) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		ao, err := attr.obj()
		if err != nil {
			return err
		}
		if a, _ := s.Attribute(ao.a.Name); a != nil {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot add attribute; an attribute named %q already exists", ao.a.Name)
		}
		s.Attributes = append(s.Attributes, ao.a.Clone())
		return nil
	})
}

func ArraySchemaGetAttributeNum(ctx Ctx, schema ArraySchema, n *uint32) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*n = uint32(len(s.Attributes))
		return nil
	})
}

func ArraySchemaGetAttributeFromIndex(ctx Ctx, schema ArraySchema, idx uint32, attr *Attribute) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		if int(idx) >= len(s.Attributes) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"attributes"}, int(idx), len(s.Attributes))
		}
		return put(kindAttribute, &attributeObj{a: s.Attributes[idx].Clone()}, attr)
	})
}

func ArraySchemaGetAttributeFromName(ctx Ctx, schema ArraySchema, name string, attr *Attribute) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		a, _ := s.Attribute(name)
		if a == nil {
			return errors.NotFound(errors.PhaseNative, "attribute", name)
		}
		return put(kindAttribute, &attributeObj{a: a.Clone()}, attr)
	})
}

func ArraySchemaHasAttribute(ctx Ctx, schema ArraySchema, name string, has *bool) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		a, _ := s.Attribute(name)
		*has = a != nil
		return nil
	})
}

func ArraySchemaSetCellOrder(ctx Ctx, schema ArraySchema, l Layout) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		switch l {
		case LayoutRowMajor, LayoutColMajor:
		case LayoutHilbert:
			if s.ArrayType == format.Dense {
				return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot set cell order; Hilbert order is only applicable to sparse arrays")
			}
		default:
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot set cell order; %s is not a valid cell order", layoutName(l))
		}
		s.CellOrder = uint32(l)
		return nil
	})
}

func ArraySchemaGetCellOrder(ctx Ctx, schema ArraySchema, l *Layout) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*l = Layout(s.CellOrder)
		return nil
	})
}

func ArraySchemaSetTileOrder(ctx Ctx, schema ArraySchema, l Layout) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		if l != LayoutRowMajor && l != LayoutColMajor {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot set tile order; %s is not a valid tile order", layoutName(l))
		}
		s.TileOrder = uint32(l)
		return nil
	})
}

func ArraySchemaGetTileOrder(ctx Ctx, schema ArraySchema, l *Layout) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*l = Layout(s.TileOrder)
		return nil
	})
}

func ArraySchemaSetCapacity(ctx Ctx, schema ArraySchema, capacity uint64) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		if capacity == 0 {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Tile capacity must be positive")
		}
		s.Capacity = capacity
		return nil
	})
}

func ArraySchemaGetCapacity(ctx Ctx, schema ArraySchema, capacity *uint64) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*capacity = s.Capacity
		return nil
	})
}

func ArraySchemaSetAllowsDups(ctx Ctx, schema ArraySchema, allows bool) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		if allows && s.ArrayType == format.Dense {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Dense arrays cannot allow duplicates")
		}
		s.AllowsDups = allows
		return nil
	})
}

func ArraySchemaGetAllowsDups(ctx Ctx, schema ArraySchema, allows *bool) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*allows = s.AllowsDups
		return nil
	})
}

func schemaFilterList(ctx Ctx, schema ArraySchema, fl FilterList, pick func(s *format.Schema) *format.FilterList) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		l, err := filterList(fl)
		if err != nil {
			return err
		}
		*pick(s) = l
		return nil
	})
}

func getSchemaFilterList(ctx Ctx, schema ArraySchema, fl *FilterList, pick func(s *format.Schema) *format.FilterList) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		return put(kindFilterList, &filterListObj{l: pick(s).Clone()}, fl)
	})
}

func coordsFilters(s *format.Schema) *format.FilterList   { return &s.CoordsFilters }
func offsetsFilters(s *format.Schema) *format.FilterList  { return &s.OffsetsFilters }
func validityFilters(s *format.Schema) *format.FilterList { return &s.ValidityFilters }

func ArraySchemaSetCoordsFilterList(ctx Ctx, schema ArraySchema, fl FilterList) Status {
	return schemaFilterList(ctx, schema, fl, coordsFilters)
}

func ArraySchemaGetCoordsFilterList(ctx Ctx, schema ArraySchema, fl *FilterList) Status {
	return getSchemaFilterList(ctx, schema, fl, coordsFilters)
}

func ArraySchemaSetOffsetsFilterList(ctx Ctx, schema ArraySchema, fl FilterList) Status {
	return schemaFilterList(ctx, schema, fl, offsetsFilters)
}

func ArraySchemaGetOffsetsFilterList(ctx Ctx, schema ArraySchema, fl *FilterList) Status {
	return getSchemaFilterList(ctx, schema, fl, offsetsFilters)
}

func ArraySchemaSetValidityFilterList(ctx Ctx, schema ArraySchema, fl FilterList) Status {
	return schemaFilterList(ctx, schema, fl, validityFilters)
}

func ArraySchemaGetValidityFilterList(ctx Ctx, schema ArraySchema, fl *FilterList) Status {
	return getSchemaFilterList(ctx, schema, fl, validityFilters)
}

// ArraySchemaAddEnumeration attaches a copy of enum to the schema.
func ArraySchemaAddEnumeration(ctx Ctx, schema ArraySchema, enum Enumeration) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		eo, err := enum.obj()
		if err != nil {
			return err
		}
		if e, _ := s.Enumeration(eo.e.Name); e != nil {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchema: Cannot add enumeration; an enumeration named %q already exists", eo.e.Name)
		}
		s.Enumerations = append(s.Enumerations, eo.e.Clone())
		return nil
	})
}

func ArraySchemaGetEnumerationFromName(ctx Ctx, schema ArraySchema, name string, enum *Enumeration) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		e, _ := s.Enumeration(name)
		if e == nil {
			return errors.NotFound(errors.PhaseNative, "enumeration", name)
		}
		return put(kindEnumeration, &enumerationObj{e: e.Clone()}, enum)
	})
}

func ArraySchemaGetEnumerationFromAttributeName(ctx Ctx, schema ArraySchema, attr string, enum *Enumeration) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		a, _ := s.Attribute(attr)
		if a == nil {
			return errors.NotFound(errors.PhaseNative, "attribute", attr)
		}
		if a.Enumeration == "" {
			*enum = 0
			return nil
		}
		e, _ := s.Enumeration(a.Enumeration)
		if e == nil {
			return errors.NotFound(errors.PhaseNative, "enumeration", a.Enumeration)
		}
		return put(kindEnumeration, &enumerationObj{e: e.Clone()}, enum)
	})
}

func ArraySchemaGetTimestampRange(ctx Ctx, schema ArraySchema, lo, hi *uint64) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*lo, *hi = s.TimestampStart, s.TimestampEnd
		return nil
	})
}

func ArraySchemaCheck(ctx Ctx, schema ArraySchema) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		return s.Check()
	})
}

// ArraySchemaLoad reads the latest schema of the array at uri.
func ArraySchemaLoad(ctx Ctx, uri string, schema *ArraySchema) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		s, err := format.LoadSchema(c.vfs, uri, ^uint64(0))
		if err != nil {
			return err
		}
		return put(kindSchema, &schemaObj{s: s}, schema)
	})
}

func ArraySchemaDumpStr(ctx Ctx, schema ArraySchema, out *string) Status {
	return withSchema(ctx, schema, func(s *format.Schema) error {
		*out = s.Dump()
		return nil
	})
}
