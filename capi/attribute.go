package capi

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type attributeObj struct {
	a *format.Attribute
}

func checkDatatype(dt Datatype, what string) error {
	if !dt.Valid() || dt.Size() == 0 {
		return errors.InvalidInput(errors.PhaseNative, "%s: Invalid datatype %d", what, uint32(dt))
	}
	return nil
}

func AttributeAlloc(ctx Ctx, name string, dt Datatype, attr *Attribute) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkDatatype(dt, "Attribute"); err != nil {
			return err
		}
		if strings.HasPrefix(name, "__") {
			return errors.InvalidInput(errors.PhaseNative, "Attribute: names starting with __ are reserved")
		}
		return put(kindAttribute, &attributeObj{a: format.NewAttribute(name, dt)}, attr)
	})
}

func AttributeFree(attr *Attribute) {
	drop(kindAttribute, attr)
}

func withAttribute(ctx Ctx, attr Attribute, fn func(a *format.Attribute) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := attr.obj()
		if err != nil {
			return err
		}
		return fn(o.a)
	})
}

func AttributeGetName(ctx Ctx, attr Attribute, name *string) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		*name = a.Name
		return nil
	})
}

func AttributeGetType(ctx Ctx, attr Attribute, dt *Datatype) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		*dt = a.Datatype
		return nil
	})
}

// AttributeSetCellValNum sets the values per cell and resets the fill value.
func AttributeSetCellValNum(ctx Ctx, attr Attribute, n uint32) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if n == 0 {
			return errors.InvalidInput(errors.PhaseNative, "Attribute: Cannot set zero values per cell")
		}
		a.CellValNum = n
		fill := format.DefaultFill(a.Datatype)
		if n != VarNum {
			fill = bytes.Repeat(fill, int(n))
		}
		a.FillValue = fill
		return nil
	})
}

func AttributeGetCellValNum(ctx Ctx, attr Attribute, n *uint32) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		*n = a.CellValNum
		return nil
	})
}

// AttributeGetCellSize reports the bytes per cell, MaxUint64 for
// variable-sized attributes.
func AttributeGetCellSize(ctx Ctx, attr Attribute, size *uint64) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if a.VarSized() {
			*size = math.MaxUint64
			return nil
		}
		*size = uint64(a.CellSize())
		return nil
	})
}

func AttributeSetNullable(ctx Ctx, attr Attribute, nullable bool) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		a.Nullable = nullable
		return nil
	})
}

func AttributeGetNullable(ctx Ctx, attr Attribute, nullable *bool) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		*nullable = a.Nullable
		return nil
	})
}

func AttributeSetFilterList(ctx Ctx, attr Attribute, fl FilterList) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		l, err := filterList(fl)
		if err != nil {
			return err
		}
		a.Filters = l
		return nil
	})
}

func AttributeGetFilterList(ctx Ctx, attr Attribute, fl *FilterList) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		return put(kindFilterList, &filterListObj{l: a.Filters.Clone()}, fl)
	})
}

func checkFill(a *format.Attribute, value []byte) error {
	if len(value) == 0 {
		return errors.InvalidInput(errors.PhaseNative, "Attribute: Cannot set fill value; empty value")
	}
	if !a.VarSized() && len(value) != a.CellSize() {
		return errors.InvalidInput(errors.PhaseNative, "Attribute: Cannot set fill value; Input size %d is not the attribute cell size %d", len(value), a.CellSize())
	}
	return nil
}

func AttributeSetFillValue(ctx Ctx, attr Attribute, value []byte) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if a.Nullable {
			return errors.InvalidState(errors.PhaseNative, "Attribute: Cannot set fill value; Attribute is nullable")
		}
		if err := checkFill(a, value); err != nil {
			return err
		}
		a.FillValue = bytes.Clone(value)
		return nil
	})
}

func AttributeGetFillValue(ctx Ctx, attr Attribute, value *[]byte) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if a.Nullable {
			return errors.InvalidState(errors.PhaseNative, "Attribute: Cannot get fill value; Attribute is nullable")
		}
		*value = bytes.Clone(a.FillValue)
		return nil
	})
}

func AttributeSetFillValueNullable(ctx Ctx, attr Attribute, value []byte, valid bool) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if !a.Nullable {
			return errors.InvalidState(errors.PhaseNative, "Attribute: Cannot set fill value; Attribute is not nullable")
		}
		if err := checkFill(a, value); err != nil {
			return err
		}
		a.FillValue = bytes.Clone(value)
		a.FillValid = valid
		return nil
	})
}

func AttributeGetFillValueNullable(ctx Ctx, attr Attribute, value *[]byte, valid *bool) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		if !a.Nullable {
			return errors.InvalidState(errors.PhaseNative, "Attribute: Cannot get fill value; Attribute is not nullable")
		}
		*value = bytes.Clone(a.FillValue)
		*valid = a.FillValid
		return nil
	})
}

func AttributeSetEnumerationName(ctx Ctx, attr Attribute, name string) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		a.Enumeration = name
		return nil
	})
}

// AttributeGetEnumerationName returns the attribute's enumeration, or an
// empty name when it has none.
func AttributeGetEnumerationName(ctx Ctx, attr Attribute, name *string) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		*name = a.Enumeration
		return nil
	})
}

func dumpAttribute(b *strings.Builder, a *format.Attribute) {
	fmt.Fprintf(b, "### Attribute ###\n- Name: %s\n- Type: %s\n- Nullable: %t\n", a.Name, a.Datatype, a.Nullable)
	if a.VarSized() {
		b.WriteString("- Cell val num: var\n")
	} else {
		fmt.Fprintf(b, "- Cell val num: %d\n", a.CellValNum)
	}
	b.WriteString("- Filters:\n")
	dumpFilters(b, a.Filters)
	if !a.VarSized() {
		fmt.Fprintf(b, "- Fill value: %s\n", format.FormatValue(a.Datatype, a.FillValue))
	}
	if a.Enumeration != "" {
		fmt.Fprintf(b, "- Enumeration name: %s\n", a.Enumeration)
	}
}

func AttributeDumpStr(ctx Ctx, attr Attribute, out *string) Status {
	return withAttribute(ctx, attr, func(a *format.Attribute) error {
		var b strings.Builder
		dumpAttribute(&b, a)
		*out = b.String()
		return nil
	})
}
