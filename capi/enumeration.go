package capi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type enumerationObj struct {
	e *format.Enumeration
}

// enumValues splits an enumeration's data into its values. offsets holds
// native-endian uint64 byte offsets for variable-sized values.
func enumValues(dt Datatype, cellValNum uint32, data, offsets []byte) ([][]byte, error) {
	if cellValNum == 0 {
		return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: cell_val_num must not be zero")
	}
	if cellValNum != VarNum {
		if len(offsets) > 0 {
			return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: offsets are only valid for var sized enumerations")
		}
		size := dt.Size() * int(cellValNum)
		if len(data)%size != 0 {
			return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: data size %d is not a multiple of the value size %d", len(data), size)
		}
		out := make([][]byte, 0, len(data)/size)
		for i := 0; i < len(data); i += size {
			out = append(out, data[i:i+size])
		}
		return out, nil
	}
	if len(offsets)%8 != 0 {
		return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: offsets size must be a multiple of 8")
	}
	n := len(offsets) / 8
	if n == 0 && len(data) > 0 {
		return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: var sized data requires offsets")
	}
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		start := binary.NativeEndian.Uint64(offsets[8*i:])
		end := uint64(len(data))
		if i+1 < n {
			end = binary.NativeEndian.Uint64(offsets[8*i+8:])
		}
		if (i == 0 && start != 0) || start > end || end > uint64(len(data)) {
			return nil, errors.InvalidInput(errors.PhaseNative, "Enumeration: invalid offsets")
		}
		out = append(out, data[start:end])
	}
	return out, nil
}

func checkUnique(values [][]byte) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[string(v)] {
			return errors.InvalidInput(errors.PhaseNative, "Enumeration: values must be unique; %q is repeated", v)
		}
		seen[string(v)] = true
	}
	return nil
}

func EnumerationAlloc(ctx Ctx, name string, dt Datatype, cellValNum uint32, ordered bool, data, offsets []byte, enum *Enumeration) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if name == "" {
			return errors.InvalidInput(errors.PhaseNative, "Enumeration: name must not be empty")
		}
		if err := checkDatatype(dt, "Enumeration"); err != nil {
			return err
		}
		values, err := enumValues(dt, cellValNum, data, offsets)
		if err != nil {
			return err
		}
		if err := checkUnique(values); err != nil {
			return err
		}
		e := &format.Enumeration{
			Name:       name,
			Datatype:   dt,
			CellValNum: cellValNum,
			Ordered:    ordered,
			Data:       bytes.Clone(data),
			Offsets:    bytes.Clone(offsets),
		}
		return put(kindEnumeration, &enumerationObj{e: e}, enum)
	})
}

func EnumerationFree(enum *Enumeration) {
	drop(kindEnumeration, enum)
}

func withEnumeration(ctx Ctx, enum Enumeration, fn func(e *format.Enumeration) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := enum.obj()
		if err != nil {
			return err
		}
		return fn(o.e)
	})
}

func EnumerationGetName(ctx Ctx, enum Enumeration, name *string) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*name = e.Name
		return nil
	})
}

func EnumerationGetType(ctx Ctx, enum Enumeration, dt *Datatype) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*dt = e.Datatype
		return nil
	})
}

func EnumerationGetCellValNum(ctx Ctx, enum Enumeration, n *uint32) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*n = e.CellValNum
		return nil
	})
}

func EnumerationGetOrdered(ctx Ctx, enum Enumeration, ordered *bool) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*ordered = e.Ordered
		return nil
	})
}

func EnumerationGetData(ctx Ctx, enum Enumeration, data *[]byte) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*data = bytes.Clone(e.Data)
		return nil
	})
}

// EnumerationGetOffsets returns the value offsets, nil for fixed-size
// enumerations.
func EnumerationGetOffsets(ctx Ctx, enum Enumeration, offsets *[]byte) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		*offsets = bytes.Clone(e.Offsets)
		return nil
	})
}

// EnumerationExtend returns a new enumeration holding the values of old
// followed by the given values.
func EnumerationExtend(ctx Ctx, old Enumeration, data, offsets []byte, extended *Enumeration) Status {
	return withEnumeration(ctx, old, func(e *format.Enumeration) error {
		prev, err := enumValues(e.Datatype, e.CellValNum, e.Data, e.Offsets)
		if err != nil {
			return err
		}
		added, err := enumValues(e.Datatype, e.CellValNum, data, offsets)
		if err != nil {
			return err
		}
		if len(added) == 0 {
			return errors.InvalidInput(errors.PhaseNative, "Enumeration: Cannot extend with no values")
		}
		if err := checkUnique(append(append([][]byte(nil), prev...), added...)); err != nil {
			return err
		}
		next := e.Clone()
		if e.CellValNum == VarNum {
			base := uint64(len(e.Data))
			for i := 0; i < len(offsets); i += 8 {
				next.Offsets = binary.NativeEndian.AppendUint64(next.Offsets, base+binary.NativeEndian.Uint64(offsets[i:]))
			}
		}
		next.Data = append(next.Data, data...)
		return put(kindEnumeration, &enumerationObj{e: next}, extended)
	})
}

func EnumerationDumpStr(ctx Ctx, enum Enumeration, out *string) Status {
	return withEnumeration(ctx, enum, func(e *format.Enumeration) error {
		values, err := enumValues(e.Datatype, e.CellValNum, e.Data, e.Offsets)
		if err != nil {
			return err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "### Enumeration ###\n- Name: %s\n- Type: %s\n- Ordered: %t\n- Element count: %d\n", e.Name, e.Datatype, e.Ordered, len(values))
		for _, v := range values {
			if e.Datatype.IsString() || e.CellValNum == VarNum {
				fmt.Fprintf(&b, "  %q\n", v)
				continue
			}
			fmt.Fprintf(&b, "  %s\n", format.FormatValue(e.Datatype, v))
		}
		*out = b.String()
		return nil
	})
}
