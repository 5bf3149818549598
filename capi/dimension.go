package capi

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type dimensionObj struct {
	d *format.Dimension
}

type domainObj struct {
	dims []*format.Dimension
}

func checkDimension(name string, dt Datatype, domain, extent []byte) error {
	if err := checkDatatype(dt, "Dimension"); err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseNative, "Dimension: name must not be empty")
	}
	if dt.IsString() {
		return errors.Unsupported(errors.PhaseNative, "Dimension: string dimensions are not supported")
	}
	if !dt.IsInteger() && !dt.IsFloat() {
		return errors.InvalidInput(errors.PhaseNative, "Dimension: datatype %s cannot be a dimension", dt)
	}
	n := dt.Size()
	if len(domain) != 2*n {
		return errors.InvalidInput(errors.PhaseNative, "Dimension: domain must hold 2 values of %d bytes", n)
	}
	lo, hi := format.Key(dt, domain[:n]), format.Key(dt, domain[n:])
	if lo > hi {
		return errors.InvalidInput(errors.PhaseNative, "Domain check failed; lower domain bound larger than its upper")
	}
	if dt.IsFloat() {
		for _, v := range []string{format.FormatValue(dt, domain[:n]), format.FormatValue(dt, domain[n:])} {
			if v == "NaN" || strings.HasSuffix(v, "Inf") {
				return errors.InvalidInput(errors.PhaseNative, "Domain check failed; domain contains NaN or infinity")
			}
		}
	}
	if len(extent) == 0 {
		return nil
	}
	if len(extent) != n {
		return errors.InvalidInput(errors.PhaseNative, "Dimension: tile extent must hold one value of %d bytes", n)
	}
	if dt.IsInteger() {
		e := format.Key(dt, extent)
		if dt == format.UInt64 {
			e = int64(uint64(e) ^ 1<<63)
		}
		if e <= 0 {
			return errors.InvalidInput(errors.PhaseNative, "Tile extent check failed; tile extent must be positive")
		}
		if span := uint64(hi-lo) + 1; span != 0 && uint64(e) > span {
			return errors.InvalidInput(errors.PhaseNative, "Tile extent check failed; tile extent exceeds dimension domain range")
		}
		return nil
	}
	if format.Key(dt, extent) <= format.Key(dt, make([]byte, n)) {
		return errors.InvalidInput(errors.PhaseNative, "Tile extent check failed; tile extent must be positive")
	}
	return nil
}

// DimensionAlloc creates a dimension. domain holds the lower and upper bound
// back to back; extent may be empty.
func DimensionAlloc(ctx Ctx, name string, dt Datatype, domain, extent []byte, dim *Dimension) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkDimension(name, dt, domain, extent); err != nil {
			return err
		}
		d := &format.Dimension{
			Name:       name,
			Datatype:   dt,
			CellValNum: 1,
			Domain:     bytes.Clone(domain),
			TileExtent: bytes.Clone(extent),
			Filters:    *format.NewFilterList(),
		}
		return put(kindDimension, &dimensionObj{d: d}, dim)
	})
}

func DimensionFree(dim *Dimension) {
	drop(kindDimension, dim)
}

func withDimension(ctx Ctx, dim Dimension, fn func(d *format.Dimension) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := dim.obj()
		if err != nil {
			return err
		}
		return fn(o.d)
	})
}

func DimensionGetName(ctx Ctx, dim Dimension, name *string) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		*name = d.Name
		return nil
	})
}

func DimensionGetType(ctx Ctx, dim Dimension, dt *Datatype) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		*dt = d.Datatype
		return nil
	})
}

func DimensionGetDomain(ctx Ctx, dim Dimension, domain *[]byte) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		*domain = bytes.Clone(d.Domain)
		return nil
	})
}

// DimensionGetTileExtent returns the tile extent, or nil when none was set.
func DimensionGetTileExtent(ctx Ctx, dim Dimension, extent *[]byte) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		*extent = bytes.Clone(d.TileExtent)
		return nil
	})
}

func DimensionSetCellValNum(ctx Ctx, dim Dimension, n uint32) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		if n != 1 {
			return errors.InvalidInput(errors.PhaseNative, "Dimension: Cannot set number of values per coordinate; only one value per coordinate is supported")
		}
		d.CellValNum = n
		return nil
	})
}

func DimensionGetCellValNum(ctx Ctx, dim Dimension, n *uint32) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		*n = d.CellValNum
		return nil
	})
}

func DimensionSetFilterList(ctx Ctx, dim Dimension, fl FilterList) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		l, err := filterList(fl)
		if err != nil {
			return err
		}
		d.Filters = l
		d.HasFilters = true
		return nil
	})
}

func DimensionGetFilterList(ctx Ctx, dim Dimension, fl *FilterList) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		return put(kindFilterList, &filterListObj{l: d.Filters.Clone()}, fl)
	})
}

func dumpDimension(b *strings.Builder, d *format.Dimension) {
	n := d.Datatype.Size()
	fmt.Fprintf(b, "### Dimension ###\n- Name: %s\n- Type: %s\n- Cell val num: %d\n", d.Name, d.Datatype, d.CellValNum)
	fmt.Fprintf(b, "- Domain: [%s,%s]\n", format.FormatValue(d.Datatype, d.Domain[:n]), format.FormatValue(d.Datatype, d.Domain[n:]))
	if len(d.TileExtent) > 0 {
		fmt.Fprintf(b, "- Tile extent: %s\n", format.FormatValue(d.Datatype, d.TileExtent))
	} else {
		b.WriteString("- Tile extent: null\n")
	}
	b.WriteString("- Filters:\n")
	dumpFilters(b, d.Filters)
}

func DimensionDumpStr(ctx Ctx, dim Dimension, out *string) Status {
	return withDimension(ctx, dim, func(d *format.Dimension) error {
		var b strings.Builder
		dumpDimension(&b, d)
		*out = b.String()
		return nil
	})
}

func DomainAlloc(ctx Ctx, d *Domain) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		return put(kindDomain, &domainObj{}, d)
	})
}

func DomainFree(d *Domain) {
	drop(kindDomain, d)
}

func withDomain(ctx Ctx, d Domain, fn func(o *domainObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := d.obj()
		if err != nil {
			return err
		}
		return fn(o)
	})
}

func (o *domainObj) find(name string) (int, bool) {
	for i, d := range o.dims {
		if d.Name == name {
			return i, true
		}
	}
	return -1, false
}

// DomainAddDimension appends a copy of dim.
func DomainAddDimension(ctx Ctx, d Domain, dim Dimension) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		do, err := dim.obj()
		if err != nil {
			return err
		}
		if _, dup := o.find(do.d.Name); dup {
			return errors.InvalidInput(errors.PhaseNative, "Domain: Cannot add dimension; a dimension named %q already exists", do.d.Name)
		}
		o.dims = append(o.dims, do.d.Clone())
		return nil
	})
}

func DomainGetNDim(ctx Ctx, d Domain, n *uint32) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		*n = uint32(len(o.dims))
		return nil
	})
}

// DomainGetType returns the common dimension datatype.
func DomainGetType(ctx Ctx, d Domain, dt *Datatype) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		if len(o.dims) == 0 {
			return errors.InvalidState(errors.PhaseNative, "Domain: Cannot get domain type; Domain has no dimensions")
		}
		for _, dim := range o.dims[1:] {
			if dim.Datatype != o.dims[0].Datatype {
				return errors.InvalidState(errors.PhaseNative, "Domain: Cannot get domain type; not applicable to heterogeneous dimensions")
			}
		}
		*dt = o.dims[0].Datatype
		return nil
	})
}

func DomainGetDimensionFromIndex(ctx Ctx, d Domain, idx uint32, dim *Dimension) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		if int(idx) >= len(o.dims) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"domain"}, int(idx), len(o.dims))
		}
		return put(kindDimension, &dimensionObj{d: o.dims[idx].Clone()}, dim)
	})
}

func DomainGetDimensionFromName(ctx Ctx, d Domain, name string, dim *Dimension) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		i, ok := o.find(name)
		if !ok {
			return errors.NotFound(errors.PhaseNative, "dimension", name)
		}
		return put(kindDimension, &dimensionObj{d: o.dims[i].Clone()}, dim)
	})
}

func DomainHasDimension(ctx Ctx, d Domain, name string, has *bool) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		_, *has = o.find(name)
		return nil
	})
}

func DomainDumpStr(ctx Ctx, d Domain, out *string) Status {
	return withDomain(ctx, d, func(o *domainObj) error {
		var b strings.Builder
		b.WriteString("=== Domain ===\n")
		for _, dim := range o.dims {
			dumpDimension(&b, dim)
		}
		*out = b.String()
		return nil
	})
}

// cellCount returns the number of cells in [lo, hi] of an integer
// dimension, saturating at MaxUint64.
func cellCount(lo, hi int64) uint64 {
	if hi < lo {
		return 0
	}
	n := uint64(hi-lo) + 1
	if n == 0 {
		return math.MaxUint64
	}
	return n
}
