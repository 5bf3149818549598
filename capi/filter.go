package capi

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

type filterObj struct {
	f            format.Filter
	webpQuality  float32
	webpFormat   uint8
	webpLossless uint8
}

type filterListObj struct {
	l format.FilterList
}

// optionSpec is the value width of a filter option and the filters that
// accept it.
type optionSpec struct {
	size    int
	filters []filter.Type
}

var compressors = []filter.Type{
	filter.Gzip, filter.Zstd, filter.LZ4, filter.RLE, filter.Bzip2,
	filter.DoubleDelta, filter.Dictionary, filter.Delta,
}

var filterOptions = map[FilterOption]optionSpec{
	FilterOptCompressionLevel:         {4, compressors},
	FilterOptBitWidthMaxWindow:        {4, []filter.Type{filter.BitWidthReduction}},
	FilterOptPositiveDeltaMaxWindow:   {4, []filter.Type{filter.PositiveDelta}},
	FilterOptScaleFloatByteWidth:      {8, []filter.Type{filter.ScaleFloat}},
	FilterOptScaleFloatFactor:         {8, []filter.Type{filter.ScaleFloat}},
	FilterOptScaleFloatOffset:         {8, []filter.Type{filter.ScaleFloat}},
	FilterOptWebPQuality:              {4, []filter.Type{filter.WebP}},
	FilterOptWebPInputFormat:          {1, []filter.Type{filter.WebP}},
	FilterOptWebPLossless:             {1, []filter.Type{filter.WebP}},
	FilterOptCompressionReinterpretDT: {1, []filter.Type{filter.Delta, filter.DoubleDelta}},
}

func checkOption(f *filterObj, opt FilterOption, n int) error {
	desc, ok := filterOptions[opt]
	if !ok {
		return errors.InvalidInput(errors.PhaseNative, "Filter: Unknown option %d", opt)
	}
	accepted := false
	for _, t := range desc.filters {
		if t == f.f.Type {
			accepted = true
		}
	}
	if !accepted {
		return errors.InvalidInput(errors.PhaseNative, "%s filter does not support option %s", f.f.Type, FilterOptionName(opt))
	}
	if n != desc.size {
		return errors.InvalidInput(errors.PhaseNative, "Filter: option %s takes %d bytes, got %d", FilterOptionName(opt), desc.size, n)
	}
	return nil
}

func FilterAlloc(ctx Ctx, t FilterType, f *Filter) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if !t.Valid() || t == filter.Deprecated {
			return errors.InvalidInput(errors.PhaseNative, "Filter: Invalid filter type %d", uint32(t))
		}
		return put(kindFilter, &filterObj{f: *format.NewFilter(t), webpQuality: 100}, f)
	})
}

func FilterFree(f *Filter) {
	drop(kindFilter, f)
}

func FilterGetType(ctx Ctx, f Filter, t *FilterType) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := f.obj()
		if err != nil {
			return err
		}
		*t = o.f.Type
		return nil
	})
}

// FilterSetOption sets an option from its native-endian encoding.
func FilterSetOption(ctx Ctx, f Filter, opt FilterOption, value []byte) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := f.obj()
		if err != nil {
			return err
		}
		if err := checkOption(o, opt, len(value)); err != nil {
			return err
		}
		switch opt {
		case FilterOptCompressionLevel:
			o.f.Level = int32(binary.NativeEndian.Uint32(value))
		case FilterOptBitWidthMaxWindow:
			o.f.BitWidthMaxWindow = binary.NativeEndian.Uint32(value)
		case FilterOptPositiveDeltaMaxWindow:
			o.f.PositiveDeltaMaxWindow = binary.NativeEndian.Uint32(value)
		case FilterOptScaleFloatByteWidth:
			w := binary.NativeEndian.Uint64(value)
			if w != 1 && w != 2 && w != 4 && w != 8 {
				return errors.InvalidInput(errors.PhaseNative, "Filter: scale float byte width must be 1, 2, 4 or 8")
			}
			o.f.ScaleFloatByteWidth = w
		case FilterOptScaleFloatFactor:
			o.f.ScaleFloatFactor = math.Float64frombits(binary.NativeEndian.Uint64(value))
		case FilterOptScaleFloatOffset:
			o.f.ScaleFloatOffset = math.Float64frombits(binary.NativeEndian.Uint64(value))
		case FilterOptWebPQuality:
			q := math.Float32frombits(binary.NativeEndian.Uint32(value))
			if q < 0 || q > 100 {
				return errors.InvalidInput(errors.PhaseNative, "Filter: WebP quality must be in [0, 100]")
			}
			o.webpQuality = q
		case FilterOptWebPInputFormat:
			o.webpFormat = value[0]
		case FilterOptWebPLossless:
			o.webpLossless = value[0]
		case FilterOptCompressionReinterpretDT:
			o.f.ReinterpretDatatype = value[0]
		}
		return nil
	})
}

// FilterGetOption writes an option's native-endian encoding into value.
func FilterGetOption(ctx Ctx, f Filter, opt FilterOption, value []byte) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := f.obj()
		if err != nil {
			return err
		}
		if err := checkOption(o, opt, len(value)); err != nil {
			return err
		}
		switch opt {
		case FilterOptCompressionLevel:
			binary.NativeEndian.PutUint32(value, uint32(o.f.Level))
		case FilterOptBitWidthMaxWindow:
			binary.NativeEndian.PutUint32(value, o.f.BitWidthMaxWindow)
		case FilterOptPositiveDeltaMaxWindow:
			binary.NativeEndian.PutUint32(value, o.f.PositiveDeltaMaxWindow)
		case FilterOptScaleFloatByteWidth:
			binary.NativeEndian.PutUint64(value, o.f.ScaleFloatByteWidth)
		case FilterOptScaleFloatFactor:
			binary.NativeEndian.PutUint64(value, math.Float64bits(o.f.ScaleFloatFactor))
		case FilterOptScaleFloatOffset:
			binary.NativeEndian.PutUint64(value, math.Float64bits(o.f.ScaleFloatOffset))
		case FilterOptWebPQuality:
			binary.NativeEndian.PutUint32(value, math.Float32bits(o.webpQuality))
		case FilterOptWebPInputFormat:
			value[0] = o.webpFormat
		case FilterOptWebPLossless:
			value[0] = o.webpLossless
		case FilterOptCompressionReinterpretDT:
			value[0] = o.f.ReinterpretDatatype
		}
		return nil
	})
}

func FilterListAlloc(ctx Ctx, fl *FilterList) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		return put(kindFilterList, &filterListObj{l: *format.NewFilterList()}, fl)
	})
}

func FilterListFree(fl *FilterList) {
	drop(kindFilterList, fl)
}

// FilterListAddFilter appends a copy of f.
func FilterListAddFilter(ctx Ctx, fl FilterList, f Filter) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		l, err := fl.obj()
		if err != nil {
			return err
		}
		o, err := f.obj()
		if err != nil {
			return err
		}
		l.l.Filters = append(l.l.Filters, o.f)
		return nil
	})
}

func FilterListGetNFilters(ctx Ctx, fl FilterList, n *uint32) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		l, err := fl.obj()
		if err != nil {
			return err
		}
		*n = uint32(len(l.l.Filters))
		return nil
	})
}

// FilterListGetFilterFromIndex returns a copy of the filter at idx.
func FilterListGetFilterFromIndex(ctx Ctx, fl FilterList, idx uint32, f *Filter) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		l, err := fl.obj()
		if err != nil {
			return err
		}
		if int(idx) >= len(l.l.Filters) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"filter list"}, int(idx), len(l.l.Filters))
		}
		return put(kindFilter, &filterObj{f: l.l.Filters[idx], webpQuality: 100}, f)
	})
}

func FilterListSetMaxChunkSize(ctx Ctx, fl FilterList, size uint32) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		l, err := fl.obj()
		if err != nil {
			return err
		}
		if size == 0 {
			return errors.InvalidInput(errors.PhaseNative, "FilterList: max chunk size must be positive")
		}
		l.l.MaxChunkSize = size
		return nil
	})
}

func FilterListGetMaxChunkSize(ctx Ctx, fl FilterList, size *uint32) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		l, err := fl.obj()
		if err != nil {
			return err
		}
		*size = l.l.MaxChunkSize
		return nil
	})
}

// filterList resolves a filter list argument to a copy of its contents.
func filterList(fl FilterList) (format.FilterList, error) {
	l, err := fl.obj()
	if err != nil {
		return format.FilterList{}, err
	}
	return l.l.Clone(), nil
}

func dumpFilters(b *strings.Builder, l format.FilterList) {
	if len(l.Filters) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, f := range l.Filters {
		fmt.Fprintf(b, "  > %s", f.Type)
		for _, t := range compressors {
			if t == f.Type {
				fmt.Fprintf(b, ": COMPRESSION_LEVEL=%d", f.Level)
			}
		}
		b.WriteByte('\n')
	}
}
