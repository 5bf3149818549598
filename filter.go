package tiledb

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// Filter is one stage of a tile filter pipeline.
type Filter struct {
	ctx *Context
	h   *resource.Handle[capi.Filter]
}

func NewFilter(ctx *Context, t FilterType) (*Filter, error) {
	var p capi.Filter
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.FilterAlloc(c, capi.FilterType(t), &p) }); err != nil {
		return nil, err
	}
	return newFilter(ctx, p)
}

func newFilter(ctx *Context, p capi.Filter) (*Filter, error) {
	h, err := own(p, capi.FilterFree)
	if err != nil {
		return nil, err
	}
	return &Filter{ctx: ctx, h: h}, nil
}

func (f *Filter) Free() {
	f.h.Free()
}

func (f *Filter) Type() (FilterType, error) {
	var t capi.FilterType
	err := call(f.ctx, f.h, func(c capi.Ctx, p capi.Filter) capi.Status { return capi.FilterGetType(c, p, &t) })
	return FilterType(t), err
}

// optionTypes is the Go type of each filter option's value.
var optionTypes = map[FilterOption]reflect.Type{
	FilterOptCompressionLevel:         typeInt32,
	FilterOptBitWidthMaxWindow:        typeUint32,
	FilterOptPositiveDeltaMaxWindow:   typeUint32,
	FilterOptScaleFloatByteWidth:      typeUint64,
	FilterOptScaleFloatFactor:         typeFloat64,
	FilterOptScaleFloatOffset:         typeFloat64,
	FilterOptWebPQuality:              typeFloat32,
	FilterOptWebPInputFormat:          typeUint8,
	FilterOptWebPLossless:             typeUint8,
	FilterOptCompressionReinterpretDT: typeUint8,
}

// SetOption sets a filter option. The value's type must be the option's
// type, for example int32 for FilterOptCompressionLevel and float64 for
// FilterOptScaleFloatFactor.
func (f *Filter) SetOption(opt FilterOption, value any) error {
	want, ok := optionTypes[opt]
	if !ok {
		return errors.NotFound(errors.PhaseValidate, "filter option", opt.String())
	}
	if got := reflect.TypeOf(value); got != want {
		name := "nil"
		if got != nil {
			name = got.String()
		}
		return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(opt.String()).
			GoType(name).
			Detail("filter option takes %s", want).
			Build()
	}
	b := make([]byte, want.Size())
	switch v := value.(type) {
	case int32:
		binary.NativeEndian.PutUint32(b, uint32(v))
	case uint32:
		binary.NativeEndian.PutUint32(b, v)
	case uint64:
		binary.NativeEndian.PutUint64(b, v)
	case float64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(v))
	case float32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(v))
	case uint8:
		b[0] = v
	}
	return call(f.ctx, f.h, func(c capi.Ctx, p capi.Filter) capi.Status {
		return capi.FilterSetOption(c, p, capi.FilterOption(opt), b)
	})
}

// Option returns a filter option decoded to its Go type.
func (f *Filter) Option(opt FilterOption) (any, error) {
	t, ok := optionTypes[opt]
	if !ok {
		return nil, errors.NotFound(errors.PhaseValidate, "filter option", opt.String())
	}
	b := make([]byte, t.Size())
	if err := call(f.ctx, f.h, func(c capi.Ctx, p capi.Filter) capi.Status {
		return capi.FilterGetOption(c, p, capi.FilterOption(opt), b)
	}); err != nil {
		return nil, err
	}
	switch t {
	case typeInt32:
		return int32(binary.NativeEndian.Uint32(b)), nil
	case typeUint32:
		return binary.NativeEndian.Uint32(b), nil
	case typeUint64:
		return binary.NativeEndian.Uint64(b), nil
	case typeFloat64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b)), nil
	case typeFloat32:
		return math.Float32frombits(binary.NativeEndian.Uint32(b)), nil
	}
	return b[0], nil
}

// FilterOptionValue returns a filter option as T, which must be the
// option's type.
func FilterOptionValue[T any](f *Filter, opt FilterOption) (T, error) {
	var zero T
	v, err := f.Option(opt)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Path(opt.String()).
			GoType(reflect.TypeFor[T]().String()).
			Detail("filter option takes %T", v).
			Build()
	}
	return out, nil
}

// FilterList is an ordered filter pipeline. Filters run in order on write
// and in reverse on read.
type FilterList struct {
	ctx *Context
	h   *resource.Handle[capi.FilterList]
}

func NewFilterList(ctx *Context) (*FilterList, error) {
	var p capi.FilterList
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.FilterListAlloc(c, &p) }); err != nil {
		return nil, err
	}
	return newFilterList(ctx, p)
}

func newFilterList(ctx *Context, p capi.FilterList) (*FilterList, error) {
	h, err := own(p, capi.FilterListFree)
	if err != nil {
		return nil, err
	}
	return &FilterList{ctx: ctx, h: h}, nil
}

func (l *FilterList) Free() {
	l.h.Free()
}

// AddFilter appends a copy of f.
func (l *FilterList) AddFilter(f *Filter) error {
	if f == nil {
		return nilArg("filter")
	}
	return callArg(l.ctx, l.h, f.h, capi.FilterListAddFilter)
}

func (l *FilterList) NFilters() (uint32, error) {
	var n uint32
	err := call(l.ctx, l.h, func(c capi.Ctx, p capi.FilterList) capi.Status { return capi.FilterListGetNFilters(c, p, &n) })
	return n, err
}

// FilterFromIndex returns a copy of the filter at idx.
func (l *FilterList) FilterFromIndex(idx uint32) (*Filter, error) {
	var f capi.Filter
	if err := call(l.ctx, l.h, func(c capi.Ctx, p capi.FilterList) capi.Status {
		return capi.FilterListGetFilterFromIndex(c, p, idx, &f)
	}); err != nil {
		return nil, err
	}
	return newFilter(l.ctx, f)
}

// SetMaxChunkSize bounds the size of the chunks a tile is split into before
// filtering.
func (l *FilterList) SetMaxChunkSize(size uint32) error {
	return call(l.ctx, l.h, func(c capi.Ctx, p capi.FilterList) capi.Status {
		return capi.FilterListSetMaxChunkSize(c, p, size)
	})
}

func (l *FilterList) MaxChunkSize() (uint32, error) {
	var size uint32
	err := call(l.ctx, l.h, func(c capi.Ctx, p capi.FilterList) capi.Status {
		return capi.FilterListGetMaxChunkSize(c, p, &size)
	})
	return size, err
}
