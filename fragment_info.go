package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// FragmentInfo describes the fragments of an array. Load must be called
// before any getter.
type FragmentInfo struct {
	ctx *Context
	uri string
	h   *resource.Handle[capi.FragmentInfo]
}

func NewFragmentInfo(ctx *Context, uri string) (*FragmentInfo, error) {
	var p capi.FragmentInfo
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.FragmentInfoAlloc(c, uri, &p) }); err != nil {
		return nil, err
	}
	h, err := own(p, capi.FragmentInfoFree)
	if err != nil {
		return nil, err
	}
	return &FragmentInfo{ctx: ctx, uri: uri, h: h}, nil
}

func (fi *FragmentInfo) Free() {
	fi.h.Free()
}

func (fi *FragmentInfo) call(fn func(capi.Ctx, capi.FragmentInfo) capi.Status) error {
	return call(fi.ctx, fi.h, fn)
}

func (fi *FragmentInfo) SetConfig(cfg *Config) error {
	if cfg == nil {
		return nilArg("config")
	}
	return callArg(fi.ctx, fi.h, cfg.h, capi.FragmentInfoSetConfig)
}

func (fi *FragmentInfo) Config() (*Config, error) {
	var cfg capi.Config
	if err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status {
		return capi.FragmentInfoGetConfig(c, p, &cfg)
	}); err != nil {
		return nil, err
	}
	return newConfig(cfg)
}

// Load reads the fragment list of the array.
func (fi *FragmentInfo) Load() error {
	return fi.call(capi.FragmentInfoLoad)
}

func (fi *FragmentInfo) FragmentNum() (uint32, error) {
	var n uint32
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetFragmentNum(c, p, &n) })
	return n, err
}

// TotalCellNum sums the cell counts of all fragments.
func (fi *FragmentInfo) TotalCellNum() (uint64, error) {
	var n uint64
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetTotalCellNum(c, p, &n) })
	return n, err
}

func (fi *FragmentInfo) FragmentURI(fid uint32) (string, error) {
	var s string
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetFragmentURI(c, p, fid, &s) })
	return s, err
}

func (fi *FragmentInfo) FragmentName(fid uint32) (string, error) {
	var s string
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetFragmentName(c, p, fid, &s) })
	return s, err
}

func (fi *FragmentInfo) IsDense(fid uint32) (bool, error) {
	var b bool
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetDense(c, p, fid, &b) })
	return b, err
}

func (fi *FragmentInfo) IsSparse(fid uint32) (bool, error) {
	var b bool
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetSparse(c, p, fid, &b) })
	return b, err
}

func (fi *FragmentInfo) TimestampRange(fid uint32) (start, end uint64, err error) {
	err = fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status {
		return capi.FragmentInfoGetTimestampRange(c, p, fid, &start, &end)
	})
	return start, end, err
}

func (fi *FragmentInfo) CellNum(fid uint32) (uint64, error) {
	var n uint64
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetCellNum(c, p, fid, &n) })
	return n, err
}

// FragmentSize returns the bytes fragment fid occupies on storage.
func (fi *FragmentInfo) FragmentSize(fid uint32) (uint64, error) {
	var n uint64
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetFragmentSize(c, p, fid, &n) })
	return n, err
}

func (fi *FragmentInfo) Version(fid uint32) (uint32, error) {
	var v uint32
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoGetVersion(c, p, fid, &v) })
	return v, err
}

func (fi *FragmentInfo) ArraySchemaName(fid uint32) (string, error) {
	var s string
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status {
		return capi.FragmentInfoGetArraySchemaName(c, p, fid, &s)
	})
	return s, err
}

func (fi *FragmentInfo) Dump() (string, error) {
	var s string
	err := fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status { return capi.FragmentInfoDumpStr(c, p, &s) })
	return s, err
}

// dimensionType reads the datatype of a dimension from the array's
// current schema.
func (fi *FragmentInfo) dimensionType(name string, idx uint32) (Datatype, error) {
	schema, err := LoadArraySchema(fi.ctx, fi.uri)
	if err != nil {
		return 0, err
	}
	defer schema.Free()
	dom, err := schema.Domain()
	if err != nil {
		return 0, err
	}
	defer dom.Free()
	var dim *Dimension
	if name != "" {
		dim, err = dom.DimensionFromName(name)
	} else {
		dim, err = dom.Dimension(idx)
	}
	if err != nil {
		return 0, err
	}
	defer dim.Free()
	return dim.Type()
}

// FragmentNonEmptyDomain returns the bounds fragment fid covers on
// dimension did.
func FragmentNonEmptyDomain[T Scalar](fi *FragmentInfo, fid, did uint32) (Range[T], error) {
	dt, err := fi.dimensionType("", did)
	if err != nil {
		return Range[T]{}, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), "domain"); err != nil {
		return Range[T]{}, err
	}
	buf := make([]T, 2)
	err = fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status {
		return capi.FragmentInfoGetNonEmptyDomainFromIndex(c, p, fid, did, view(buf))
	})
	return Range[T]{Start: buf[0], End: buf[1]}, err
}

// FragmentNonEmptyDomainFromName is FragmentNonEmptyDomain addressing the
// dimension by name.
func FragmentNonEmptyDomainFromName[T Scalar](fi *FragmentInfo, fid uint32, name string) (Range[T], error) {
	dt, err := fi.dimensionType(name, 0)
	if err != nil {
		return Range[T]{}, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), name); err != nil {
		return Range[T]{}, err
	}
	buf := make([]T, 2)
	err = fi.call(func(c capi.Ctx, p capi.FragmentInfo) capi.Status {
		return capi.FragmentInfoGetNonEmptyDomainFromName(c, p, fid, name, view(buf))
	})
	return Range[T]{Start: buf[0], End: buf[1]}, err
}
