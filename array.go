package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// Array is a handle to an array at a URI. It starts unopened; Open moves it
// into read, write or delete mode and Close back out.
type Array struct {
	metaStore
	ctx *Context
	h   *resource.Handle[capi.Array]
}

// NewArray allocates a handle for the array at uri. Nothing is read until
// Open.
func NewArray(ctx *Context, uri string) (*Array, error) {
	var p capi.Array
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.ArrayAlloc(c, uri, &p) }); err != nil {
		return nil, err
	}
	h, err := own(p, capi.ArrayFree)
	if err != nil {
		return nil, err
	}
	a := &Array{ctx: ctx, h: h}
	a.metaStore = arrayMetadata(a)
	return a, nil
}

// Free releases the handle. An open array is closed first.
func (a *Array) Free() {
	a.h.Free()
}

func (a *Array) call(fn func(capi.Ctx, capi.Array) capi.Status) error {
	return call(a.ctx, a.h, fn)
}

// Create writes schema as a new array at the handle's URI.
func (a *Array) Create(schema *ArraySchema) error {
	if schema == nil {
		return nilArg("schema")
	}
	uri, err := a.URI()
	if err != nil {
		return err
	}
	return callArg(a.ctx, a.h, schema.h, func(c capi.Ctx, _ capi.Array, s capi.ArraySchema) capi.Status {
		return capi.ArrayCreate(c, uri, s)
	})
}

// Open opens the array in the given mode at its open timestamp window.
func (a *Array) Open(mode QueryType) error {
	return a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArrayOpen(c, p, capi.QueryType(mode))
	})
}

// Close closes the array. Metadata changes and pending global-order writes
// made while open for write are persisted. Closing a closed array is a
// no-op.
func (a *Array) Close() error {
	return a.call(capi.ArrayClose)
}

// Reopen refreshes an array open for reading so that it sees fragments
// written since it was opened.
func (a *Array) Reopen() error {
	return a.call(capi.ArrayReopen)
}

func (a *Array) IsOpen() (bool, error) {
	var open bool
	err := a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayIsOpen(c, p, &open) })
	return open, err
}

// SetOpenTimestampStart sets the start of the timestamp window, in
// milliseconds since the epoch, used by the next Open.
func (a *Array) SetOpenTimestampStart(ts uint64) error {
	return a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArraySetOpenTimestampStart(c, p, ts)
	})
}

// SetOpenTimestampEnd sets the end of the timestamp window used by the next
// Open. Fragments written after it are invisible.
func (a *Array) SetOpenTimestampEnd(ts uint64) error {
	return a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArraySetOpenTimestampEnd(c, p, ts)
	})
}

func (a *Array) OpenTimestampStart() (uint64, error) {
	var ts uint64
	err := a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArrayGetOpenTimestampStart(c, p, &ts)
	})
	return ts, err
}

func (a *Array) OpenTimestampEnd() (uint64, error) {
	var ts uint64
	err := a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArrayGetOpenTimestampEnd(c, p, &ts)
	})
	return ts, err
}

// QueryType returns the mode the array is open in.
func (a *Array) QueryType() (QueryType, error) {
	var qt capi.QueryType
	err := a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetQueryType(c, p, &qt) })
	return QueryType(qt), err
}

// Schema returns the schema of the open array.
func (a *Array) Schema() (*ArraySchema, error) {
	var s capi.ArraySchema
	if err := a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetSchema(c, p, &s) }); err != nil {
		return nil, err
	}
	return newArraySchema(a.ctx, s)
}

func (a *Array) URI() (string, error) {
	var uri string
	err := a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetURI(c, p, &uri) })
	return uri, err
}

// SetConfig replaces the config the array is opened with.
func (a *Array) SetConfig(cfg *Config) error {
	if cfg == nil {
		return nilArg("config")
	}
	return callArg(a.ctx, a.h, cfg.h, capi.ArraySetConfig)
}

func (a *Array) Config() (*Config, error) {
	var cfg capi.Config
	if err := a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetConfig(c, p, &cfg) }); err != nil {
		return nil, err
	}
	return newConfig(cfg)
}

// DimensionBounds is the non-empty domain of one dimension. Bounds hold
// values of the dimension's Go type.
type DimensionBounds struct {
	Name   string
	Type   Datatype
	Lo, Hi any
}

// NonEmptyDomain returns the bounding box of the data written to the array,
// one entry per dimension. isEmpty is true when nothing was written.
func (a *Array) NonEmptyDomain() (bounds []DimensionBounds, isEmpty bool, err error) {
	schema, err := a.Schema()
	if err != nil {
		return nil, false, err
	}
	defer schema.Free()
	dom, err := schema.Domain()
	if err != nil {
		return nil, false, err
	}
	defer dom.Free()
	n, err := dom.NDim()
	if err != nil {
		return nil, false, err
	}
	for i := uint32(0); i < n; i++ {
		dim, err := dom.Dimension(i)
		if err != nil {
			return nil, false, err
		}
		name, err := dim.Name()
		if err == nil {
			var dt Datatype
			if dt, err = dim.Type(); err == nil {
				buf := make([]byte, 2*dt.Size())
				err = a.call(func(c capi.Ctx, p capi.Array) capi.Status {
					return capi.ArrayGetNonEmptyDomainFromIndex(c, p, i, buf, &isEmpty)
				})
				if err == nil && !isEmpty {
					b := DimensionBounds{Name: name, Type: dt}
					b.Lo, b.Hi, err = decodePair(dt, buf)
					bounds = append(bounds, b)
				}
			}
		}
		dim.Free()
		if err != nil {
			return nil, false, err
		}
		if isEmpty {
			return nil, true, nil
		}
	}
	return bounds, false, nil
}

// dimensionType looks up the datatype of a dimension by name, or by index
// when name is empty.
func (a *Array) dimensionType(name string, idx uint32) (Datatype, error) {
	schema, err := a.Schema()
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

// NonEmptyDomainFromIndex returns the non-empty domain of dimension idx.
func NonEmptyDomainFromIndex[T Scalar](a *Array, idx uint32) (r Range[T], isEmpty bool, err error) {
	dt, err := a.dimensionType("", idx)
	if err != nil {
		return r, false, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), "domain"); err != nil {
		return r, false, err
	}
	buf := make([]T, 2)
	err = a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArrayGetNonEmptyDomainFromIndex(c, p, idx, view(buf), &isEmpty)
	})
	return Range[T]{Start: buf[0], End: buf[1]}, isEmpty, err
}

// NonEmptyDomainFromName returns the non-empty domain of the named
// dimension.
func NonEmptyDomainFromName[T Scalar](a *Array, name string) (r Range[T], isEmpty bool, err error) {
	dt, err := a.dimensionType(name, 0)
	if err != nil {
		return r, false, err
	}
	if err := checkElemType(dt, reflect.TypeFor[T](), name); err != nil {
		return r, false, err
	}
	buf := make([]T, 2)
	err = a.call(func(c capi.Ctx, p capi.Array) capi.Status {
		return capi.ArrayGetNonEmptyDomainFromName(c, p, name, view(buf), &isEmpty)
	})
	return Range[T]{Start: buf[0], End: buf[1]}, isEmpty, err
}

// DeleteArray removes the array at uri with all its fragments.
func DeleteArray(ctx *Context, uri string) error {
	return ctx.do(func(c capi.Ctx) capi.Status { return capi.ArrayDelete(c, uri) })
}

// DeleteFragments removes the fragments of the array at uri written within
// [start, end].
func DeleteFragments(ctx *Context, uri string, start, end uint64) error {
	return ctx.do(func(c capi.Ctx) capi.Status { return capi.ArrayDeleteFragments(c, uri, start, end) })
}
