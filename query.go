package tiledb

import (
	"context"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

type fieldInfo struct {
	dt       Datatype
	varSized bool
	nullable bool
}

// Query reads from or writes to an open array through caller buffers.
type Query struct {
	ctx     *Context
	array   *Array
	h       *resource.Handle[capi.Query]
	fields  map[string]fieldInfo
	buffers bufferRegistry
}

// NewQuery creates a query of type qt on arr, which must be open in the
// same mode. The query references ctx and arr; both must outlive it.
func NewQuery(ctx *Context, arr *Array, qt QueryType) (*Query, error) {
	if arr == nil {
		return nil, nilArg("array")
	}
	fields, err := queryFields(arr)
	if err != nil {
		return nil, err
	}
	var p capi.Query
	if err := call(ctx, arr.h, func(c capi.Ctx, a capi.Array) capi.Status {
		return capi.QueryAlloc(c, a, capi.QueryType(qt), &p)
	}); err != nil {
		return nil, err
	}
	q := &Query{ctx: ctx, array: arr, fields: fields}
	h, err := resource.NewHandle(p, func(p capi.Query) {
		capi.QueryFree(&p)
		q.buffers.releaseAll()
	})
	if err != nil {
		return nil, err
	}
	q.h = h
	return q, nil
}

func queryFields(arr *Array) (map[string]fieldInfo, error) {
	schema, err := arr.Schema()
	if err != nil {
		return nil, err
	}
	defer schema.Free()
	fields := make(map[string]fieldInfo)
	attrs, err := schema.Attributes()
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		err := func() error {
			defer a.Free()
			name, err := a.Name()
			if err != nil {
				return err
			}
			var f fieldInfo
			if f.dt, err = a.Type(); err != nil {
				return err
			}
			n, err := a.CellValNum()
			if err != nil {
				return err
			}
			f.varSized = n == VarNum
			if f.nullable, err = a.Nullable(); err != nil {
				return err
			}
			fields[name] = f
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}
	dom, err := schema.Domain()
	if err != nil {
		return nil, err
	}
	defer dom.Free()
	ndim, err := dom.NDim()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < ndim; i++ {
		dim, err := dom.Dimension(i)
		if err != nil {
			return nil, err
		}
		name, err := dim.Name()
		var f fieldInfo
		if err == nil {
			f.dt, err = dim.Type()
		}
		var n uint32
		if err == nil {
			n, err = dim.CellValNum()
		}
		dim.Free()
		if err != nil {
			return nil, err
		}
		f.varSized = n == VarNum
		fields[name] = f
	}
	return fields, nil
}

// Free releases the query and unpins every buffer registered with it.
func (q *Query) Free() {
	q.h.Free()
}

func (q *Query) call(fn func(capi.Ctx, capi.Query) capi.Status) error {
	return call(q.ctx, q.h, fn)
}

// Array returns the array the query runs on.
func (q *Query) Array() *Array {
	return q.array
}

func (q *Query) field(name string) (fieldInfo, error) {
	f, ok := q.fields[name]
	if !ok {
		return fieldInfo{}, errors.NotFound(errors.PhaseValidate, "field", name)
	}
	return f, nil
}

// register hands pb to the engine with set and records it under name. A
// buffer the engine rejects is unpinned before the error is returned.
func (q *Query) register(kind registryKind, name string, pb *pinnedBuffer, set func(capi.Ctx, capi.Query) capi.Status) error {
	q.buffers.track()
	if err := q.call(set); err != nil {
		q.buffers.drop(pb)
		return err
	}
	q.buffers.swap(kind, name, pb)
	return nil
}

// SetDataBuffer binds buf as the data buffer of the named attribute or
// dimension. T must match the field's datatype; character fields take bytes.
// For reads the buffer's length is its capacity; for writes every element
// is written. buf stays pinned until it is replaced or the query is freed.
func SetDataBuffer[T Scalar](q *Query, name string, buf []T) error {
	f, err := q.field(name)
	if err != nil {
		return err
	}
	if err := checkElemType(f.dt, reflect.TypeFor[T](), name); err != nil {
		return err
	}
	if len(buf) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "data buffer for %q is empty", name)
	}
	pb := pinSlice(buf)
	return q.register(dataBuffers, name, pb, func(c capi.Ctx, p capi.Query) capi.Status {
		return capi.QuerySetDataBuffer(c, p, name, pb.bytes, pb.size)
	})
}

// SetDataBufferUnsafe binds raw bytes without checking the field's
// datatype. Element counts are not available for such buffers.
func (q *Query) SetDataBufferUnsafe(name string, buf []byte) error {
	if len(buf) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "data buffer for %q is empty", name)
	}
	pb := pinBytes(buf)
	return q.register(dataBuffers, name, pb, func(c capi.Ctx, p capi.Query) capi.Status {
		return capi.QuerySetDataBuffer(c, p, name, pb.bytes, pb.size)
	})
}

// SetOffsetsBuffer binds the byte offsets of a variable-sized field.
func (q *Query) SetOffsetsBuffer(name string, offsets []uint64) error {
	if _, err := q.field(name); err != nil {
		return err
	}
	if len(offsets) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "offsets buffer for %q is empty", name)
	}
	pb := pinSlice(offsets)
	return q.register(offsetsBuffers, name, pb, func(c capi.Ctx, p capi.Query) capi.Status {
		return capi.QuerySetOffsetsBuffer(c, p, name, offsets, pb.size)
	})
}

// SetValidityBuffer binds the validity bytes of a nullable attribute; 0
// marks a null cell.
func (q *Query) SetValidityBuffer(name string, validity []uint8) error {
	if _, err := q.field(name); err != nil {
		return err
	}
	if len(validity) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "validity buffer for %q is empty", name)
	}
	pb := pinSlice(validity)
	return q.register(validityBuffers, name, pb, func(c capi.Ctx, p capi.Query) capi.Status {
		return capi.QuerySetValidityBuffer(c, p, name, pb.bytes, pb.size)
	})
}

func (q *Query) registered(kind registryKind, name string) (*pinnedBuffer, error) {
	pb := q.buffers.lookup(kind, name)
	if pb == nil {
		return nil, errors.NotFound(errors.PhaseValidate, registryNames[kind]+" buffer", name)
	}
	return pb, nil
}

// ResultDataBytes returns the number of bytes the last submit used in the
// data buffer of name.
func (q *Query) ResultDataBytes(name string) (uint64, error) {
	pb, err := q.registered(dataBuffers, name)
	if err != nil {
		return 0, err
	}
	return pb.used(), nil
}

// ResultDataElements returns the number of elements the last submit used in
// the data buffer of name.
func (q *Query) ResultDataElements(name string) (uint64, error) {
	pb, err := q.registered(dataBuffers, name)
	if err != nil {
		return 0, err
	}
	if pb.elemSize == 0 {
		return 0, errors.Unsupported(errors.PhaseValidate, "element count of "+name+" is unknown for a raw data buffer")
	}
	return pb.used() / pb.elemSize, nil
}

// ResultOffsetsNum returns the number of offsets the last submit produced
// for name, which is the number of cells.
func (q *Query) ResultOffsetsNum(name string) (uint64, error) {
	pb, err := q.registered(offsetsBuffers, name)
	if err != nil {
		return 0, err
	}
	return pb.used() / 8, nil
}

// ResultValidityNum returns the number of validity values the last submit
// produced for name.
func (q *Query) ResultValidityNum(name string) (uint64, error) {
	pb, err := q.registered(validityBuffers, name)
	if err != nil {
		return 0, err
	}
	return pb.used(), nil
}

// ResultBufferElements returns, per field with a buffer, the number of
// offsets, data elements and validity values of the last submit. Raw data
// buffers report bytes.
func (q *Query) ResultBufferElements() (map[string][3]uint64, error) {
	names := q.buffers.names()
	sort.Strings(names)
	out := make(map[string][3]uint64, len(names))
	for _, name := range names {
		var r [3]uint64
		if pb := q.buffers.lookup(offsetsBuffers, name); pb != nil {
			r[0] = pb.used() / 8
		}
		if pb := q.buffers.lookup(dataBuffers, name); pb != nil {
			r[1] = pb.used()
			if pb.elemSize > 0 {
				r[1] /= pb.elemSize
			}
		}
		if pb := q.buffers.lookup(validityBuffers, name); pb != nil {
			r[2] = pb.used()
		}
		out[name] = r
	}
	return out, nil
}

// SetLayout sets the order of cells in the buffers.
func (q *Query) SetLayout(l Layout) error {
	return q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QuerySetLayout(c, p, capi.Layout(l)) })
}

func (q *Query) Layout() (Layout, error) {
	var l capi.Layout
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetLayout(c, p, &l) })
	return Layout(l), err
}

func (q *Query) Type() (QueryType, error) {
	var qt capi.QueryType
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetType(c, p, &qt) })
	return QueryType(qt), err
}

// SetSubarray restricts the query to the ranges of s. The ranges are
// copied.
func (q *Query) SetSubarray(s *Subarray) error {
	if s == nil {
		return nilArg("subarray")
	}
	return callArg(q.ctx, q.h, s.h, capi.QuerySetSubarrayT)
}

// Subarray returns a copy of the query's ranges.
func (q *Query) Subarray() (*Subarray, error) {
	var s capi.Subarray
	if err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetSubarrayT(c, p, &s) }); err != nil {
		return nil, err
	}
	return newSubarray(q.ctx, q.array, s)
}

// SetConfig overrides the context config for this query. It must be called
// before the first submit.
func (q *Query) SetConfig(cfg *Config) error {
	if cfg == nil {
		return nilArg("config")
	}
	return callArg(q.ctx, q.h, cfg.h, capi.QuerySetConfig)
}

func (q *Query) Config() (*Config, error) {
	var cfg capi.Config
	if err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetConfig(c, p, &cfg) }); err != nil {
		return nil, err
	}
	return newConfig(cfg)
}

// Submit runs the query. A read that does not fit its buffers ends
// QueryIncomplete; submit again after consuming the results.
func (q *Query) Submit() error {
	if err := q.call(capi.QuerySubmit); err != nil {
		return err
	}
	q.buffers.normalizeBools()
	return nil
}

// SubmitAsync runs Submit on another goroutine and waits for it or for ctx.
// When ctx ends first its error is returned while the engine call keeps
// running; the buffers stay pinned until the query is freed.
func (q *Query) SubmitAsync(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- q.Submit()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		Logger().Debug("async submit abandoned", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Finalize flushes a global-order write. Other queries need no finalize.
func (q *Query) Finalize() error {
	return q.call(capi.QueryFinalize)
}

// SubmitAndFinalize submits the last batch of a global-order write and
// finalizes it.
func (q *Query) SubmitAndFinalize() error {
	return q.call(capi.QuerySubmitAndFinalize)
}

func (q *Query) Status() (QueryStatus, error) {
	var st capi.QueryStatus
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetStatus(c, p, &st) })
	return QueryStatus(st), err
}

// StatusDetails explains an incomplete status.
func (q *Query) StatusDetails() (StatusReason, error) {
	var r capi.StatusReason
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetStatusDetails(c, p, &r) })
	return StatusReason(r), err
}

// HasResults reports whether the last submit produced any cells.
func (q *Query) HasResults() (bool, error) {
	var has bool
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryHasResults(c, p, &has) })
	return has, err
}

// EstimatedSize is the buffer space, in bytes, a read needs for one field.
type EstimatedSize struct {
	Data     uint64
	Offsets  uint64
	Validity uint64
}

// EstResultSize estimates the buffer sizes a read of name needs.
func (q *Query) EstResultSize(name string) (EstimatedSize, error) {
	f, err := q.field(name)
	if err != nil {
		return EstimatedSize{}, err
	}
	var est EstimatedSize
	err = q.call(func(c capi.Ctx, p capi.Query) capi.Status {
		switch {
		case f.varSized && f.nullable:
			return capi.QueryGetEstResultSizeVarNullable(c, p, name, &est.Offsets, &est.Data, &est.Validity)
		case f.varSized:
			return capi.QueryGetEstResultSizeVar(c, p, name, &est.Offsets, &est.Data)
		case f.nullable:
			return capi.QueryGetEstResultSizeNullable(c, p, name, &est.Data, &est.Validity)
		}
		return capi.QueryGetEstResultSize(c, p, name, &est.Data)
	})
	return est, err
}

// FragmentNum returns the number of fragments a write query produced.
func (q *Query) FragmentNum() (uint32, error) {
	var n uint32
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetFragmentNum(c, p, &n) })
	return n, err
}

func (q *Query) FragmentURI(idx uint32) (string, error) {
	var uri string
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetFragmentURI(c, p, idx, &uri) })
	return uri, err
}

func (q *Query) FragmentTimestampRange(idx uint32) (t1, t2 uint64, err error) {
	err = q.call(func(c capi.Ctx, p capi.Query) capi.Status {
		return capi.QueryGetFragmentTimestampRange(c, p, idx, &t1, &t2)
	})
	return t1, t2, err
}

// Stats returns the query's engine counters as JSON.
func (q *Query) Stats() (string, error) {
	var s string
	err := q.call(func(c capi.Ctx, p capi.Query) capi.Status { return capi.QueryGetStats(c, p, &s) })
	return s, err
}
