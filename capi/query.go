package capi

import (
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/capi/internal/stats"
	"github.com/wippyai/tiledb-go/errors"
)

// buffer is the caller memory bound to one field. Capacities are recorded
// when the buffer is set; the size cells are read at submit for writes and
// written at submit for reads.
type buffer struct {
	data     []byte
	dataSize *uint64
	dataCap  int

	offsets []uint64
	offSize *uint64
	offCap  int

	validity []uint8
	valSize  *uint64
	valCap   int
}

// field describes a buffer target: an attribute or a dimension.
type field struct {
	name     string
	dim      int
	attr     *format.Attribute
	dt       Datatype
	cellSize int
	nullable bool
}

func (f field) isDim() bool { return f.dim >= 0 }

type queryObj struct {
	array   *arrayObj
	qtype   QueryType
	layout  Layout
	r       *ranges
	buffers map[string]*buffer
	cfg     *configObj
	stats   *stats.Set
	status  QueryStatus
	reason  StatusReason

	result   *resultSet
	cursor   int
	returned int

	pending   *batch
	written   []*format.Fragment
	finalized bool
}

// QueryAlloc creates a query on an array open in the same mode.
func QueryAlloc(ctx Ctx, arr Array, qt QueryType, q *Query) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("create query"); err != nil {
			return err
		}
		if qt != QueryTypeRead && qt != QueryTypeWrite {
			return errors.Unsupported(errors.PhaseNative, "Query: Query type "+queryTypeName(qt)+" is not supported")
		}
		if a.mode != qt {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot create query; Array query type does not match declared query type")
		}
		o := &queryObj{
			array:   a,
			qtype:   qt,
			layout:  LayoutRowMajor,
			r:       newRanges(a.schema),
			buffers: make(map[string]*buffer),
			stats:   stats.New(),
			status:  QueryUninitialized,
		}
		if qt == QueryTypeWrite && a.schema.ArrayType == format.Sparse {
			o.layout = LayoutUnordered
		}
		return put(kindQuery, o, q)
	})
}

// QueryFree releases the query. Unfinalized global-order writes are
// discarded.
func QueryFree(q *Query) {
	if q == nil {
		return
	}
	if o, err := q.obj(); err == nil {
		if o.pending != nil && o.pending.n > 0 && !o.finalized {
			Logger().Warn("discarding unfinalized global order write", zap.String("uri", o.array.uri), zap.Int("cells", o.pending.n))
		}
		o.array.forget(o)
	}
	drop(kindQuery, q)
}

func (a *arrayObj) forget(q *queryObj) {
	for i, w := range a.writers {
		if w == q {
			a.writers = append(a.writers[:i], a.writers[i+1:]...)
			return
		}
	}
}

func withQuery(ctx Ctx, q Query, fn func(c *ctxObj, o *queryObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := q.obj()
		if err != nil {
			return err
		}
		return fn(c, o)
	})
}

func (q *queryObj) param(c *ctxObj, key string) string {
	return layered(c.cfg, key, q.cfg, q.array.cfg)
}

func (q *queryObj) field(name string) (field, error) {
	s := q.array.schema
	if s == nil {
		return field{}, errors.InvalidState(errors.PhaseNative, "Query: Array is not open")
	}
	if a, _ := s.Attribute(name); a != nil {
		return field{name: name, dim: -1, attr: a, dt: a.Datatype, cellSize: a.CellSize(), nullable: a.Nullable}, nil
	}
	if d, i := s.Dimension(name); d != nil {
		return field{name: name, dim: i, dt: d.Datatype, cellSize: d.Datatype.Size()}, nil
	}
	return field{}, errors.NotFound(errors.PhaseNative, "Query: buffer target", name)
}

func (q *queryObj) buffer(name string) *buffer {
	b := q.buffers[name]
	if b == nil {
		b = &buffer{}
		q.buffers[name] = b
	}
	return b
}

// names returns the fields with a data buffer, attributes in schema order
// after dimensions in domain order.
func (q *queryObj) names() []string {
	var out []string
	for _, d := range q.array.schema.Dimensions {
		if b := q.buffers[d.Name]; b != nil && b.dataSize != nil {
			out = append(out, d.Name)
		}
	}
	for _, a := range q.array.schema.Attributes {
		if b := q.buffers[a.Name]; b != nil && b.dataSize != nil {
			out = append(out, a.Name)
		}
	}
	return out
}

func capacity(n int, size *uint64) int {
	if size != nil && *size < uint64(n) {
		return int(*size)
	}
	return n
}

// QuerySetDataBuffer binds data to a field. For reads the capacity is the
// smaller of len(data) and *size at the time of this call.
func QuerySetDataBuffer(ctx Ctx, q Query, name string, data []byte, size *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		if _, err := o.field(name); err != nil {
			return err
		}
		if size == nil {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set buffer for %q; size is nil", name)
		}
		b := o.buffer(name)
		b.data, b.dataSize, b.dataCap = data, size, capacity(len(data), size)
		return nil
	})
}

func QuerySetOffsetsBuffer(ctx Ctx, q Query, name string, offsets []uint64, size *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		f, err := o.field(name)
		if err != nil {
			return err
		}
		if f.cellSize != 0 {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set offsets buffer; %q is fixed-sized", name)
		}
		if size == nil {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set offsets buffer for %q; size is nil", name)
		}
		b := o.buffer(name)
		b.offsets, b.offSize, b.offCap = offsets, size, capacity(8*len(offsets), size)/8
		return nil
	})
}

func QuerySetValidityBuffer(ctx Ctx, q Query, name string, validity []uint8, size *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		f, err := o.field(name)
		if err != nil {
			return err
		}
		if !f.nullable {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set validity buffer; %q is not nullable", name)
		}
		if size == nil {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set validity buffer for %q; size is nil", name)
		}
		b := o.buffer(name)
		b.validity, b.valSize, b.valCap = validity, size, capacity(len(validity), size)
		return nil
	})
}

func QuerySetLayout(ctx Ctx, q Query, l Layout) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		sparse := o.array.schema.ArrayType == format.Sparse
		switch {
		case l > LayoutHilbert:
			return errors.InvalidInput(errors.PhaseNative, "Query: Invalid layout %d", l)
		case l == LayoutHilbert:
			return errors.Unsupported(errors.PhaseNative, "Query: Hilbert is not a valid query layout")
		case o.qtype == QueryTypeWrite && sparse && (l == LayoutRowMajor || l == LayoutColMajor):
			return errors.Unsupported(errors.PhaseNative, "Query: Cannot set layout; Sparse writes support only unordered and global order layouts")
		case o.qtype == QueryTypeWrite && !sparse && l == LayoutUnordered:
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set layout; Unordered writes are only possible for sparse arrays")
		case o.qtype == QueryTypeRead && !sparse && l == LayoutUnordered:
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set layout; Unordered reads are only possible for sparse arrays")
		}
		o.layout = l
		o.result = nil
		return nil
	})
}

func QueryGetLayout(ctx Ctx, q Query, l *Layout) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		*l = o.layout
		return nil
	})
}

func QueryGetType(ctx Ctx, q Query, qt *QueryType) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		*qt = o.qtype
		return nil
	})
}

// QuerySetSubarrayT copies the ranges of sub into the query.
func QuerySetSubarrayT(ctx Ctx, q Query, sub Subarray) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		so, err := sub.obj()
		if err != nil {
			return err
		}
		if o.qtype == QueryTypeWrite && o.array.schema.ArrayType == format.Sparse {
			return errors.Unsupported(errors.PhaseNative, "Query: Cannot set subarray; Setting a subarray is not supported on sparse writes")
		}
		if len(so.r.dims) != len(o.array.schema.Dimensions) {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot set subarray; Subarray belongs to a different array")
		}
		o.r = so.r.clone()
		o.result = nil
		return nil
	})
}

// QueryGetSubarrayT returns a copy of the query's ranges.
func QueryGetSubarrayT(ctx Ctx, q Query, sub *Subarray) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		return put(kindSubarray, &subarrayObj{r: o.r.clone()}, sub)
	})
}

func QuerySetConfig(ctx Ctx, q Query, cfg Config) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		co, err := cfg.obj()
		if err != nil {
			return err
		}
		if o.status != QueryUninitialized {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot set config after submit")
		}
		o.cfg = co.clone()
		return nil
	})
}

func QueryGetConfig(ctx Ctx, q Query, cfg *Config) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		src := o.cfg
		if src == nil {
			src = o.array.config(c)
		}
		return put(kindConfig, src.clone(), cfg)
	})
}

// QuerySubmit runs the query. Reads fill the bound buffers and may end
// incomplete; resubmitting continues where the last submit stopped.
func QuerySubmit(ctx Ctx, q Query) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		return o.run(c, func() error { return o.submit(c) })
	})
}

// QueryFinalize flushes a global-order write. It is a no-op for other
// queries.
func QueryFinalize(ctx Ctx, q Query) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		return o.finalize(c)
	})
}

// QuerySubmitAndFinalize submits and finalizes a global-order write.
func QuerySubmitAndFinalize(ctx Ctx, q Query) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		if o.qtype != QueryTypeWrite || o.layout != LayoutGlobalOrder {
			return errors.InvalidState(errors.PhaseNative, "Query: Call valid only in global order writes")
		}
		return o.run(c, func() error {
			if err := o.submit(c); err != nil {
				return err
			}
			return o.finalize(c)
		})
	})
}

func (q *queryObj) run(c *ctxObj, fn func() error) error {
	if q.status == QueryFailed {
		return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit; query has failed")
	}
	if !q.array.open {
		return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit; Array is not open")
	}
	if err := c.task().Err(); err != nil {
		return errors.Wrap(errors.PhaseNative, errors.KindNative, err, "Query: Cannot submit; tasks were cancelled")
	}
	start := time.Now()
	q.status = QueryInProgress
	q.reason = ReasonNone
	err := fn()
	typ := queryTypeName(q.qtype)
	if err != nil {
		q.status = QueryFailed
		c.sink(q.stats).Query(typ, queryStatusName(q.status), 0, time.Since(start))
		return err
	}
	c.sink(q.stats).Query(typ, queryStatusName(q.status), q.returned, time.Since(start))
	c.log.Debug("query submitted",
		zap.String("uri", q.array.uri),
		zap.String("type", typ),
		zap.String("layout", layoutName(q.layout)),
		zap.String("status", queryStatusName(q.status)),
		zap.Int("cells", q.returned))
	return nil
}

func (q *queryObj) submit(c *ctxObj) error {
	if q.qtype == QueryTypeRead {
		return q.read(c)
	}
	return q.write(c)
}

func QueryGetStatus(ctx Ctx, q Query, st *QueryStatus) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		*st = o.status
		return nil
	})
}

// QueryGetStatusDetails explains an incomplete status.
func QueryGetStatusDetails(ctx Ctx, q Query, reason *StatusReason) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		*reason = o.reason
		return nil
	})
}

// QueryHasResults reports whether the last read submit returned any cells.
func QueryHasResults(ctx Ctx, q Query, has *bool) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		if o.qtype != QueryTypeRead {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot check results; not a read query")
		}
		*has = o.returned > 0
		return nil
	})
}

func (q *queryObj) estimate(c *ctxObj, name string, wantVar, wantNullable bool) (data, offsets, validity uint64, err error) {
	if q.qtype != QueryTypeRead {
		return 0, 0, 0, errors.InvalidState(errors.PhaseNative, "Query: Cannot estimate result size; not a read query")
	}
	f, err := q.field(name)
	if err != nil {
		return 0, 0, 0, err
	}
	if isVar := f.cellSize == 0; isVar != wantVar {
		return 0, 0, 0, errors.InvalidInput(errors.PhaseNative, "Query: Cannot get estimated result size; %q variable-size mismatch", name)
	}
	if f.nullable != wantNullable {
		return 0, 0, 0, errors.InvalidInput(errors.PhaseNative, "Query: Cannot get estimated result size; %q nullable mismatch", name)
	}
	res, err := q.resultFor(c, []string{name})
	if err != nil {
		return 0, 0, 0, err
	}
	col := res.cols[name]
	n := uint64(res.n)
	data = uint64(len(col.Data))
	if wantVar {
		offsets = 8 * n
	}
	if wantNullable {
		validity = n
	}
	return data, offsets, validity, nil
}

func QueryGetEstResultSize(ctx Ctx, q Query, name string, size *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		d, _, _, err := o.estimate(c, name, false, false)
		*size = d
		return err
	})
}

func QueryGetEstResultSizeVar(ctx Ctx, q Query, name string, offSize, dataSize *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		d, off, _, err := o.estimate(c, name, true, false)
		*offSize, *dataSize = off, d
		return err
	})
}

func QueryGetEstResultSizeNullable(ctx Ctx, q Query, name string, size, valSize *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		d, _, v, err := o.estimate(c, name, false, true)
		*size, *valSize = d, v
		return err
	})
}

func QueryGetEstResultSizeVarNullable(ctx Ctx, q Query, name string, offSize, dataSize, valSize *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		d, off, v, err := o.estimate(c, name, true, true)
		*offSize, *dataSize, *valSize = off, d, v
		return err
	})
}

func (q *queryObj) writtenFragment(idx uint32) (*format.Fragment, error) {
	if q.qtype != QueryTypeWrite {
		return nil, errors.InvalidState(errors.PhaseNative, "Query: Cannot get written fragment; not a write query")
	}
	if int(idx) >= len(q.written) {
		return nil, errors.OutOfBounds(errors.PhaseNative, []string{"query", "fragments"}, int(idx), len(q.written))
	}
	return q.written[idx], nil
}

// QueryGetFragmentNum returns the number of fragments a write query created.
func QueryGetFragmentNum(ctx Ctx, q Query, n *uint32) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		if o.qtype != QueryTypeWrite {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot get fragment number; not a write query")
		}
		*n = uint32(len(o.written))
		return nil
	})
}

func QueryGetFragmentURI(ctx Ctx, q Query, idx uint32, uri *string) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		f, err := o.writtenFragment(idx)
		if err != nil {
			return err
		}
		*uri = f.URI
		return nil
	})
}

func QueryGetFragmentTimestampRange(ctx Ctx, q Query, idx uint32, t1, t2 *uint64) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		f, err := o.writtenFragment(idx)
		if err != nil {
			return err
		}
		*t1, *t2 = f.T1, f.T2
		return nil
	})
}

// QueryGetStats renders the query's own counters as JSON.
func QueryGetStats(ctx Ctx, q Query, out *string) Status {
	return withQuery(ctx, q, func(c *ctxObj, o *queryObj) error {
		s, err := o.stats.Dump()
		if err != nil {
			return errors.Wrap(errors.PhaseNative, errors.KindNative, err, "Query: Cannot gather stats")
		}
		*out = s
		return nil
	})
}
