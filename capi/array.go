package capi

import (
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

type arrayObj struct {
	uri  string
	cfg  *configObj
	open bool
	mode QueryType

	// Requested window for the next open. tEnd 0 means "now".
	tStart uint64
	tEnd   uint64

	openStart uint64
	openEnd   uint64
	schema    *format.Schema
	fragments []*format.Fragment
	meta      metaStore

	// writers holds global-order write queries not yet finalized.
	writers []*queryObj
}

func ArrayAlloc(ctx Ctx, uri string, arr *Array) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		return put(kindArray, &arrayObj{uri: uri, meta: metaStore{owner: "Array"}}, arr)
	})
}

// ArrayFree releases the array. An open array is closed first; failures of
// that close are logged.
func ArrayFree(arr *Array) {
	if arr == nil {
		return
	}
	if a, err := arr.obj(); err == nil && a.open {
		if err := a.close(nil); err != nil {
			Logger().Warn("closing array on free failed", zap.String("uri", a.uri), zap.Error(err))
		}
	}
	drop(kindArray, arr)
}

func withArray(ctx Ctx, arr Array, fn func(c *ctxObj, a *arrayObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		a, err := arr.obj()
		if err != nil {
			return err
		}
		return fn(c, a)
	})
}

func (a *arrayObj) requireOpen(what string) error {
	if !a.open {
		return errors.InvalidState(errors.PhaseNative, "Cannot %s; Array is not open", what)
	}
	return nil
}

func (a *arrayObj) requireMode(what string, mode QueryType) error {
	if err := a.requireOpen(what); err != nil {
		return err
	}
	if a.mode != mode {
		return errors.InvalidState(errors.PhaseNative, "Cannot %s; Array was not opened in %s mode", what, queryTypeName(mode))
	}
	return nil
}

// writeTimestamp is the timestamp given to fragments and metadata written
// through the array.
func (a *arrayObj) writeTimestamp() uint64 {
	if a.tEnd != 0 {
		return a.tEnd
	}
	return format.Now()
}

func (a *arrayObj) config(c *ctxObj) *configObj {
	if a.cfg != nil {
		return a.cfg
	}
	return c.cfg
}

// ArrayCreate creates an empty array at uri with the given schema.
func ArrayCreate(ctx Ctx, uri string, schema ArraySchema) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		so, err := schema.obj()
		if err != nil {
			return err
		}
		if err := checkURI(uri); err != nil {
			return err
		}
		if err := so.s.Check(); err != nil {
			return err
		}
		if format.ObjectType(c.vfs, uri) != format.ObjectInvalid {
			return errors.InvalidState(errors.PhaseNative, "Cannot create array; Array '%s' already exists", uri)
		}
		for _, dir := range []string{format.FragmentsDir, format.MetaDir} {
			if err := c.vfs.MkdirAll(storage.Join(uri, dir)); err != nil {
				return err
			}
		}
		name, err := format.WriteSchema(c.vfs, uri, so.s, format.Now())
		if err != nil {
			return err
		}
		c.log.Info("array created", zap.String("uri", uri), zap.String("schema", name))
		return nil
	})
}

func (a *arrayObj) load(c *ctxObj) error {
	a.openStart = a.tStart
	a.openEnd = a.tEnd
	if a.openEnd == 0 {
		a.openEnd = format.Now()
	}
	s, err := format.LoadSchema(c.vfs, a.uri, a.openEnd)
	if err != nil {
		return err
	}
	a.schema = s
	a.fragments = nil
	if a.mode != QueryTypeRead {
		return nil
	}
	if a.fragments, err = format.ListFragments(c.vfs, a.uri, a.openStart, a.openEnd); err != nil {
		return err
	}
	return a.meta.load(c.vfs, a.uri, a.openStart, a.openEnd)
}

func ArrayOpen(ctx Ctx, arr Array, mode QueryType) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if a.open {
			return errors.InvalidState(errors.PhaseNative, "Cannot open array; Array already open")
		}
		if mode > QueryTypeModifyExclusive {
			return errors.InvalidInput(errors.PhaseNative, "Cannot open array; Invalid query type %d", mode)
		}
		if !format.IsArray(c.vfs, a.uri) {
			return errors.NotFound(errors.PhaseNative, "Cannot open array; array", a.uri)
		}
		if a.tEnd != 0 && a.tStart > a.tEnd {
			return errors.InvalidInput(errors.PhaseNative, "Cannot open array; Timestamp start %d is after timestamp end %d", a.tStart, a.tEnd)
		}
		a.mode = mode
		if err := a.load(c); err != nil {
			return err
		}
		a.open = true
		c.log.Debug("array opened",
			zap.String("uri", a.uri),
			zap.String("mode", queryTypeName(mode)),
			zap.Int("fragments", len(a.fragments)),
			zap.Uint64("timestamp_end", a.openEnd))
		return nil
	})
}

// close finalizes pending global-order writes and flushes metadata. c may
// be nil when the array is freed without a context; pending writes are then
// finalized with default settings.
func (a *arrayObj) close(c *ctxObj) error {
	if !a.open {
		return nil
	}
	if c == nil {
		c = newCtx(newConfig())
		defer c.cancel()
	}
	var err error
	writers := a.writers
	a.writers = nil
	for _, q := range writers {
		err = multierr.Append(err, q.finalize(c))
	}
	if a.mode == QueryTypeWrite {
		err = multierr.Append(err, a.meta.flush(c.vfs, a.uri, a.writeTimestamp()))
	}
	a.open = false
	a.schema = nil
	a.fragments = nil
	a.meta.entries = nil
	a.meta.pending = nil
	return err
}

// ArrayClose closes the array. Closing an array that is not open is a no-op.
func ArrayClose(ctx Ctx, arr Array) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		return a.close(c)
	})
}

// ArrayReopen reloads an array open for reading, picking up fragments and
// metadata written since it was opened.
func ArrayReopen(ctx Ctx, arr Array) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("reopen array"); err != nil {
			return err
		}
		if a.mode != QueryTypeRead {
			return errors.InvalidState(errors.PhaseNative, "Cannot reopen array; Array was not opened in read mode")
		}
		return a.load(c)
	})
}

func ArrayIsOpen(ctx Ctx, arr Array, open *bool) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		*open = a.open
		return nil
	})
}

// ArraySetOpenTimestampStart sets the start of the window used by the next
// open or reopen.
func ArraySetOpenTimestampStart(ctx Ctx, arr Array, ts uint64) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		a.tStart = ts
		return nil
	})
}

// ArraySetOpenTimestampEnd sets the end of the window used by the next open
// or reopen. Writes through the array are stamped with it.
func ArraySetOpenTimestampEnd(ctx Ctx, arr Array, ts uint64) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if ts == math.MaxUint64 {
			ts = 0
		}
		a.tEnd = ts
		return nil
	})
}

func ArrayGetOpenTimestampStart(ctx Ctx, arr Array, ts *uint64) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		*ts = a.tStart
		if a.open {
			*ts = a.openStart
		}
		return nil
	})
}

// ArrayGetOpenTimestampEnd returns the effective end of the open window, or
// the requested end when the array is closed (max uint64 for "now").
func ArrayGetOpenTimestampEnd(ctx Ctx, arr Array, ts *uint64) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		switch {
		case a.open:
			*ts = a.openEnd
		case a.tEnd == 0:
			*ts = math.MaxUint64
		default:
			*ts = a.tEnd
		}
		return nil
	})
}

func ArrayGetQueryType(ctx Ctx, arr Array, mode *QueryType) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("get query type"); err != nil {
			return err
		}
		*mode = a.mode
		return nil
	})
}

// ArrayGetSchema returns a copy of the schema the array was opened with.
func ArrayGetSchema(ctx Ctx, arr Array, schema *ArraySchema) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("get array schema"); err != nil {
			return err
		}
		return put(kindSchema, &schemaObj{s: a.schema.Clone()}, schema)
	})
}

func ArrayGetURI(ctx Ctx, arr Array, uri *string) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		*uri = a.uri
		return nil
	})
}

func ArraySetConfig(ctx Ctx, arr Array, cfg Config) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		co, err := cfg.obj()
		if err != nil {
			return err
		}
		if a.open {
			return errors.InvalidState(errors.PhaseNative, "Cannot set config; Array is open")
		}
		a.cfg = co.clone()
		return nil
	})
}

// ArrayGetConfig returns a copy of the array's config, falling back to the
// context's.
func ArrayGetConfig(ctx Ctx, arr Array, cfg *Config) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		return put(kindConfig, a.config(c).clone(), cfg)
	})
}

func (a *arrayObj) nonEmpty(idx int, domain []byte, isEmpty *bool) error {
	if err := a.requireMode("get non-empty domain", QueryTypeRead); err != nil {
		return err
	}
	d := a.schema.Dimensions[idx]
	n := d.Datatype.Size()
	if len(domain) < 2*n {
		return errors.InvalidInput(errors.PhaseNative, "Cannot get non-empty domain; Output buffer holds %d bytes, need %d", len(domain), 2*n)
	}
	lo, hi, ok := format.FragmentRange(a.fragments, idx, d.Datatype)
	*isEmpty = !ok
	if ok {
		copy(domain, lo)
		copy(domain[n:], hi)
	}
	return nil
}

// ArrayGetNonEmptyDomainFromIndex writes the lower and upper bound of the
// written cells of dimension idx into domain.
func ArrayGetNonEmptyDomainFromIndex(ctx Ctx, arr Array, idx uint32, domain []byte, isEmpty *bool) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("get non-empty domain"); err != nil {
			return err
		}
		if int(idx) >= len(a.schema.Dimensions) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"domain"}, int(idx), len(a.schema.Dimensions))
		}
		return a.nonEmpty(int(idx), domain, isEmpty)
	})
}

func ArrayGetNonEmptyDomainFromName(ctx Ctx, arr Array, name string, domain []byte, isEmpty *bool) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireOpen("get non-empty domain"); err != nil {
			return err
		}
		_, idx := a.schema.Dimension(name)
		if idx < 0 {
			return errors.NotFound(errors.PhaseNative, "dimension", name)
		}
		return a.nonEmpty(idx, domain, isEmpty)
	})
}

// ArrayPutMetadata buffers a metadata put; it is persisted on close.
func ArrayPutMetadata(ctx Ctx, arr Array, key string, dt Datatype, num uint32, value []byte) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("put metadata", QueryTypeWrite); err != nil {
			return err
		}
		return a.meta.put(key, dt, num, value)
	})
}

func ArrayDeleteMetadata(ctx Ctx, arr Array, key string) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("delete metadata", QueryTypeWrite); err != nil {
			return err
		}
		return a.meta.remove(key)
	})
}

// ArrayGetMetadata looks up key. A missing key yields a nil value.
func ArrayGetMetadata(ctx Ctx, arr Array, key string, dt *Datatype, num *uint32, value *[]byte) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("get metadata", QueryTypeRead); err != nil {
			return err
		}
		e, ok := a.meta.find(key)
		metaOut(e, ok, dt, num, value)
		return nil
	})
}

func ArrayGetMetadataNum(ctx Ctx, arr Array, n *uint64) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("get metadata number", QueryTypeRead); err != nil {
			return err
		}
		*n = uint64(len(a.meta.entries))
		return nil
	})
}

// ArrayGetMetadataFromIndex returns the idx-th entry in key order.
func ArrayGetMetadataFromIndex(ctx Ctx, arr Array, idx uint64, key *string, dt *Datatype, num *uint32, value *[]byte) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("get metadata", QueryTypeRead); err != nil {
			return err
		}
		e, err := a.meta.at(idx)
		if err != nil {
			return err
		}
		*key = e.Key
		metaOut(e, true, dt, num, value)
		return nil
	})
}

func ArrayHasMetadataKey(ctx Ctx, arr Array, key string, dt *Datatype, has *bool) Status {
	return withArray(ctx, arr, func(c *ctxObj, a *arrayObj) error {
		if err := a.requireMode("check metadata key", QueryTypeRead); err != nil {
			return err
		}
		e, ok := a.meta.find(key)
		*has = ok
		*dt = DatatypeAny
		if ok {
			*dt = e.Datatype
		}
		return nil
	})
}

// ArrayDelete removes the array at uri with all its data.
func ArrayDelete(ctx Ctx, uri string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		if !format.IsArray(c.vfs, uri) {
			return errors.NotFound(errors.PhaseNative, "Cannot delete array; array", uri)
		}
		c.log.Info("array deleted", zap.String("uri", uri))
		return c.vfs.RemoveDir(uri)
	})
}

// ArrayDeleteFragments removes the fragments written in [start, end].
func ArrayDeleteFragments(ctx Ctx, uri string, start, end uint64) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		if !format.IsArray(c.vfs, uri) {
			return errors.NotFound(errors.PhaseNative, "Cannot delete fragments; array", uri)
		}
		n, err := format.DeleteFragments(c.vfs, uri, start, end)
		if err != nil {
			return err
		}
		c.log.Info("fragments deleted", zap.String("uri", uri), zap.Int("count", n))
		return nil
	})
}
