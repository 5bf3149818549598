package capi

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/capi/internal/stats"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

type ctxObj struct {
	cfg   *configObj
	log   *zap.Logger
	stats *stats.Set
	vfs   *storage.VFS

	mu      sync.Mutex
	lastErr error
	tags    map[string]string
	run     context.Context
	cancel  context.CancelFunc
}

func newCtx(cfg *configObj) *ctxObj {
	c := &ctxObj{
		cfg:   cfg,
		stats: stats.New(),
		tags:  map[string]string{"x-tiledb-api-language": "go"},
	}
	c.log = contextLogger(int(cfg.uint("config.logging_level")), cfg.str("config.logging_format"))
	c.vfs = storage.New(cfg.octal("vfs.file.posix_file_permissions"))
	c.run, c.cancel = context.WithCancel(context.Background())
	return c
}

// do records err as the context's last error and returns its status.
func (c *ctxObj) do(err error) Status {
	if err == nil {
		return OK
	}
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.log.Debug("call failed", zap.Error(err))
	return statusOf(err)
}

// task returns the context.Context engine work runs under. CtxCancelTasks
// cancels it and starts a fresh one.
func (c *ctxObj) task() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

func (c *ctxObj) sink(extra ...*stats.Set) stats.Sink {
	return append(stats.Sink{c.stats, stats.Global()}, extra...)
}

// filterOptions returns the pipeline options for tile filtering in
// direction ("read" or "write").
func (c *ctxObj) filterOptions(direction string, extra ...*stats.Set) filter.Options {
	sink := c.sink(extra...)
	return filter.Options{
		Concurrency: int(c.cfg.uint("sm.compute_concurrency_level")),
		OnChunk:     func(raw, filtered int) {
			sink.Chunk(direction, raw, filtered)
		},
	}
}

// withCtx runs fn with the context object and records its error. An invalid
// context yields Err without a retrievable error.
func withCtx(ctx Ctx, fn func(c *ctxObj) error) Status {
	c, err := ctx.obj()
	if err != nil {
		return Err
	}
	return c.do(fn(c))
}

// CtxAlloc creates a context. A null cfg uses the defaults.
func CtxAlloc(cfg Config, ctx *Ctx) Status {
	c := newConfig()
	if cfg != 0 {
		src, err := cfg.obj()
		if err != nil {
			return Err
		}
		c = src.clone()
	}
	if err := put(kindCtx, newCtx(c), ctx); err != nil {
		return statusOf(err)
	}
	return OK
}

func CtxFree(ctx *Ctx) {
	if ctx == nil {
		return
	}
	if c, err := ctx.obj(); err == nil {
		c.cancel()
		_ = c.log.Sync()
	}
	drop(kindCtx, ctx)
}

// CtxGetConfig returns a copy of the context's config.
func CtxGetConfig(ctx Ctx, cfg *Config) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		return put(kindConfig, c.cfg.clone(), cfg)
	})
}

// CtxGetLastError returns the last error recorded on the context, or a null
// error when none was recorded.
func CtxGetLastError(ctx Ctx, e *Error) Status {
	c, err := ctx.obj()
	if err != nil || e == nil {
		return Err
	}
	c.mu.Lock()
	last := c.lastErr
	c.mu.Unlock()
	*e = 0
	if last == nil {
		return OK
	}
	if err := put(kindError, &errorObj{msg: message(last)}, e); err != nil {
		return OOM
	}
	return OK
}

// CtxGetStats renders the context's counters as JSON.
func CtxGetStats(ctx Ctx, out *string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		s, err := c.stats.Dump()
		if err != nil {
			return errors.Wrap(errors.PhaseNative, errors.KindNative, err, "Context: Cannot gather stats")
		}
		*out = s
		return nil
	})
}

func CtxIsSupportedFS(ctx Ctx, fs Filesystem, supported *bool) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		switch fs {
		case FilesystemHDFS, FilesystemS3, FilesystemAzure, FilesystemGCS:
			*supported = false
		case FilesystemMemFS:
			*supported = true
		default:
			return errors.InvalidInput(errors.PhaseNative, "Context: Unknown filesystem %d", fs)
		}
		return nil
	})
}

// CtxCancelTasks cancels running engine work started from the context.
func CtxCancelTasks(ctx Ctx) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		c.mu.Lock()
		c.cancel()
		c.run, c.cancel = context.WithCancel(context.Background())
		c.mu.Unlock()
		c.log.Info("tasks cancelled")
		return nil
	})
}

func CtxSetTag(ctx Ctx, key, value string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if key == "" {
			return errors.InvalidInput(errors.PhaseNative, "Context: Cannot set tag; empty key")
		}
		c.mu.Lock()
		c.tags[key] = value
		c.mu.Unlock()
		return nil
	})
}

// CtxGetTags returns the context's tags as sorted "key=value" pairs.
func CtxGetTags(ctx Ctx, out *[]string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		c.mu.Lock()
		tags := make([]string, 0, len(c.tags))
		for k, v := range c.tags {
			tags = append(tags, k+"="+v)
		}
		c.mu.Unlock()
		sort.Strings(tags)
		*out = tags
		return nil
	})
}

func checkURI(uri string) error {
	if uri == "" {
		return errors.InvalidInput(errors.PhaseNative, "Invalid URI; empty string")
	}
	if !storage.Supported(uri) {
		return errors.Unsupported(errors.PhaseNative, "URI scheme of "+uri+" is not supported")
	}
	return nil
}

// ObjectTypeOf reports whether uri holds an array, a group or neither.
func ObjectTypeOf(ctx Ctx, uri string, t *ObjectType) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		*t = ObjectType(format.ObjectType(c.vfs, uri))
		return nil
	})
}

// ObjectRemove deletes the array or group at uri.
func ObjectRemove(ctx Ctx, uri string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		if format.ObjectType(c.vfs, uri) == format.ObjectInvalid {
			return errors.InvalidInput(errors.PhaseNative, "Cannot remove object; Invalid TileDB object %s", uri)
		}
		c.log.Debug("remove object", zap.String("uri", uri))
		return c.vfs.RemoveDir(uri)
	})
}

// ObjectMove renames the array or group at oldURI.
func ObjectMove(ctx Ctx, oldURI, newURI string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(oldURI); err != nil {
			return err
		}
		if err := checkURI(newURI); err != nil {
			return err
		}
		if format.ObjectType(c.vfs, oldURI) == format.ObjectInvalid {
			return errors.InvalidInput(errors.PhaseNative, "Cannot move object; Invalid TileDB object %s", oldURI)
		}
		if c.vfs.IsDir(newURI) || c.vfs.IsFile(newURI) {
			return errors.InvalidState(errors.PhaseNative, "Cannot move object; %s already exists", newURI)
		}
		return c.vfs.Move(oldURI, newURI)
	})
}

// ObjectCallback receives one object found by ObjectLs or ObjectWalk.
// Returning 1 continues, 0 stops and -1 aborts with an error.
type ObjectCallback func(uri string, t ObjectType) int32

var errStop = errors.InvalidState(errors.PhaseNative, "walk stopped")

func visit(c *ctxObj, uri string, recursive bool, order WalkOrder, cb ObjectCallback) error {
	children, err := c.vfs.List(uri)
	if err != nil {
		return err
	}
	for _, child := range children {
		t := format.ObjectType(c.vfs, child)
		if t == format.ObjectInvalid {
			continue
		}
		call := func() error {
			switch cb(child, ObjectType(t)) {
			case 1:
				return nil
			case 0:
				return errStop
			default:
				return errors.InvalidState(errors.PhaseNative, "Object walk callback failed at %s", child)
			}
		}
		if order == WalkPreorder {
			if err := call(); err != nil {
				return err
			}
		}
		if recursive && t == format.ObjectGroup {
			if err := visit(c, child, true, order, cb); err != nil {
				return err
			}
		}
		if order == WalkPostorder {
			if err := call(); err != nil {
				return err
			}
		}
	}
	return nil
}

func walk(c *ctxObj, uri string, recursive bool, order WalkOrder, cb ObjectCallback) error {
	if err := checkURI(uri); err != nil {
		return err
	}
	if cb == nil {
		return errors.InvalidInput(errors.PhaseNative, "Object walk callback is nil")
	}
	if !c.vfs.IsDir(uri) {
		return errors.NotFound(errors.PhaseNative, "directory", uri)
	}
	if err := visit(c, uri, recursive, order, cb); err != nil && err != errStop {
		return err
	}
	return nil
}

// ObjectLs reports the arrays and groups directly under uri.
func ObjectLs(ctx Ctx, uri string, cb ObjectCallback) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		return walk(c, uri, false, WalkPreorder, cb)
	})
}

// ObjectWalk reports every array and group under uri, descending into groups.
func ObjectWalk(ctx Ctx, uri string, order WalkOrder, cb ObjectCallback) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if order != WalkPreorder && order != WalkPostorder {
			return errors.InvalidInput(errors.PhaseNative, "Unknown walk order %d", order)
		}
		return walk(c, uri, true, order, cb)
	})
}
