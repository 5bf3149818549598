package tiledb

import (
	"fmt"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// Context is the root of every engine object. It holds the config the
// objects created from it run with and records the last error.
type Context struct {
	h *resource.Handle[capi.Ctx]
}

// NewContext creates a context. A nil cfg uses the defaults; otherwise the
// config is copied and later changes to cfg do not affect the context.
func NewContext(cfg *Config) (*Context, error) {
	var p capi.Ctx
	var st capi.Status
	if cfg == nil {
		st = capi.CtxAlloc(0, &p)
	} else {
		b, err := cfg.h.Acquire()
		if err != nil {
			return nil, err
		}
		st = capi.CtxAlloc(b.Ptr(), &p)
		b.Release()
	}
	if err := checkConfig(0, st); err != nil {
		return nil, err
	}
	h, err := own(p, capi.CtxFree)
	if err != nil {
		return nil, err
	}
	return &Context{h: h}, nil
}

// Free releases the context. Objects created from it must be freed first.
func (c *Context) Free() {
	c.h.Free()
}

// Config returns a copy of the context's config.
func (c *Context) Config() (*Config, error) {
	var p capi.Config
	if err := c.do(func(ctx capi.Ctx) capi.Status { return capi.CtxGetConfig(ctx, &p) }); err != nil {
		return nil, err
	}
	return newConfig(p)
}

// LastError returns the last error recorded on the context, or nil.
func (c *Context) LastError() error {
	cb, err := c.acquire()
	if err != nil {
		return err
	}
	defer cb.Release()
	var e capi.Error
	if st := capi.CtxGetLastError(cb.Ptr(), &e); st != capi.OK {
		return errors.Native(int32(st), fmt.Sprintf("error during ctx_get_last_error: %d", st))
	}
	if e == 0 {
		return nil
	}
	return drainError(e, capi.Err)
}

// Stats returns the context's engine counters as JSON.
func (c *Context) Stats() (string, error) {
	var s string
	err := c.do(func(ctx capi.Ctx) capi.Status { return capi.CtxGetStats(ctx, &s) })
	return s, err
}

// CancelTasks cancels engine work in flight. It is advisory: queries
// submitted afterwards run normally.
func (c *Context) CancelTasks() error {
	return c.do(capi.CtxCancelTasks)
}

// IsFilesystemSupported reports whether the engine was built with fs.
func (c *Context) IsFilesystemSupported(fs FilesystemType) (bool, error) {
	var ok bool
	err := c.do(func(ctx capi.Ctx) capi.Status {
		return capi.CtxIsSupportedFS(ctx, capi.Filesystem(fs), &ok)
	})
	return ok, err
}

// SetTag attaches a key-value tag to requests issued through the context.
func (c *Context) SetTag(key, value string) error {
	return c.do(func(ctx capi.Ctx) capi.Status { return capi.CtxSetTag(ctx, key, value) })
}

// Tags returns the context's tags as sorted "key=value" pairs.
func (c *Context) Tags() ([]string, error) {
	var tags []string
	err := c.do(func(ctx capi.Ctx) capi.Status { return capi.CtxGetTags(ctx, &tags) })
	return tags, err
}

// ObjectType reports whether uri holds an array, a group or nothing.
func (c *Context) ObjectType(uri string) (ObjectType, error) {
	var t capi.ObjectType
	err := c.do(func(ctx capi.Ctx) capi.Status { return capi.ObjectTypeOf(ctx, uri, &t) })
	return ObjectType(t), err
}

// RemoveObject deletes the array or group at uri.
func (c *Context) RemoveObject(uri string) error {
	return c.do(func(ctx capi.Ctx) capi.Status { return capi.ObjectRemove(ctx, uri) })
}

// MoveObject renames the array or group at oldURI.
func (c *Context) MoveObject(oldURI, newURI string) error {
	return c.do(func(ctx capi.Ctx) capi.Status { return capi.ObjectMove(ctx, oldURI, newURI) })
}

// Object is an array or group found by a listing.
type Object struct {
	URI  string
	Type ObjectType
}

// VisitFunc is called for each object of a listing. Returning false stops
// the listing; returning an error aborts it with that error.
type VisitFunc func(uri string, t ObjectType) (bool, error)

// VisitChildren calls fn for the arrays and groups directly under uri.
func (c *Context) VisitChildren(uri string, fn VisitFunc) error {
	cb, errp := visitor(fn)
	err := c.do(func(ctx capi.Ctx) capi.Status { return capi.ObjectLs(ctx, uri, cb) })
	if *errp != nil {
		return *errp
	}
	return err
}

// Walk calls fn for every array and group under uri, descending into
// groups in the given order.
func (c *Context) Walk(uri string, order WalkOrder, fn VisitFunc) error {
	cb, errp := visitor(fn)
	err := c.do(func(ctx capi.Ctx) capi.Status {
		return capi.ObjectWalk(ctx, uri, capi.WalkOrder(order), cb)
	})
	if *errp != nil {
		return *errp
	}
	return err
}

// ChildObjects lists the arrays and groups directly under uri.
func (c *Context) ChildObjects(uri string) ([]Object, error) {
	var out []Object
	err := c.VisitChildren(uri, func(u string, t ObjectType) (bool, error) {
		out = append(out, Object{URI: u, Type: t})
		return true, nil
	})
	return out, err
}

func visitor(fn VisitFunc) (capi.ObjectCallback, *error) {
	var cbErr error
	return func(uri string, t capi.ObjectType) int32 {
		more, err := fn(uri, ObjectType(t))
		switch {
		case err != nil:
			cbErr = err
			return -1
		case more:
			return 1
		}
		return 0
	}, &cbErr
}
