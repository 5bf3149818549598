package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// own wraps a pointer returned by the engine so that free runs exactly once.
func own[P resource.Pointer](p P, free func(*P)) (*resource.Handle[P], error) {
	return resource.NewHandle(p, func(p P) { free(&p) })
}

func (c *Context) acquire() (resource.Borrow[capi.Ctx], error) {
	if c == nil {
		return resource.Borrow[capi.Ctx]{}, errors.InvalidInput(errors.PhaseValidate, "context is nil")
	}
	return c.h.Acquire()
}

// do borrows the context for one native call.
func (c *Context) do(fn func(capi.Ctx) capi.Status) error {
	cb, err := c.acquire()
	if err != nil {
		return err
	}
	defer cb.Release()
	return check(cb.Ptr(), fn(cb.Ptr()))
}

// call borrows the context and h for one native call. Borrows are released
// in reverse order on every path.
func call[P resource.Pointer](c *Context, h *resource.Handle[P], fn func(capi.Ctx, P) capi.Status) error {
	cb, err := c.acquire()
	if err != nil {
		return err
	}
	defer cb.Release()
	b, err := h.Acquire()
	if err != nil {
		return err
	}
	defer b.Release()
	return check(cb.Ptr(), fn(cb.Ptr(), b.Ptr()))
}

// callArg is call with one more borrowed argument handle.
func callArg[P, A resource.Pointer](c *Context, h *resource.Handle[P], arg *resource.Handle[A], fn func(capi.Ctx, P, A) capi.Status) error {
	cb, err := c.acquire()
	if err != nil {
		return err
	}
	defer cb.Release()
	b, err := h.Acquire()
	if err != nil {
		return err
	}
	defer b.Release()
	ab, err := arg.Acquire()
	if err != nil {
		return err
	}
	defer ab.Release()
	return check(cb.Ptr(), fn(cb.Ptr(), b.Ptr(), ab.Ptr()))
}

func nilArg(what string) error {
	return errors.InvalidInput(errors.PhaseValidate, "%s is nil", what)
}
