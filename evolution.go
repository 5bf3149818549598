package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// ArraySchemaEvolution collects schema changes that EvolveArraySchema
// applies to an existing array as a new schema version.
type ArraySchemaEvolution struct {
	ctx *Context
	h   *resource.Handle[capi.ArraySchemaEvolution]
}

func NewArraySchemaEvolution(ctx *Context) (*ArraySchemaEvolution, error) {
	var p capi.ArraySchemaEvolution
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.ArraySchemaEvolutionAlloc(c, &p) }); err != nil {
		return nil, err
	}
	h, err := own(p, capi.ArraySchemaEvolutionFree)
	if err != nil {
		return nil, err
	}
	return &ArraySchemaEvolution{ctx: ctx, h: h}, nil
}

func (e *ArraySchemaEvolution) Free() {
	e.h.Free()
}

func (e *ArraySchemaEvolution) AddAttribute(a *Attribute) error {
	if a == nil {
		return nilArg("attribute")
	}
	return callArg(e.ctx, e.h, a.h, capi.ArraySchemaEvolutionAddAttribute)
}

func (e *ArraySchemaEvolution) DropAttribute(name string) error {
	return call(e.ctx, e.h, func(c capi.Ctx, p capi.ArraySchemaEvolution) capi.Status {
		return capi.ArraySchemaEvolutionDropAttribute(c, p, name)
	})
}

func (e *ArraySchemaEvolution) AddEnumeration(en *Enumeration) error {
	if en == nil {
		return nilArg("enumeration")
	}
	return callArg(e.ctx, e.h, en.h, capi.ArraySchemaEvolutionAddEnumeration)
}

// ExtendEnumeration replaces an enumeration of the same name with en, which
// must extend it.
func (e *ArraySchemaEvolution) ExtendEnumeration(en *Enumeration) error {
	if en == nil {
		return nilArg("enumeration")
	}
	return callArg(e.ctx, e.h, en.h, capi.ArraySchemaEvolutionExtendEnumeration)
}

func (e *ArraySchemaEvolution) DropEnumeration(name string) error {
	return call(e.ctx, e.h, func(c capi.Ctx, p capi.ArraySchemaEvolution) capi.Status {
		return capi.ArraySchemaEvolutionDropEnumeration(c, p, name)
	})
}

// SetTimestampRange sets the timestamp of the new schema version. lo and hi
// must be equal.
func (e *ArraySchemaEvolution) SetTimestampRange(lo, hi uint64) error {
	return call(e.ctx, e.h, func(c capi.Ctx, p capi.ArraySchemaEvolution) capi.Status {
		return capi.ArraySchemaEvolutionSetTimestampRange(c, p, lo, hi)
	})
}

// EvolveArraySchema applies evo to the array at uri.
func EvolveArraySchema(ctx *Context, uri string, evo *ArraySchemaEvolution) error {
	if evo == nil {
		return nilArg("schema evolution")
	}
	return call(ctx, evo.h, func(c capi.Ctx, p capi.ArraySchemaEvolution) capi.Status {
		return capi.ArrayEvolve(c, uri, p)
	})
}
