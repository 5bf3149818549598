package capi

import (
	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
	"go.uber.org/zap"
)

type evolutionObj struct {
	addAttrs    []*format.Attribute
	dropAttrs   []string
	addEnums    []*format.Enumeration
	extendEnums []*format.Enumeration
	dropEnums   []string
	timestamp   uint64
}

func ArraySchemaEvolutionAlloc(ctx Ctx, evo *ArraySchemaEvolution) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		return put(kindEvolution, &evolutionObj{}, evo)
	})
}

func ArraySchemaEvolutionFree(evo *ArraySchemaEvolution) {
	drop(kindEvolution, evo)
}

func withEvolution(ctx Ctx, evo ArraySchemaEvolution, fn func(o *evolutionObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := evo.obj()
		if err != nil {
			return err
		}
		return fn(o)
	})
}

func ArraySchemaEvolutionAddAttribute(ctx Ctx, evo ArraySchemaEvolution, attr Attribute) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		a, err := attr.obj()
		if err != nil {
			return err
		}
		for _, existing := range o.addAttrs {
			if existing.Name == a.a.Name {
				return errors.InvalidInput(errors.PhaseNative, "ArraySchemaEvolution: attribute %q is already being added", a.a.Name)
			}
		}
		o.addAttrs = append(o.addAttrs, a.a.Clone())
		return nil
	})
}

func ArraySchemaEvolutionDropAttribute(ctx Ctx, evo ArraySchemaEvolution, name string) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		o.dropAttrs = append(o.dropAttrs, name)
		return nil
	})
}

func ArraySchemaEvolutionAddEnumeration(ctx Ctx, evo ArraySchemaEvolution, enum Enumeration) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		e, err := enum.obj()
		if err != nil {
			return err
		}
		o.addEnums = append(o.addEnums, e.e.Clone())
		return nil
	})
}

// ArraySchemaEvolutionExtendEnumeration replaces an existing enumeration with
// an extended copy made by EnumerationExtend.
func ArraySchemaEvolutionExtendEnumeration(ctx Ctx, evo ArraySchemaEvolution, enum Enumeration) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		e, err := enum.obj()
		if err != nil {
			return err
		}
		o.extendEnums = append(o.extendEnums, e.e.Clone())
		return nil
	})
}

func ArraySchemaEvolutionDropEnumeration(ctx Ctx, evo ArraySchemaEvolution, name string) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		o.dropEnums = append(o.dropEnums, name)
		return nil
	})
}

// ArraySchemaEvolutionSetTimestampRange sets the timestamp of the evolved
// schema. lo and hi must be equal.
func ArraySchemaEvolutionSetTimestampRange(ctx Ctx, evo ArraySchemaEvolution, lo, hi uint64) Status {
	return withEvolution(ctx, evo, func(o *evolutionObj) error {
		if lo != hi {
			return errors.InvalidInput(errors.PhaseNative, "ArraySchemaEvolution: timestamp range bounds must be equal")
		}
		o.timestamp = hi
		return nil
	})
}

func (o *evolutionObj) apply(s *format.Schema) error {
	fail := func(msg string, args ...any) error {
		return errors.InvalidInput(errors.PhaseNative, "ArraySchemaEvolution: "+msg, args...)
	}
	for _, name := range o.dropAttrs {
		_, i := s.Attribute(name)
		if i < 0 {
			if _, d := s.Dimension(name); d >= 0 {
				return fail("Cannot drop dimension %q", name)
			}
			return fail("Cannot drop attribute; %q does not exist", name)
		}
		s.Attributes = append(s.Attributes[:i], s.Attributes[i+1:]...)
	}
	for _, name := range o.dropEnums {
		_, i := s.Enumeration(name)
		if i < 0 {
			return fail("Cannot drop enumeration; %q does not exist", name)
		}
		for _, a := range s.Attributes {
			if a.Enumeration == name {
				return fail("Cannot drop enumeration %q; attribute %q uses it", name, a.Name)
			}
		}
		s.Enumerations = append(s.Enumerations[:i], s.Enumerations[i+1:]...)
	}
	for _, e := range o.addEnums {
		if existing, _ := s.Enumeration(e.Name); existing != nil {
			return fail("Cannot add enumeration; %q already exists", e.Name)
		}
		s.Enumerations = append(s.Enumerations, e.Clone())
	}
	for _, e := range o.extendEnums {
		existing, i := s.Enumeration(e.Name)
		if existing == nil {
			return fail("Cannot extend enumeration; %q does not exist", e.Name)
		}
		if e.Datatype != existing.Datatype || e.CellValNum != existing.CellValNum || len(e.Data) < len(existing.Data) {
			return fail("Cannot extend enumeration %q; the new values do not extend the old ones", e.Name)
		}
		s.Enumerations[i] = e.Clone()
	}
	for _, a := range o.addAttrs {
		if existing, _ := s.Attribute(a.Name); existing != nil {
			return fail("Cannot add attribute; %q already exists", a.Name)
		}
		s.Attributes = append(s.Attributes, a.Clone())
	}
	return s.Check()
}

// ArrayEvolve applies evo to the latest schema of the array at uri and
// stores the result as a new schema.
func ArrayEvolve(ctx Ctx, uri string, evo ArraySchemaEvolution) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := evo.obj()
		if err != nil {
			return err
		}
		if err := checkURI(uri); err != nil {
			return err
		}
		s, err := format.LoadSchema(c.vfs, uri, ^uint64(0))
		if err != nil {
			return err
		}
		next := s.Clone()
		if err := o.apply(next); err != nil {
			return err
		}
		ts := o.timestamp
		if ts == 0 {
			ts = format.Now()
		}
		name, err := format.WriteSchema(c.vfs, uri, next, ts)
		if err != nil {
			return err
		}
		c.log.Debug("schema evolved", zap.String("uri", uri), zap.String("schema", name))
		return nil
	})
}
