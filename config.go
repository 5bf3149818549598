package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
	"github.com/wippyai/tiledb-go/resource"
)

// Config holds engine parameters keyed by dotted names such as
// "sm.memory_budget". Keys that were never set resolve to the environment
// and then to the engine's default.
type Config struct {
	h *resource.Handle[capi.Config]
}

// NewConfig allocates a config holding only defaults.
func NewConfig() (*Config, error) {
	var p capi.Config
	var e capi.Error
	st := capi.ConfigAlloc(&p, &e)
	if err := checkConfig(e, st); err != nil {
		return nil, err
	}
	return newConfig(p)
}

func newConfig(p capi.Config) (*Config, error) {
	h, err := own(p, capi.ConfigFree)
	if err != nil {
		return nil, err
	}
	return &Config{h: h}, nil
}

// LoadConfig reads a config saved with SaveToFile.
func LoadConfig(uri string) (*Config, error) {
	cfg, err := NewConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.call(func(p capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigLoadFromFile(p, uri, e)
	}); err != nil {
		cfg.Free()
		return nil, err
	}
	return cfg, nil
}

// Free releases the config. It is safe to call more than once.
func (c *Config) Free() {
	c.h.Free()
}

func (c *Config) call(fn func(capi.Config, *capi.Error) capi.Status) error {
	if c == nil {
		return nilArg("config")
	}
	b, err := c.h.Acquire()
	if err != nil {
		return err
	}
	defer b.Release()
	var e capi.Error
	st := fn(b.Ptr(), &e)
	return checkConfig(e, st)
}

// Set stores value under key. Values of typed parameters are validated.
func (c *Config) Set(key, value string) error {
	return c.call(func(p capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigSet(p, key, value, e)
	})
}

// Get returns the effective value of key.
func (c *Config) Get(key string) (string, error) {
	var value string
	var found bool
	err := c.call(func(p capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigGet(p, key, &value, &found, e)
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.NotFound(errors.PhaseConfig, "config parameter", key)
	}
	return value, nil
}

// Unset removes an explicit value so key reverts to its environment or
// default value.
func (c *Config) Unset(key string) error {
	return c.call(func(p capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigUnset(p, key, e)
	})
}

// SaveToFile writes the explicitly set parameters to uri.
func (c *Config) SaveToFile(uri string) error {
	return c.call(func(p capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigSaveToFile(p, uri, e)
	})
}

// Cmp reports whether both configs resolve every parameter to the same value.
func (c *Config) Cmp(other *Config) (bool, error) {
	if c == nil || other == nil {
		return false, nilArg("config")
	}
	lb, err := c.h.Acquire()
	if err != nil {
		return false, err
	}
	defer lb.Release()
	rb, err := other.h.Acquire()
	if err != nil {
		return false, err
	}
	defer rb.Release()
	var equal bool
	if st := capi.ConfigCompare(lb.Ptr(), rb.Ptr(), &equal); st != capi.OK {
		return false, checkConfig(0, st)
	}
	return equal, nil
}

// Iterate returns an iterator over the parameters whose key starts with
// prefix. The iterator reports keys with the prefix removed.
func (c *Config) Iterate(prefix string) (*ConfigIterator, error) {
	var p capi.ConfigIter
	if err := c.call(func(cp capi.Config, e *capi.Error) capi.Status {
		return capi.ConfigIterAlloc(cp, prefix, &p, e)
	}); err != nil {
		return nil, err
	}
	h, err := own(p, capi.ConfigIterFree)
	if err != nil {
		return nil, err
	}
	return &ConfigIterator{h: h, cfg: c}, nil
}

// Entries collects the parameters under prefix.
func (c *Config) Entries(prefix string) (map[string]string, error) {
	it, err := c.Iterate(prefix)
	if err != nil {
		return nil, err
	}
	defer it.Free()
	out := make(map[string]string)
	for {
		done, err := it.Done()
		if err != nil {
			return nil, err
		}
		if done {
			return out, nil
		}
		k, v, err := it.Here()
		if err != nil {
			return nil, err
		}
		out[k] = v
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
}

// ConfigIterator walks config parameters in key order.
type ConfigIterator struct {
	h   *resource.Handle[capi.ConfigIter]
	cfg *Config
}

func (it *ConfigIterator) call(fn func(capi.ConfigIter, *capi.Error) capi.Status) error {
	b, err := it.h.Acquire()
	if err != nil {
		return err
	}
	defer b.Release()
	var e capi.Error
	st := fn(b.Ptr(), &e)
	return checkConfig(e, st)
}

// Here returns the current parameter.
func (it *ConfigIterator) Here() (key, value string, err error) {
	err = it.call(func(p capi.ConfigIter, e *capi.Error) capi.Status {
		return capi.ConfigIterHere(p, &key, &value, e)
	})
	return key, value, err
}

func (it *ConfigIterator) Next() error {
	return it.call(func(p capi.ConfigIter, e *capi.Error) capi.Status {
		return capi.ConfigIterNext(p, e)
	})
}

func (it *ConfigIterator) Done() (bool, error) {
	var done bool
	err := it.call(func(p capi.ConfigIter, e *capi.Error) capi.Status {
		return capi.ConfigIterDone(p, &done, e)
	})
	return done, err
}

// Reset restarts the iteration with a new prefix.
func (it *ConfigIterator) Reset(prefix string) error {
	cb, err := it.cfg.h.Acquire()
	if err != nil {
		return err
	}
	defer cb.Release()
	return it.call(func(p capi.ConfigIter, e *capi.Error) capi.Status {
		return capi.ConfigIterReset(cb.Ptr(), p, prefix, e)
	})
}

func (it *ConfigIterator) Free() {
	it.h.Free()
}
