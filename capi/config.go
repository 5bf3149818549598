package capi

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

type paramKind int

const (
	paramString paramKind = iota
	paramBool
	paramInt
	paramUint
	paramFloat
	paramOctal
)

type param struct {
	def    string
	kind   paramKind
	values []string
}

var params = map[string]param{
	"config.env_var_prefix":                    {def: "TILEDB_"},
	"config.logging_level":                     {def: "0", kind: paramUint},
	"config.logging_format":                    {def: "DEFAULT", values: []string{"DEFAULT", "JSON"}},
	"sm.memory_budget":                         {def: "5368709120", kind: paramUint},
	"sm.memory_budget_var":                     {def: "10737418240", kind: paramUint},
	"sm.compute_concurrency_level":             {def: strconv.Itoa(runtime.NumCPU()), kind: paramUint},
	"sm.io_concurrency_level":                  {def: strconv.Itoa(runtime.NumCPU()), kind: paramUint},
	"sm.check_coord_dups":                      {def: "true", kind: paramBool},
	"sm.check_coord_oob":                       {def: "true", kind: paramBool},
	"sm.dedup_coords":                          {def: "false", kind: paramBool},
	"rest.server_address":                      {def: "https://api.tiledb.com"},
	"rest.server_serialization_format":         {def: "CAPNP", values: []string{"CAPNP", "JSON"}},
	"rest.username":                            {},
	"rest.password":                            {},
	"rest.token":                               {},
	"rest.resubmit_incomplete":                 {def: "true", kind: paramBool},
	"rest.ignore_ssl_validation":               {def: "false", kind: paramBool},
	"rest.creation_access_credentials_name":    {},
	"rest.retry_http_codes":                    {def: "503"},
	"rest.retry_count":                         {def: "25", kind: paramUint},
	"rest.retry_initial_delay_ms":              {def: "500", kind: paramUint},
	"rest.retry_delay_factor":                  {def: "1.25", kind: paramFloat},
	"rest.load_metadata_on_array_open":         {def: "true", kind: paramBool},
	"rest.load_non_empty_domain_on_array_open": {def: "true", kind: paramBool},
	"rest.use_refactored_array_open":           {def: "false", kind: paramBool},
	"rest.curl.verbose":                        {def: "false", kind: paramBool},
	"rest.curl.buffer_size":                    {def: "524288", kind: paramUint},
	"vfs.s3.connect_timeout_ms":                {def: "10800", kind: paramInt},
	"vfs.file.posix_file_permissions":          {def: "644", kind: paramOctal},
	"vfs.file.posix_directory_permissions":     {def: "755", kind: paramOctal},
}

func (p param) check(key, value string) error {
	var err error
	switch p.kind {
	case paramBool:
		if value != "true" && value != "false" {
			err = fmt.Errorf("value must be true or false")
		}
	case paramInt:
		_, err = strconv.ParseInt(value, 10, 64)
	case paramUint:
		_, err = strconv.ParseUint(value, 10, 64)
	case paramFloat:
		_, err = strconv.ParseFloat(value, 64)
	case paramOctal:
		_, err = strconv.ParseUint(value, 8, 32)
	}
	if err == nil && len(p.values) > 0 {
		err = fmt.Errorf("value must be one of %s", strings.Join(p.values, ", "))
		for _, v := range p.values {
			if v == value {
				err = nil
			}
		}
	}
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(key).
			Value(value).
			Detail("Config: Failed to set %q to %q; %v", key, value, err).
			Build()
	}
	return nil
}

type configObj struct {
	mu  sync.RWMutex
	set map[string]string
}

func newConfig() *configObj {
	return &configObj{set: make(map[string]string)}
}

func (c *configObj) clone() *configObj {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := newConfig()
	for k, v := range c.set {
		out.set[k] = v
	}
	return out
}

func (c *configObj) setParam(key, value string) error {
	if key == "" {
		return errors.InvalidInput(errors.PhaseConfig, "Config: Cannot set parameter; empty key")
	}
	if p, ok := params[key]; ok {
		if err := p.check(key, value); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.set[key] = value
	c.mu.Unlock()
	return nil
}

func (c *configObj) unset(key string) {
	c.mu.Lock()
	delete(c.set, key)
	c.mu.Unlock()
}

func envName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// get resolves a key: explicit value, then environment, then default.
func (c *configObj) get(key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.set[key]
	prefix, hasPrefix := c.set["config.env_var_prefix"]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if !hasPrefix {
		prefix = params["config.env_var_prefix"].def
	}
	if env, ok := os.LookupEnv(envName(prefix, key)); ok {
		return env, true
	}
	if p, ok := params[key]; ok {
		return p.def, true
	}
	return "", false
}

func (c *configObj) str(key string) string {
	v, _ := c.get(key)
	return v
}

func (c *configObj) boolean(key string) bool {
	return c.str(key) == "true"
}

func (c *configObj) uint(key string) uint64 {
	v, _ := strconv.ParseUint(c.str(key), 10, 64)
	return v
}

func (c *configObj) octal(key string) os.FileMode {
	v, err := strconv.ParseUint(c.str(key), 8, 32)
	if err != nil {
		return 0
	}
	return os.FileMode(v)
}

// keys returns every key with an effective value, sorted.
func (c *configObj) keys() []string {
	seen := make(map[string]bool, len(params))
	for k := range params {
		seen[k] = true
	}
	c.mu.RLock()
	for k := range c.set {
		seen[k] = true
	}
	c.mu.RUnlock()
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *configObj) save() []byte {
	c.mu.RLock()
	keys := make([]string, 0, len(c.set))
	for k := range c.set {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	var b bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %s\n", k, c.str(k))
	}
	return b.Bytes()
}

func (c *configObj) load(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, _ := strings.Cut(text, " ")
		if err := c.setParam(key, strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ConfigAlloc creates a config holding the defaults.
func ConfigAlloc(cfg *Config, e *Error) Status {
	return newError(put(kindConfig, newConfig(), cfg), e)
}

func ConfigFree(cfg *Config) {
	drop(kindConfig, cfg)
}

func ConfigSet(cfg Config, key, value string, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	return newError(c.setParam(key, value), e)
}

// ConfigGet resolves key. found is false when the key has no value.
func ConfigGet(cfg Config, key string, value *string, found *bool, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	*value, *found = c.get(key)
	return newError(nil, e)
}

// ConfigUnset removes an explicitly set value; the key reverts to its
// environment or default value.
func ConfigUnset(cfg Config, key string, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	c.unset(key)
	return newError(nil, e)
}

// ConfigSaveToFile writes the explicitly set keys as "key value" lines.
func ConfigSaveToFile(cfg Config, uri string, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	return newError(storage.New(0).WriteFile(uri, c.save()), e)
}

func ConfigLoadFromFile(cfg Config, uri string, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	data, err := storage.New(0).ReadFile(uri)
	if err != nil {
		return newError(err, e)
	}
	return newError(c.load(data), e)
}

// ConfigCompare reports whether two configs resolve every key to the same
// value.
func ConfigCompare(lhs, rhs Config, equal *bool) Status {
	a, err := lhs.obj()
	if err != nil {
		return Err
	}
	b, err := rhs.obj()
	if err != nil {
		return Err
	}
	keys := a.keys()
	if bk := b.keys(); len(bk) != len(keys) {
		*equal = false
		return OK
	}
	for _, k := range keys {
		av, aok := a.get(k)
		bv, bok := b.get(k)
		if av != bv || aok != bok {
			*equal = false
			return OK
		}
	}
	*equal = true
	return OK
}

type configIterObj struct {
	prefix string
	keys   []string
	values []string
	pos    int
}

func (it *configIterObj) reset(c *configObj, prefix string) {
	it.prefix = prefix
	it.keys = it.keys[:0]
	it.values = it.values[:0]
	it.pos = 0
	for _, k := range c.keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		it.keys = append(it.keys, strings.TrimPrefix(k, prefix))
		it.values = append(it.values, c.str(k))
	}
}

// ConfigIterAlloc iterates the effective parameters whose key starts with
// prefix. Reported keys have the prefix removed.
func ConfigIterAlloc(cfg Config, prefix string, it *ConfigIter, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	o := &configIterObj{}
	o.reset(c, prefix)
	return newError(put(kindConfigIter, o, it), e)
}

func ConfigIterReset(cfg Config, it ConfigIter, prefix string, e *Error) Status {
	c, err := cfg.obj()
	if err != nil {
		return newError(err, e)
	}
	o, err := it.obj()
	if err != nil {
		return newError(err, e)
	}
	o.reset(c, prefix)
	return newError(nil, e)
}

func ConfigIterFree(it *ConfigIter) {
	drop(kindConfigIter, it)
}

func ConfigIterHere(it ConfigIter, key, value *string, e *Error) Status {
	o, err := it.obj()
	if err != nil {
		return newError(err, e)
	}
	if o.pos >= len(o.keys) {
		return newError(errors.InvalidState(errors.PhaseConfig, "ConfigIter: iterator is done"), e)
	}
	*key, *value = o.keys[o.pos], o.values[o.pos]
	return newError(nil, e)
}

func ConfigIterNext(it ConfigIter, e *Error) Status {
	o, err := it.obj()
	if err != nil {
		return newError(err, e)
	}
	if o.pos < len(o.keys) {
		o.pos++
	}
	return newError(nil, e)
}

func ConfigIterDone(it ConfigIter, done *bool, e *Error) Status {
	o, err := it.obj()
	if err != nil {
		return newError(err, e)
	}
	*done = o.pos >= len(o.keys)
	return newError(nil, e)
}

// explicit returns the value of key only if it was set on c.
func (c *configObj) explicit(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.set[key]
	return v, ok
}

// layered resolves key against overrides first, then against base.
func layered(base *configObj, key string, overrides ...*configObj) string {
	for _, o := range overrides {
		if v, ok := o.explicit(key); ok {
			return v
		}
	}
	return base.str(key)
}
