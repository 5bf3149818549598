package tiledb

import (
	"reflect"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

// MetadataValue is one metadata entry: Num values of Datatype, encoded in
// Bytes.
type MetadataValue struct {
	Datatype Datatype
	Num      uint32
	Bytes    []byte
}

// Value decodes the entry: a string for character datatypes, otherwise a
// slice such as []int32.
func (v MetadataValue) Value() (any, error) {
	return decodeValues(v.Datatype, v.Bytes)
}

// Metadata is the key-value store attached to arrays and groups. Puts and
// deletes need the object open for write and are persisted on close; reads
// need it open for read.
type Metadata interface {
	PutMetadataString(key, value string) error
	GetMetadata(key string) (MetadataValue, error)
	GetMetadataString(key string) (string, error)
	DeleteMetadata(key string) error
	MetadataNum() (uint64, error)
	MetadataFromIndex(idx uint64) (string, MetadataValue, error)
	MetadataKeys() ([]string, error)
	HasMetadata(key string) (Datatype, bool, error)
	store() *metaStore
}

// metaStore adapts the per-object metadata calls of the ABI.
type metaStore struct {
	put   func(key string, dt capi.Datatype, num uint32, value []byte) error
	del   func(key string) error
	get   func(key string, dt *capi.Datatype, num *uint32, value *[]byte) error
	num   func(n *uint64) error
	index func(idx uint64, key *string, dt *capi.Datatype, num *uint32, value *[]byte) error
	has   func(key string, dt *capi.Datatype, has *bool) error
}

func arrayMetadata(a *Array) metaStore {
	return metaStore{
		put: func(key string, dt capi.Datatype, num uint32, value []byte) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayPutMetadata(c, p, key, dt, num, value) })
		},
		del: func(key string) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayDeleteMetadata(c, p, key) })
		},
		get: func(key string, dt *capi.Datatype, num *uint32, value *[]byte) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetMetadata(c, p, key, dt, num, value) })
		},
		num: func(n *uint64) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayGetMetadataNum(c, p, n) })
		},
		index: func(idx uint64, key *string, dt *capi.Datatype, num *uint32, value *[]byte) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status {
				return capi.ArrayGetMetadataFromIndex(c, p, idx, key, dt, num, value)
			})
		},
		has: func(key string, dt *capi.Datatype, has *bool) error {
			return a.call(func(c capi.Ctx, p capi.Array) capi.Status { return capi.ArrayHasMetadataKey(c, p, key, dt, has) })
		},
	}
}

func groupMetadata(g *Group) metaStore {
	return metaStore{
		put: func(key string, dt capi.Datatype, num uint32, value []byte) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupPutMetadata(c, p, key, dt, num, value) })
		},
		del: func(key string) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupDeleteMetadata(c, p, key) })
		},
		get: func(key string, dt *capi.Datatype, num *uint32, value *[]byte) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetMetadata(c, p, key, dt, num, value) })
		},
		num: func(n *uint64) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetMetadataNum(c, p, n) })
		},
		index: func(idx uint64, key *string, dt *capi.Datatype, num *uint32, value *[]byte) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status {
				return capi.GroupGetMetadataFromIndex(c, p, idx, key, dt, num, value)
			})
		},
		has: func(key string, dt *capi.Datatype, has *bool) error {
			return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupHasMetadataKey(c, p, key, dt, has) })
		},
	}
}

func (m *metaStore) store() *metaStore { return m }

// PutMetadataString stores value as STRING_UTF8 characters.
func (m *metaStore) PutMetadataString(key, value string) error {
	if value == "" {
		return errors.InvalidInput(errors.PhaseValidate, "metadata %q: empty value", key)
	}
	return m.put(key, capi.Datatype(DatatypeStringUTF8), uint32(len(value)), []byte(value))
}

// GetMetadata returns the entry stored under key.
func (m *metaStore) GetMetadata(key string) (MetadataValue, error) {
	var dt capi.Datatype
	var num uint32
	var value []byte
	if err := m.get(key, &dt, &num, &value); err != nil {
		return MetadataValue{}, err
	}
	if value == nil {
		return MetadataValue{}, errors.NotFound(errors.PhaseValidate, "metadata key", key)
	}
	return MetadataValue{Datatype: Datatype(dt), Num: num, Bytes: value}, nil
}

// GetMetadataString returns a character entry as a string.
func (m *metaStore) GetMetadataString(key string) (string, error) {
	v, err := m.GetMetadata(key)
	if err != nil {
		return "", err
	}
	if !v.Datatype.IsString() || v.Datatype.Size() != 1 {
		return "", errors.TypeMismatch(errors.PhaseMarshal, []string{key}, "string", v.Datatype.String())
	}
	return string(v.Bytes), nil
}

func (m *metaStore) DeleteMetadata(key string) error {
	return m.del(key)
}

// MetadataNum returns the number of entries.
func (m *metaStore) MetadataNum() (uint64, error) {
	var n uint64
	err := m.num(&n)
	return n, err
}

// MetadataFromIndex returns the idx-th entry in key order.
func (m *metaStore) MetadataFromIndex(idx uint64) (string, MetadataValue, error) {
	var key string
	var dt capi.Datatype
	var num uint32
	var value []byte
	if err := m.index(idx, &key, &dt, &num, &value); err != nil {
		return "", MetadataValue{}, err
	}
	return key, MetadataValue{Datatype: Datatype(dt), Num: num, Bytes: value}, nil
}

// MetadataKeys returns every key in order.
func (m *metaStore) MetadataKeys() ([]string, error) {
	n, err := m.MetadataNum()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		k, _, err := m.MetadataFromIndex(i)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// HasMetadata reports whether key exists and its datatype. An absent key
// reports DatatypeAny.
func (m *metaStore) HasMetadata(key string) (Datatype, bool, error) {
	var dt capi.Datatype
	var has bool
	if err := m.has(key, &dt, &has); err != nil {
		return DatatypeAny, false, err
	}
	if !has {
		return DatatypeAny, false, nil
	}
	return Datatype(dt), true, nil
}

// PutMetadata stores values under key with the canonical datatype of T.
func PutMetadata[T Scalar](m Metadata, key string, values ...T) error {
	if len(values) == 0 {
		return errors.InvalidInput(errors.PhaseValidate, "metadata %q: no values", key)
	}
	dt, err := DatatypeOf[T]()
	if err != nil {
		return err
	}
	return m.store().put(key, capi.Datatype(dt), uint32(len(values)), bytesOf(values))
}

// MetadataValues returns the values under key as T. T must match the
// stored datatype.
func MetadataValues[T Scalar](m Metadata, key string) ([]T, error) {
	v, err := m.GetMetadata(key)
	if err != nil {
		return nil, err
	}
	if err := checkElemType(v.Datatype, reflect.TypeFor[T](), key); err != nil {
		return nil, err
	}
	return valuesOf[T](v.Bytes), nil
}
