package capi

import (
	"bytes"
	"sort"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

// metaStore is the metadata of an open array or group. Reads see the
// entries loaded at open; writes are buffered until close.
type metaStore struct {
	owner   string
	entries []format.MetadataEntry
	pending []format.MetadataEntry
}

func (m *metaStore) load(v *storage.VFS, uri string, start, end uint64) error {
	entries, err := format.LoadMetadata(v, uri, start, end)
	if err != nil {
		return err
	}
	m.entries = entries
	m.pending = nil
	return nil
}

func (m *metaStore) put(key string, dt Datatype, num uint32, value []byte) error {
	if key == "" {
		return errors.InvalidInput(errors.PhaseNative, "%s: Cannot put metadata; Key cannot be empty", m.owner)
	}
	if !dt.Valid() || dt == format.Any {
		return errors.InvalidInput(errors.PhaseNative, "%s: Cannot put metadata; Invalid datatype %d", m.owner, dt)
	}
	if num == 0 && len(value) != 0 {
		return errors.InvalidInput(errors.PhaseNative, "%s: Cannot put metadata; Value number is zero but a value was given", m.owner)
	}
	if want := int(num) * dt.Size(); len(value) != want {
		return errors.InvalidInput(errors.PhaseNative, "%s: Cannot put metadata; Value has %d bytes, expected %d", m.owner, len(value), want)
	}
	m.pending = append(m.pending, format.MetadataEntry{
		Key:      key,
		Datatype: dt,
		ValueNum: num,
		Value:    bytes.Clone(value),
	})
	return nil
}

func (m *metaStore) remove(key string) error {
	if key == "" {
		return errors.InvalidInput(errors.PhaseNative, "%s: Cannot delete metadata; Key cannot be empty", m.owner)
	}
	m.pending = append(m.pending, format.MetadataEntry{Key: key, Deleted: true})
	return nil
}

func (m *metaStore) find(key string) (format.MetadataEntry, bool) {
	i := sort.Search(len(m.entries), func(i int) bool { return m.entries[i].Key >= key })
	if i < len(m.entries) && m.entries[i].Key == key {
		return m.entries[i], true
	}
	return format.MetadataEntry{}, false
}

func (m *metaStore) at(idx uint64) (format.MetadataEntry, error) {
	if idx >= uint64(len(m.entries)) {
		return format.MetadataEntry{}, errors.OutOfBounds(errors.PhaseNative, []string{m.owner, "metadata"}, int(idx), len(m.entries))
	}
	return m.entries[idx], nil
}

// flush persists the buffered puts and deletes.
func (m *metaStore) flush(v *storage.VFS, uri string, ts uint64) error {
	pending := m.pending
	m.pending = nil
	return format.WriteMetadata(v, uri, pending, ts)
}

// metaOut copies an entry into the ABI out parameters. A missing entry
// yields a nil value and zero count.
func metaOut(e format.MetadataEntry, found bool, dt *Datatype, num *uint32, value *[]byte) {
	if !found {
		*num, *value = 0, nil
		return
	}
	*dt, *num, *value = e.Datatype, e.ValueNum, bytes.Clone(e.Value)
}
