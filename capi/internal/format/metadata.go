package format

import (
	"sort"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
)

// MetadataEntry is one key-value pair attached to an array or group.
type MetadataEntry struct {
	Key      string
	Datatype Datatype
	ValueNum uint32
	Value    []byte
	Deleted  bool
}

// WriteMetadata appends a batch of puts and deletes to the object at uri.
// An empty batch writes nothing.
func WriteMetadata(v *storage.VFS, uri string, entries []MetadataEntry, ts uint64) error {
	if len(entries) == 0 {
		return nil
	}
	var e encoder
	e.u32(uint32(len(entries)))
	for _, m := range entries {
		e.str(m.Key)
		e.bool(m.Deleted)
		e.u32(uint32(m.Datatype))
		e.u32(m.ValueNum)
		e.bytes(m.Value)
	}
	return v.WriteFile(storage.Join(uri, MetaDir, NewName(ts, ts)), e.compressed())
}

// LoadMetadata replays the metadata batches written in [start, end] and
// returns the live entries sorted by key.
func LoadMetadata(v *storage.VFS, uri string, start, end uint64) ([]MetadataEntry, error) {
	batches, err := listEntries(v, storage.Join(uri, MetaDir), start, end)
	if err != nil {
		return nil, err
	}
	live := make(map[string]MetadataEntry)
	for _, b := range batches {
		data, err := v.ReadFile(b.uri)
		if err != nil {
			return nil, err
		}
		d, err := newDecoder(b.uri, data)
		if err != nil {
			return nil, err
		}
		n := d.u32()
		for i := uint32(0); i < n && d.err == nil; i++ {
			m := MetadataEntry{Key: d.str(), Deleted: d.bool()}
			m.Datatype = Datatype(d.u32())
			m.ValueNum = d.u32()
			m.Value = d.bytes()
			if m.Deleted {
				delete(live, m.Key)
				continue
			}
			live[m.Key] = m
		}
		if d.err != nil {
			return nil, d.err
		}
	}
	out := make([]MetadataEntry, 0, len(live))
	for _, m := range live {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
