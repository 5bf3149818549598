package format

import (
	"strings"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

// Object types; values match the ABI's object type enum.
const (
	ObjectInvalid uint32 = 0
	ObjectGroup   uint32 = 1
	ObjectArray   uint32 = 2
)

// ObjectType reports what is stored at uri.
func ObjectType(v *storage.VFS, uri string) uint32 {
	switch {
	case IsArray(v, uri):
		return ObjectArray
	case IsGroup(v, uri):
		return ObjectGroup
	}
	return ObjectInvalid
}

// Member is one entry of a group. URI is stored as given; relative members
// are resolved against the group URI.
type Member struct {
	URI      string
	Name     string
	Type     uint32
	Relative bool
}

// Resolve returns the absolute URI of m within the group at groupURI.
func (m Member) Resolve(groupURI string) string {
	if m.Relative {
		return storage.Join(groupURI, m.URI)
	}
	return m.URI
}

// MemberChange is one record in a group's member log. A removal carries the
// member's name or URI in Name.
type MemberChange struct {
	Member
	Removed bool
}

// IsGroup reports whether uri holds a group.
func IsGroup(v *storage.VFS, uri string) bool {
	return v.IsFile(storage.Join(uri, GroupMarker))
}

// CreateGroup creates an empty group at uri.
func CreateGroup(v *storage.VFS, uri string) error {
	if ObjectType(v, uri) != ObjectInvalid {
		return errors.InvalidState(errors.PhaseStorage, "Cannot create group; %s already exists", uri)
	}
	if err := v.MkdirAll(storage.Join(uri, GroupDir)); err != nil {
		return err
	}
	return v.Touch(storage.Join(uri, GroupMarker))
}

// WriteMemberLog appends member changes to the group at uri.
func WriteMemberLog(v *storage.VFS, uri string, changes []MemberChange, ts uint64) error {
	if len(changes) == 0 {
		return nil
	}
	var e encoder
	e.u32(uint32(len(changes)))
	for _, c := range changes {
		e.bool(c.Removed)
		e.str(c.URI)
		e.str(c.Name)
		e.u32(c.Type)
		e.bool(c.Relative)
	}
	return v.WriteFile(storage.Join(uri, GroupDir, NewName(ts, ts)), e.compressed())
}

// LoadMembers replays the member log entries written in [start, end].
// Members keep their insertion order.
func LoadMembers(v *storage.VFS, uri string, start, end uint64) ([]Member, error) {
	logs, err := listEntries(v, storage.Join(uri, GroupDir), start, end)
	if err != nil {
		return nil, err
	}
	var members []Member
	for _, l := range logs {
		data, err := v.ReadFile(l.uri)
		if err != nil {
			return nil, err
		}
		d, err := newDecoder(l.uri, data)
		if err != nil {
			return nil, err
		}
		n := d.u32()
		for i := uint32(0); i < n && d.err == nil; i++ {
			c := MemberChange{Removed: d.bool()}
			c.URI, c.Name, c.Type, c.Relative = d.str(), d.str(), d.u32(), d.bool()
			if c.Removed {
				members = removeMember(members, c.Name)
				continue
			}
			members = append(removeMember(members, c.key()), c.Member)
		}
		if d.err != nil {
			return nil, d.err
		}
	}
	return members, nil
}

func (m Member) key() string {
	if m.Name != "" {
		return m.Name
	}
	return m.URI
}

func removeMember(ms []Member, nameOrURI string) []Member {
	out := ms[:0]
	for _, m := range ms {
		if m.Name == nameOrURI || strings.TrimSuffix(m.URI, "/") == strings.TrimSuffix(nameOrURI, "/") {
			continue
		}
		out = append(out, m)
	}
	return out
}
