package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/resource"
)

// GroupMember is one entry of a group. Name is empty for unnamed members.
type GroupMember struct {
	URI  string
	Type ObjectType
	Name string
}

// Group is a named collection of arrays and other groups with its own
// metadata.
type Group struct {
	metaStore
	ctx *Context
	h   *resource.Handle[capi.Group]
}

// CreateGroup creates an empty group at uri.
func CreateGroup(ctx *Context, uri string) error {
	return ctx.do(func(c capi.Ctx) capi.Status { return capi.GroupCreate(c, uri) })
}

// NewGroup allocates a handle for the group at uri. It starts closed.
func NewGroup(ctx *Context, uri string) (*Group, error) {
	var p capi.Group
	if err := ctx.do(func(c capi.Ctx) capi.Status { return capi.GroupAlloc(c, uri, &p) }); err != nil {
		return nil, err
	}
	h, err := own(p, capi.GroupFree)
	if err != nil {
		return nil, err
	}
	g := &Group{ctx: ctx, h: h}
	g.metaStore = groupMetadata(g)
	return g, nil
}

// Free releases the handle. An open group is closed first.
func (g *Group) Free() {
	g.h.Free()
}

func (g *Group) call(fn func(capi.Ctx, capi.Group) capi.Status) error {
	return call(g.ctx, g.h, fn)
}

// Open opens the group for reading or writing.
func (g *Group) Open(mode QueryType) error {
	return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupOpen(c, p, capi.QueryType(mode)) })
}

// Close persists member changes and metadata of a group open for writing.
func (g *Group) Close() error {
	return g.call(capi.GroupClose)
}

func (g *Group) IsOpen() (bool, error) {
	var open bool
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupIsOpen(c, p, &open) })
	return open, err
}

func (g *Group) QueryType() (QueryType, error) {
	var qt capi.QueryType
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetQueryType(c, p, &qt) })
	return QueryType(qt), err
}

func (g *Group) URI() (string, error) {
	var uri string
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetURI(c, p, &uri) })
	return uri, err
}

// SetConfig sets the group's config. The group must be closed.
func (g *Group) SetConfig(cfg *Config) error {
	if cfg == nil {
		return nilArg("config")
	}
	return callArg(g.ctx, g.h, cfg.h, capi.GroupSetConfig)
}

func (g *Group) Config() (*Config, error) {
	var cfg capi.Config
	if err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetConfig(c, p, &cfg) }); err != nil {
		return nil, err
	}
	return newConfig(cfg)
}

// AddMember adds the array or group at uri. A relative uri is resolved
// against the group's URI. name may be empty.
func (g *Group) AddMember(uri string, relative bool, name string) error {
	return g.call(func(c capi.Ctx, p capi.Group) capi.Status {
		return capi.GroupAddMember(c, p, uri, relative, name)
	})
}

// RemoveMember removes a member by name or URI.
func (g *Group) RemoveMember(nameOrURI string) error {
	return g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupRemoveMember(c, p, nameOrURI) })
}

func (g *Group) MemberCount() (uint64, error) {
	var n uint64
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupGetMemberCount(c, p, &n) })
	return n, err
}

func (g *Group) MemberByIndex(idx uint64) (GroupMember, error) {
	var (
		m GroupMember
		t capi.ObjectType
	)
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status {
		return capi.GroupGetMemberByIndex(c, p, idx, &m.URI, &t, &m.Name)
	})
	m.Type = ObjectType(t)
	return m, err
}

func (g *Group) MemberByName(name string) (GroupMember, error) {
	m := GroupMember{Name: name}
	var t capi.ObjectType
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status {
		return capi.GroupGetMemberByName(c, p, name, &m.URI, &t)
	})
	m.Type = ObjectType(t)
	return m, err
}

// Members returns every member in index order.
func (g *Group) Members() ([]GroupMember, error) {
	n, err := g.MemberCount()
	if err != nil {
		return nil, err
	}
	out := make([]GroupMember, 0, n)
	for i := uint64(0); i < n; i++ {
		m, err := g.MemberByIndex(i)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// IsRelativeURIByName reports whether the named member was added with a
// relative URI.
func (g *Group) IsRelativeURIByName(name string) (bool, error) {
	var rel bool
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status {
		return capi.GroupGetIsRelativeURIByName(c, p, name, &rel)
	})
	return rel, err
}

// Dump renders the member tree, descending into subgroups when recursive is
// set.
func (g *Group) Dump(recursive bool) (string, error) {
	var s string
	err := g.call(func(c capi.Ctx, p capi.Group) capi.Status { return capi.GroupDumpStr(c, p, recursive, &s) })
	return s, err
}
