package capi

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

type groupObj struct {
	uri     string
	cfg     *configObj
	open    bool
	mode    QueryType
	members []format.Member
	changes []format.MemberChange
	meta    metaStore
}

// GroupCreate creates an empty group at uri.
func GroupCreate(ctx Ctx, uri string) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		if err := format.CreateGroup(c.vfs, uri); err != nil {
			return err
		}
		c.log.Info("group created", zap.String("uri", uri))
		return nil
	})
}

func GroupAlloc(ctx Ctx, uri string, g *Group) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		if err := checkURI(uri); err != nil {
			return err
		}
		return put(kindGroup, &groupObj{uri: uri, meta: metaStore{owner: "Group"}}, g)
	})
}

// GroupFree releases the group. An open group is closed first; failures of
// that close are logged.
func GroupFree(g *Group) {
	if g == nil {
		return
	}
	if o, err := g.obj(); err == nil && o.open {
		if err := o.close(storage.New(0)); err != nil {
			Logger().Warn("closing group on free failed", zap.String("uri", o.uri), zap.Error(err))
		}
	}
	drop(kindGroup, g)
}

func withGroup(ctx Ctx, g Group, fn func(c *ctxObj, o *groupObj) error) Status {
	return withCtx(ctx, func(c *ctxObj) error {
		o, err := g.obj()
		if err != nil {
			return err
		}
		return fn(c, o)
	})
}

func (g *groupObj) requireMode(what string, mode QueryType) error {
	if !g.open {
		return errors.InvalidState(errors.PhaseNative, "Cannot %s; Group is not open", what)
	}
	if g.mode != mode {
		return errors.InvalidState(errors.PhaseNative, "Cannot %s; Group was not opened in %s mode", what, queryTypeName(mode))
	}
	return nil
}

func GroupOpen(ctx Ctx, g Group, mode QueryType) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if o.open {
			return errors.InvalidState(errors.PhaseNative, "Cannot open group; Group already open")
		}
		if mode != QueryTypeRead && mode != QueryTypeWrite {
			return errors.InvalidInput(errors.PhaseNative, "Cannot open group; Invalid query type %s", queryTypeName(mode))
		}
		if !format.IsGroup(c.vfs, o.uri) {
			return errors.NotFound(errors.PhaseNative, "Cannot open group; group", o.uri)
		}
		end := format.Now()
		members, err := format.LoadMembers(c.vfs, o.uri, 0, end)
		if err != nil {
			return err
		}
		if mode == QueryTypeRead {
			if err := o.meta.load(c.vfs, o.uri, 0, end); err != nil {
				return err
			}
		}
		o.members, o.changes, o.mode, o.open = members, nil, mode, true
		c.log.Debug("group opened", zap.String("uri", o.uri), zap.Int("members", len(members)))
		return nil
	})
}

// close persists member changes and metadata of a group open for writing.
func (g *groupObj) close(v *storage.VFS) error {
	if !g.open {
		return nil
	}
	var err error
	if g.mode == QueryTypeWrite {
		ts := format.Now()
		err = multierr.Append(
			format.WriteMemberLog(v, g.uri, g.changes, ts),
			g.meta.flush(v, g.uri, ts),
		)
	}
	g.open = false
	g.members, g.changes = nil, nil
	g.meta.entries, g.meta.pending = nil, nil
	return err
}

func GroupClose(ctx Ctx, g Group) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		return o.close(c.vfs)
	})
}

func GroupIsOpen(ctx Ctx, g Group, open *bool) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		*open = o.open
		return nil
	})
}

func GroupGetQueryType(ctx Ctx, g Group, mode *QueryType) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if !o.open {
			return errors.InvalidState(errors.PhaseNative, "Cannot get query type; Group is not open")
		}
		*mode = o.mode
		return nil
	})
}

func GroupGetURI(ctx Ctx, g Group, uri *string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		*uri = o.uri
		return nil
	})
}

func GroupSetConfig(ctx Ctx, g Group, cfg Config) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		co, err := cfg.obj()
		if err != nil {
			return err
		}
		if o.open {
			return errors.InvalidState(errors.PhaseNative, "Cannot set config; Group is open")
		}
		o.cfg = co.clone()
		return nil
	})
}

func GroupGetConfig(ctx Ctx, g Group, cfg *Config) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		src := o.cfg
		if src == nil {
			src = c.cfg
		}
		return put(kindConfig, src.clone(), cfg)
	})
}

func (g *groupObj) indexOf(nameOrURI string) int {
	trimmed := strings.TrimSuffix(nameOrURI, "/")
	for i, m := range g.members {
		if m.Name == nameOrURI || strings.TrimSuffix(m.URI, "/") == trimmed {
			return i
		}
	}
	return -1
}

// GroupAddMember adds an array or group to the group. A relative uri is
// resolved against the group's URI. name may be empty.
func GroupAddMember(ctx Ctx, g Group, uri string, relative bool, name string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("add member", QueryTypeWrite); err != nil {
			return err
		}
		m := format.Member{URI: uri, Name: name, Relative: relative}
		t := format.ObjectType(c.vfs, m.Resolve(o.uri))
		if t == format.ObjectInvalid {
			return errors.InvalidInput(errors.PhaseNative, "Cannot add member; %s is not an array or group", m.Resolve(o.uri))
		}
		m.Type = t
		key := name
		if key == "" {
			key = uri
		}
		if o.indexOf(key) >= 0 {
			return errors.InvalidInput(errors.PhaseNative, "Cannot add member; %q is already a member of the group", key)
		}
		o.members = append(o.members, m)
		o.changes = append(o.changes, format.MemberChange{Member: m})
		return nil
	})
}

// GroupRemoveMember removes a member by name or URI.
func GroupRemoveMember(ctx Ctx, g Group, nameOrURI string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("remove member", QueryTypeWrite); err != nil {
			return err
		}
		i := o.indexOf(nameOrURI)
		if i < 0 {
			return errors.NotFound(errors.PhaseNative, "Cannot remove member; member", nameOrURI)
		}
		o.members = append(o.members[:i], o.members[i+1:]...)
		o.changes = append(o.changes, format.MemberChange{Member: format.Member{Name: nameOrURI}, Removed: true})
		return nil
	})
}

func GroupGetMemberCount(ctx Ctx, g Group, n *uint64) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get member count", QueryTypeRead); err != nil {
			return err
		}
		*n = uint64(len(o.members))
		return nil
	})
}

// GroupGetMemberByIndex returns member idx. name is empty for unnamed
// members.
func GroupGetMemberByIndex(ctx Ctx, g Group, idx uint64, uri *string, t *ObjectType, name *string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get member", QueryTypeRead); err != nil {
			return err
		}
		if idx >= uint64(len(o.members)) {
			return errors.OutOfBounds(errors.PhaseNative, []string{"group", "members"}, int(idx), len(o.members))
		}
		m := o.members[idx]
		*uri, *t, *name = m.Resolve(o.uri), ObjectType(m.Type), m.Name
		return nil
	})
}

func (g *groupObj) byName(name string) (format.Member, error) {
	for _, m := range g.members {
		if m.Name == name {
			return m, nil
		}
	}
	return format.Member{}, errors.NotFound(errors.PhaseNative, "Cannot get member; member", name)
}

func GroupGetMemberByName(ctx Ctx, g Group, name string, uri *string, t *ObjectType) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get member", QueryTypeRead); err != nil {
			return err
		}
		m, err := o.byName(name)
		if err != nil {
			return err
		}
		*uri, *t = m.Resolve(o.uri), ObjectType(m.Type)
		return nil
	})
}

func GroupGetIsRelativeURIByName(ctx Ctx, g Group, name string, relative *bool) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get member", QueryTypeRead); err != nil {
			return err
		}
		m, err := o.byName(name)
		if err != nil {
			return err
		}
		*relative = m.Relative
		return nil
	})
}

func dumpGroup(c *ctxObj, b *strings.Builder, uri string, members []format.Member, depth int, recursive bool) error {
	indent := strings.Repeat("  ", depth)
	if depth == 0 {
		fmt.Fprintf(b, "%s GROUP\n", storage.Base(uri))
	}
	for _, m := range members {
		target := m.Resolve(uri)
		kind := "ARRAY"
		if m.Type == format.ObjectGroup {
			kind = "GROUP"
		}
		label := m.Name
		if label == "" {
			label = storage.Base(target)
		}
		fmt.Fprintf(b, "%s|-- %s %s\n", indent, label, kind)
		if recursive && m.Type == format.ObjectGroup && format.IsGroup(c.vfs, target) {
			sub, err := format.LoadMembers(c.vfs, target, 0, format.Now())
			if err != nil {
				return err
			}
			if err := dumpGroup(c, b, target, sub, depth+1, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// GroupDumpStr renders the member tree, descending into subgroups when
// recursive is set.
func GroupDumpStr(ctx Ctx, g Group, recursive bool, out *string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("dump group", QueryTypeRead); err != nil {
			return err
		}
		var b strings.Builder
		if err := dumpGroup(c, &b, o.uri, o.members, 0, recursive); err != nil {
			return err
		}
		*out = b.String()
		return nil
	})
}

func GroupPutMetadata(ctx Ctx, g Group, key string, dt Datatype, num uint32, value []byte) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("put metadata", QueryTypeWrite); err != nil {
			return err
		}
		return o.meta.put(key, dt, num, value)
	})
}

func GroupDeleteMetadata(ctx Ctx, g Group, key string) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("delete metadata", QueryTypeWrite); err != nil {
			return err
		}
		return o.meta.remove(key)
	})
}

func GroupGetMetadata(ctx Ctx, g Group, key string, dt *Datatype, num *uint32, value *[]byte) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get metadata", QueryTypeRead); err != nil {
			return err
		}
		e, ok := o.meta.find(key)
		metaOut(e, ok, dt, num, value)
		return nil
	})
}

func GroupGetMetadataNum(ctx Ctx, g Group, n *uint64) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get metadata number", QueryTypeRead); err != nil {
			return err
		}
		*n = uint64(len(o.meta.entries))
		return nil
	})
}

func GroupGetMetadataFromIndex(ctx Ctx, g Group, idx uint64, key *string, dt *Datatype, num *uint32, value *[]byte) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("get metadata", QueryTypeRead); err != nil {
			return err
		}
		e, err := o.meta.at(idx)
		if err != nil {
			return err
		}
		*key = e.Key
		metaOut(e, true, dt, num, value)
		return nil
	})
}

func GroupHasMetadataKey(ctx Ctx, g Group, key string, dt *Datatype, has *bool) Status {
	return withGroup(ctx, g, func(c *ctxObj, o *groupObj) error {
		if err := o.requireMode("check metadata key", QueryTypeRead); err != nil {
			return err
		}
		e, ok := o.meta.find(key)
		*has = ok
		*dt = DatatypeAny
		if ok {
			*dt = e.Datatype
		}
		return nil
	})
}
