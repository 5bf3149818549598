package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/tiledb-go"
)

type pane string

const (
	paneSchema    pane = "schema"
	paneFragments pane = "fragments"
	paneMembers   pane = "members"
	paneMetadata  pane = "metadata"
)

func panesFor(t tiledb.ObjectType) []pane {
	if t == tiledb.ObjectGroup {
		return []pane{paneMembers, paneMetadata}
	}
	return []pane{paneSchema, paneFragments, paneMetadata}
}

// listObjects returns uri itself followed by every array and group below it
// in preorder. A plain directory yields only its descendants.
func listObjects(ctx *tiledb.Context, uri string) ([]tiledb.Object, error) {
	t, err := ctx.ObjectType(uri)
	if err != nil {
		return nil, err
	}
	var out []tiledb.Object
	switch t {
	case tiledb.ObjectArray:
		return []tiledb.Object{{URI: uri, Type: t}}, nil
	case tiledb.ObjectGroup:
		out = append(out, tiledb.Object{URI: uri, Type: t})
	}
	err = ctx.Walk(uri, tiledb.WalkPreorder, func(child string, ct tiledb.ObjectType) (bool, error) {
		out = append(out, tiledb.Object{URI: child, Type: ct})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no array or group at %s", uri)
	}
	return out, nil
}

func describe(ctx *tiledb.Context, obj tiledb.Object, p pane) (string, error) {
	switch p {
	case paneSchema:
		schema, err := tiledb.LoadArraySchema(ctx, obj.URI)
		if err != nil {
			return "", err
		}
		defer schema.Free()
		return schema.Dump()
	case paneFragments:
		return describeFragments(ctx, obj.URI)
	case paneMembers:
		return describeMembers(ctx, obj.URI)
	case paneMetadata:
		return describeMetadata(ctx, obj)
	}
	return "", fmt.Errorf("unknown pane %q", p)
}

func describeFragments(ctx *tiledb.Context, uri string) (string, error) {
	fi, err := tiledb.NewFragmentInfo(ctx, uri)
	if err != nil {
		return "", err
	}
	defer fi.Free()
	if err := fi.Load(); err != nil {
		return "", err
	}
	n, err := fi.FragmentNum()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "no fragments", nil
	}

	var b strings.Builder
	for fid := uint32(0); fid < n; fid++ {
		name, err := fi.FragmentName(fid)
		if err != nil {
			return "", err
		}
		cells, err := fi.CellNum(fid)
		if err != nil {
			return "", err
		}
		size, err := fi.FragmentSize(fid)
		if err != nil {
			return "", err
		}
		start, end, err := fi.TimestampRange(fid)
		if err != nil {
			return "", err
		}
		dense, err := fi.IsDense(fid)
		if err != nil {
			return "", err
		}
		kind := "sparse"
		if dense {
			kind = "dense"
		}
		fmt.Fprintf(&b, "%d %s %s cells=%d bytes=%d ts=[%d, %d]\n", fid, name, kind, cells, size, start, end)
	}
	return b.String(), nil
}

func describeMembers(ctx *tiledb.Context, uri string) (string, error) {
	g, err := tiledb.NewGroup(ctx, uri)
	if err != nil {
		return "", err
	}
	defer g.Free()
	if err := g.Open(tiledb.QueryTypeRead); err != nil {
		return "", err
	}
	defer g.Close()
	return g.Dump(true)
}

func describeMetadata(ctx *tiledb.Context, obj tiledb.Object) (string, error) {
	var md tiledb.Metadata
	if obj.Type == tiledb.ObjectGroup {
		g, err := tiledb.NewGroup(ctx, obj.URI)
		if err != nil {
			return "", err
		}
		defer g.Free()
		if err := g.Open(tiledb.QueryTypeRead); err != nil {
			return "", err
		}
		defer g.Close()
		md = g
	} else {
		a, err := tiledb.NewArray(ctx, obj.URI)
		if err != nil {
			return "", err
		}
		defer a.Free()
		if err := a.Open(tiledb.QueryTypeRead); err != nil {
			return "", err
		}
		defer a.Close()
		md = a
	}

	keys, err := md.MetadataKeys()
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "no metadata", nil
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v, err := md.GetMetadata(k)
		if err != nil {
			return "", err
		}
		val, err := v.Value()
		if err != nil {
			val = fmt.Sprintf("<%d bytes>", len(v.Bytes))
		}
		fmt.Fprintf(&b, "%s (%s) = %v\n", k, v.Datatype, val)
	}
	return b.String(), nil
}
