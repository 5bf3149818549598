package tiledb

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wippyai/tiledb-go/errors"
)

func TestArrayMetadata(t *testing.T) {
	ctx := newTestContext(t)
	uri := dense4x4(t, ctx)

	w := openArray(t, ctx, uri, QueryTypeWrite)
	must(t, PutMetadata(w, "scale", 1.5, 2.5), "PutMetadata")
	must(t, w.PutMetadataString("unit", "m"), "PutMetadataString")
	must(t, PutMetadata[int32](w, "gone", 1), "PutMetadata gone")
	must(t, w.DeleteMetadata("gone"), "DeleteMetadata")
	if err := PutMetadata[int32](w, "empty"); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("PutMetadata without values err = %v", err)
	}
	must(t, w.Close(), "Close")

	r := openArray(t, ctx, uri, QueryTypeRead)
	scale, err := MetadataValues[float64](r, "scale")
	must(t, err, "MetadataValues")
	if diff := cmp.Diff([]float64{1.5, 2.5}, scale); diff != "" {
		t.Errorf("scale mismatch (-want +got):\n%s", diff)
	}
	if _, err := MetadataValues[int64](r, "scale"); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("int64 read of FLOAT64 err = %v", err)
	}
	unit, err := r.GetMetadataString("unit")
	must(t, err, "GetMetadataString")
	if unit != "m" {
		t.Errorf("unit = %q", unit)
	}
	if _, err := r.GetMetadataString("scale"); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("string read of FLOAT64 err = %v", err)
	}
	if _, err := r.GetMetadata("gone"); errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("deleted key err = %v, want not found", err)
	}
	dt, has, err := r.HasMetadata("scale")
	must(t, err, "HasMetadata")
	if !has || dt != DatatypeFloat64 {
		t.Errorf("HasMetadata = %v, %v", dt, has)
	}
	dt, has, err = r.HasMetadata("missing")
	must(t, err, "HasMetadata missing")
	if has || dt != DatatypeAny {
		t.Errorf("HasMetadata(missing) = %v, %v, want %v, false", dt, has, DatatypeAny)
	}
	keys, err := r.MetadataKeys()
	must(t, err, "MetadataKeys")
	if diff := cmp.Diff([]string{"scale", "unit"}, keys, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	v, err := r.GetMetadata("scale")
	must(t, err, "GetMetadata")
	decoded, err := v.Value()
	must(t, err, "Value")
	if diff := cmp.Diff([]float64{1.5, 2.5}, decoded); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupMembers(t *testing.T) {
	ctx := newTestContext(t)
	groupURI := memURI(t, "grp")
	must(t, CreateGroup(ctx, groupURI), "CreateGroup")
	arrayURI := createArray(t, ctx, "grp/arr", ArrayDense, DatatypeInt32,
		map[string][3]int32{"d": {1, 4, 4}}, []string{"d"},
		[]testAttr{{name: "a", dt: DatatypeInt32}})
	subURI := memURI(t, "sub")
	must(t, CreateGroup(ctx, subURI), "CreateGroup sub")

	g, err := NewGroup(ctx, groupURI)
	must(t, err, "NewGroup")
	defer g.Free()
	must(t, g.Open(QueryTypeWrite), "Open write")
	must(t, g.AddMember("arr", true, "data"), "add arr")
	must(t, g.AddMember(subURI, false, "sub"), "add sub")
	if err := g.AddMember("nothing", true, "x"); err == nil {
		t.Error("adding a missing object succeeded")
	}
	must(t, PutMetadata[int64](g, "version", 3), "PutMetadata")
	must(t, g.Close(), "Close")

	must(t, g.Open(QueryTypeRead), "Open read")
	defer g.Close()
	members, err := g.Members()
	must(t, err, "Members")
	want := []GroupMember{
		{URI: arrayURI, Type: ObjectArray, Name: "data"},
		{URI: subURI, Type: ObjectGroup, Name: "sub"},
	}
	if diff := cmp.Diff(want, members); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	m, err := g.MemberByName("data")
	must(t, err, "MemberByName")
	if m.URI != arrayURI || m.Type != ObjectArray {
		t.Errorf("MemberByName = %+v", m)
	}
	if _, err := g.MemberByName("nope"); err == nil {
		t.Error("MemberByName(nope) succeeded")
	}
	rel, err := g.IsRelativeURIByName("data")
	must(t, err, "IsRelativeURIByName")
	if !rel {
		t.Error("data is not relative")
	}
	version, err := MetadataValues[int64](g, "version")
	must(t, err, "MetadataValues")
	if !cmp.Equal(version, []int64{3}) {
		t.Errorf("version = %v", version)
	}
	dump, err := g.Dump(false)
	must(t, err, "Dump")
	if !strings.Contains(dump, "data ARRAY") || !strings.Contains(dump, "sub GROUP") {
		t.Errorf("dump = %q", dump)
	}
	qt, err := g.QueryType()
	must(t, err, "QueryType")
	if qt != QueryTypeRead {
		t.Errorf("QueryType = %v", qt)
	}
}

func TestWalk(t *testing.T) {
	ctx := newTestContext(t)
	root := strings.TrimSuffix(memURI(t, ""), "/")
	must(t, CreateGroup(ctx, root+"/grp"), "CreateGroup")
	createArray(t, ctx, "grp/arr", ArrayDense, DatatypeInt32,
		map[string][3]int32{"d": {1, 4, 4}}, []string{"d"},
		[]testAttr{{name: "a", dt: DatatypeInt32}})
	must(t, CreateGroup(ctx, root+"/sub"), "CreateGroup sub")

	tests := []struct {
		name  string
		order WalkOrder
		want  []Object
	}{
		{"preorder", WalkPreorder, []Object{
			{root + "/grp", ObjectGroup}, {root + "/grp/arr", ObjectArray}, {root + "/sub", ObjectGroup},
		}},
		{"postorder", WalkPostorder, []Object{
			{root + "/grp/arr", ObjectArray}, {root + "/grp", ObjectGroup}, {root + "/sub", ObjectGroup},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Object
			must(t, ctx.Walk(root, tt.order, func(uri string, ot ObjectType) (bool, error) {
				got = append(got, Object{URI: uri, Type: ot})
				return true, nil
			}), "Walk")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("walk mismatch (-want +got):\n%s", diff)
			}
		})
	}

	children, err := ctx.ChildObjects(root)
	must(t, err, "ChildObjects")
	if len(children) != 2 {
		t.Errorf("children = %v", children)
	}

	stop := errors.InvalidState(errors.PhaseValidate, "stop")
	if err := ctx.Walk(root, WalkPreorder, func(string, ObjectType) (bool, error) { return false, stop }); err != stop {
		t.Errorf("Walk err = %v, want callback error", err)
	}

	ot, err := ctx.ObjectType(root + "/grp/arr")
	must(t, err, "ObjectType")
	if ot != ObjectArray {
		t.Errorf("ObjectType = %v", ot)
	}
}

func TestVFS(t *testing.T) {
	ctx := newTestContext(t)
	vfs, err := NewVFS(ctx, nil)
	must(t, err, "NewVFS")
	defer vfs.Free()

	dir := memURI(t, "dir")
	file := dir + "/data.bin"
	must(t, vfs.CreateDir(dir), "CreateDir")

	f, err := vfs.Open(file, VFSWrite)
	must(t, err, "Open write")
	if _, err := io.WriteString(f, "hello world"); err != nil {
		t.Fatalf("write: %v", err)
	}
	must(t, f.Close(), "Close")
	closed, err := f.IsClosed()
	must(t, err, "IsClosed")
	if !closed {
		t.Error("file not closed")
	}
	f.Free()

	size, err := vfs.FileSize(file)
	must(t, err, "FileSize")
	if size != 11 {
		t.Errorf("size = %d, want 11", size)
	}

	r, err := vfs.Open(file, VFSRead)
	must(t, err, "Open read")
	defer r.Free()
	buf := make([]byte, 5)
	n, err := r.ReadAt(buf, 6)
	if err != nil || string(buf[:n]) != "world" {
		t.Errorf("ReadAt(6) = %q, %v", buf[:n], err)
	}
	n, err = r.ReadAt(buf, 8)
	if err != io.EOF || string(buf[:n]) != "rld" {
		t.Errorf("ReadAt(8) = %q, %v; want short read with EOF", buf[:n], err)
	}
	if _, err := r.ReadAt(buf, 20); err != io.EOF {
		t.Errorf("ReadAt past end err = %v", err)
	}
	if _, err := r.ReadAt(buf, -1); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("negative offset err = %v", err)
	}

	must(t, vfs.Touch(dir+"/empty"), "Touch")
	must(t, vfs.CreateDir(dir+"/nested"), "CreateDir nested")
	children, err := vfs.Children(dir)
	must(t, err, "Children")
	if diff := cmp.Diff([]string{file, dir + "/empty", dir + "/nested"}, children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	var visited int
	must(t, vfs.VisitChildren(dir, func(string) (bool, error) {
		visited++
		return false, nil
	}), "VisitChildren")
	if visited != 1 {
		t.Errorf("visited %d children after stop", visited)
	}

	copied := memURI(t, "copy")
	must(t, vfs.CopyDir(dir, copied), "CopyDir")
	isFile, err := vfs.IsFile(copied + "/data.bin")
	must(t, err, "IsFile")
	if !isFile {
		t.Error("copy lacks data.bin")
	}
	dirSize, err := vfs.DirSize(copied)
	must(t, err, "DirSize")
	if dirSize != 11 {
		t.Errorf("DirSize = %d, want 11", dirSize)
	}
	must(t, vfs.MoveFile(copied+"/data.bin", copied+"/moved.bin"), "MoveFile")
	must(t, vfs.RemoveFile(copied+"/moved.bin"), "RemoveFile")
	must(t, vfs.RemoveDir(copied), "RemoveDir")
	isDir, err := vfs.IsDir(copied)
	must(t, err, "IsDir")
	if isDir {
		t.Error("removed directory still exists")
	}
}

func TestFragmentInfo(t *testing.T) {
	ctx := newTestContext(t)
	uri := sparse2D(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	q, err := NewQuery(ctx, arr, QueryTypeWrite)
	must(t, err, "NewQuery")
	must(t, SetDataBuffer(q, "rows", []int32{4}), "set rows")
	must(t, SetDataBuffer(q, "cols", []int32{4}), "set cols")
	must(t, SetDataBuffer(q, "a", []int32{44}), "set a")
	must(t, q.Submit(), "Submit")
	q.Free()
	must(t, arr.Close(), "Close")

	fi, err := NewFragmentInfo(ctx, uri)
	must(t, err, "NewFragmentInfo")
	defer fi.Free()
	if _, err := fi.FragmentNum(); err == nil {
		t.Error("FragmentNum before Load succeeded")
	}
	must(t, fi.Load(), "Load")
	n, err := fi.FragmentNum()
	must(t, err, "FragmentNum")
	if n != 2 {
		t.Fatalf("fragments = %d, want 2", n)
	}
	total, err := fi.TotalCellNum()
	must(t, err, "TotalCellNum")
	if total != 4 {
		t.Errorf("total cells = %d, want 4", total)
	}

	var cells []uint64
	for fid := uint32(0); fid < n; fid++ {
		c, err := fi.CellNum(fid)
		must(t, err, "CellNum")
		cells = append(cells, c)
		sparse, err := fi.IsSparse(fid)
		must(t, err, "IsSparse")
		version, err := fi.Version(fid)
		must(t, err, "Version")
		name, err := fi.FragmentName(fid)
		must(t, err, "FragmentName")
		if !sparse || version != 22 || !strings.HasPrefix(name, "__") {
			t.Errorf("fragment %d: sparse=%v version=%d name=%q", fid, sparse, version, name)
		}
	}
	if diff := cmp.Diff([]uint64{3, 1}, cells); diff != "" {
		t.Errorf("cell counts mismatch (-want +got):\n%s", diff)
	}

	cols, err := FragmentNonEmptyDomainFromName[int32](fi, 0, "cols")
	must(t, err, "FragmentNonEmptyDomainFromName")
	if cols != (Range[int32]{Start: 1, End: 4}) {
		t.Errorf("cols = %+v", cols)
	}
	rows, err := FragmentNonEmptyDomain[int32](fi, 1, 0)
	must(t, err, "FragmentNonEmptyDomain")
	if rows != (Range[int32]{Start: 4, End: 4}) {
		t.Errorf("rows of fragment 1 = %+v", rows)
	}
	if _, err := FragmentNonEmptyDomain[int64](fi, 0, 0); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("int64 domain err = %v", err)
	}

	r := openArray(t, ctx, uri, QueryTypeRead)
	full, isEmpty, err := NonEmptyDomainFromName[int32](r, "rows")
	must(t, err, "NonEmptyDomainFromName")
	if isEmpty || full != (Range[int32]{Start: 1, End: 4}) {
		t.Errorf("rows = %+v empty=%v", full, isEmpty)
	}
	bounds, _, err := r.NonEmptyDomain()
	must(t, err, "NonEmptyDomain")
	if len(bounds) != 2 || bounds[1].Name != "cols" || bounds[1].Lo != int32(1) || bounds[1].Hi != int32(4) {
		t.Errorf("bounds = %+v", bounds)
	}
}

func TestEmptyArrayNonEmptyDomain(t *testing.T) {
	ctx := newTestContext(t)
	uri := createArray(t, ctx, "empty", ArraySparse, DatatypeInt32,
		map[string][3]int32{"d": {1, 10, 5}}, []string{"d"},
		[]testAttr{{name: "a", dt: DatatypeInt32}})
	arr := openArray(t, ctx, uri, QueryTypeRead)
	bounds, isEmpty, err := arr.NonEmptyDomain()
	must(t, err, "NonEmptyDomain")
	if !isEmpty || bounds != nil {
		t.Errorf("NonEmptyDomain = %v, empty=%v", bounds, isEmpty)
	}
}

func TestSubarrayRanges(t *testing.T) {
	ctx := newTestContext(t)
	uri := dense4x4(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeRead)

	sub, err := NewSubarray(ctx, arr)
	must(t, err, "NewSubarray")
	defer sub.Free()

	if err := SetSubarray(sub, Range[int32]{1, 2}); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("one range for two dimensions err = %v", err)
	}
	if err := AddRange(sub, 0, Range[int64]{1, 2}); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("int64 range on INT32 err = %v", err)
	}
	must(t, AddRange(sub, 0, Range[int32]{1, 1}), "AddRange")
	must(t, AddRange(sub, 0, Range[int32]{3, 4}), "AddRange")
	must(t, AddRangeByName(sub, "cols", Range[int32]{2, 3}), "AddRangeByName")

	n, err := sub.RangeNum(0)
	must(t, err, "RangeNum")
	if n != 2 {
		t.Errorf("rows ranges = %d, want 2", n)
	}
	got, err := GetRange[int32](sub, 0, 1)
	must(t, err, "GetRange")
	if got != (Range[int32]{Start: 3, End: 4}) {
		t.Errorf("GetRange = %+v", got)
	}
	cols, err := GetRangeFromName[int32](sub, "cols", 0)
	must(t, err, "GetRangeFromName")
	if cols != (Range[int32]{Start: 2, End: 3}) {
		t.Errorf("cols range = %+v", cols)
	}

	q, err := NewQuery(ctx, arr, QueryTypeRead)
	must(t, err, "NewQuery")
	defer q.Free()
	must(t, q.SetSubarray(sub), "SetSubarray")
	a := make([]int32, 6)
	must(t, SetDataBuffer(q, "a", a), "SetDataBuffer")
	must(t, q.Submit(), "Submit")
	if diff := cmp.Diff([]int32{2, 3, 10, 11, 14, 15}, a); diff != "" {
		t.Errorf("multi-range read mismatch (-want +got):\n%s", diff)
	}
}
