package capi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFragmentInfo(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)
	writeSparse(t, ctx, uri, i32(4), i32(4), i32(44))

	var fi FragmentInfo
	must(t, ctx, FragmentInfoAlloc(ctx, uri, &fi), "FragmentInfoAlloc")
	defer FragmentInfoFree(&fi)

	var n uint32
	if st := FragmentInfoGetFragmentNum(ctx, fi, &n); st != Err {
		t.Errorf("FragmentInfoGetFragmentNum before load = %d, want Err", st)
	}
	must(t, ctx, FragmentInfoLoad(ctx, fi), "FragmentInfoLoad")
	must(t, ctx, FragmentInfoGetFragmentNum(ctx, fi, &n), "FragmentInfoGetFragmentNum")
	if n != 2 {
		t.Fatalf("fragments = %d, want 2", n)
	}

	var total uint64
	must(t, ctx, FragmentInfoGetTotalCellNum(ctx, fi, &total), "FragmentInfoGetTotalCellNum")
	if total != 4 {
		t.Errorf("total cells = %d, want 4", total)
	}

	var cells []uint64
	var prevEnd uint64
	for fid := uint32(0); fid < n; fid++ {
		var c, start, end uint64
		var sparse bool
		var version uint32
		var name string
		must(t, ctx, FragmentInfoGetCellNum(ctx, fi, fid, &c), "FragmentInfoGetCellNum")
		must(t, ctx, FragmentInfoGetTimestampRange(ctx, fi, fid, &start, &end), "FragmentInfoGetTimestampRange")
		must(t, ctx, FragmentInfoGetSparse(ctx, fi, fid, &sparse), "FragmentInfoGetSparse")
		must(t, ctx, FragmentInfoGetVersion(ctx, fi, fid, &version), "FragmentInfoGetVersion")
		must(t, ctx, FragmentInfoGetFragmentName(ctx, fi, fid, &name), "FragmentInfoGetFragmentName")
		cells = append(cells, c)
		if !sparse {
			t.Errorf("fragment %d not sparse", fid)
		}
		if version != 22 {
			t.Errorf("fragment %d version = %d", fid, version)
		}
		if end < prevEnd {
			t.Errorf("fragment %d out of timestamp order", fid)
		}
		if !strings.HasPrefix(name, "__") {
			t.Errorf("fragment name = %q", name)
		}
		prevEnd = end
	}
	if diff := cmp.Diff([]uint64{3, 1}, cells); diff != "" {
		t.Errorf("cell counts mismatch (-want +got):\n%s", diff)
	}

	domain := make([]byte, 8)
	must(t, ctx, FragmentInfoGetNonEmptyDomainFromName(ctx, fi, 0, "cols", domain), "FromName")
	if diff := cmp.Diff([]int32{1, 4}, toI32(domain)); diff != "" {
		t.Errorf("non-empty domain mismatch (-want +got):\n%s", diff)
	}
	if st := FragmentInfoGetNonEmptyDomainFromIndex(ctx, fi, 0, 5, domain); st != Err {
		t.Errorf("bad dimension index = %d, want Err", st)
	}
	var c uint64
	if st := FragmentInfoGetCellNum(ctx, fi, 9, &c); st != Err {
		t.Errorf("bad fragment index = %d, want Err", st)
	}

	var dump string
	must(t, ctx, FragmentInfoDumpStr(ctx, fi, &dump), "FragmentInfoDumpStr")
	if !strings.Contains(dump, "- Fragment num: 2") || !strings.Contains(dump, "Non-empty domain rows: [1, 2]") {
		t.Errorf("dump = %q", dump)
	}
}

func TestSchemaEvolution(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)

	var evo ArraySchemaEvolution
	must(t, ctx, ArraySchemaEvolutionAlloc(ctx, &evo), "ArraySchemaEvolutionAlloc")
	defer ArraySchemaEvolutionFree(&evo)
	var attr Attribute
	must(t, ctx, AttributeAlloc(ctx, "b", DatatypeFloat64, &attr), "AttributeAlloc")
	must(t, ctx, ArraySchemaEvolutionAddAttribute(ctx, evo, attr), "AddAttribute")
	if st := ArraySchemaEvolutionAddAttribute(ctx, evo, attr); st != Err {
		t.Errorf("second AddAttribute = %d, want Err", st)
	}
	AttributeFree(&attr)
	if st := ArraySchemaEvolutionSetTimestampRange(ctx, evo, 1, 2); st != Err {
		t.Errorf("unequal timestamp range = %d, want Err", st)
	}
	must(t, ctx, ArrayEvolve(ctx, uri, evo), "ArrayEvolve")

	var schema ArraySchema
	must(t, ctx, ArraySchemaLoad(ctx, uri, &schema), "ArraySchemaLoad")
	defer ArraySchemaFree(&schema)
	var has bool
	must(t, ctx, ArraySchemaHasAttribute(ctx, schema, "b", &has), "HasAttribute")
	if !has {
		t.Fatal("evolved schema lacks attribute b")
	}

	var drop ArraySchemaEvolution
	must(t, ctx, ArraySchemaEvolutionAlloc(ctx, &drop), "ArraySchemaEvolutionAlloc")
	defer ArraySchemaEvolutionFree(&drop)
	must(t, ctx, ArraySchemaEvolutionDropAttribute(ctx, drop, "rows"), "DropAttribute")
	if st := ArrayEvolve(ctx, uri, drop); st != Err {
		t.Fatalf("dropping a dimension = %d, want Err", st)
	}
	if msg := lastError(ctx); !strings.Contains(msg, "Cannot drop dimension") {
		t.Errorf("last error = %q", msg)
	}

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	a, b := make([]byte, 64), make([]byte, 128)
	sizes := []uint64{64, 128}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[0]), "set a")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "b", b, &sizes[1]), "set b")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
	if sizes[0] != 64 || sizes[1] != 128 {
		t.Errorf("sizes = %v, want [64 128]", sizes)
	}
	if got := toI32(a[:8]); !cmp.Equal(got, []int32{1, 2}) {
		t.Errorf("a = %v", got)
	}
}
