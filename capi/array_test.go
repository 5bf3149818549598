package capi

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/tiledb-go/capi/internal/format"
)

func TestArrayOpenMissingRecordsLastError(t *testing.T) {
	ctx := newTestCtx(t)
	var arr Array
	must(t, ctx, ArrayAlloc(ctx, memURI(t, "missing"), &arr), "ArrayAlloc")
	defer ArrayFree(&arr)

	if st := ArrayOpen(ctx, arr, QueryTypeRead); st != Err {
		t.Fatalf("ArrayOpen = %d, want Err", st)
	}
	var e Error
	if st := CtxGetLastError(ctx, &e); st != OK || e == 0 {
		t.Fatalf("CtxGetLastError = %d, error %d", st, e)
	}
	var msg string
	if st := ErrorMessage(e, &msg); st != OK {
		t.Fatalf("ErrorMessage = %d", st)
	}
	ErrorFree(&e)
	if e != 0 {
		t.Error("ErrorFree did not zero the pointer")
	}
	if !strings.Contains(msg, "not found") {
		t.Errorf("message = %q", msg)
	}
}

func TestLastErrorEmptyWhenNothingFailed(t *testing.T) {
	ctx := newTestCtx(t)
	var e Error = 99
	if st := CtxGetLastError(ctx, &e); st != OK {
		t.Fatalf("CtxGetLastError = %d", st)
	}
	if e != 0 {
		t.Errorf("error = %d, want null", e)
	}
}

func TestInvalidHandles(t *testing.T) {
	ctx := newTestCtx(t)
	var open bool
	if st := ArrayIsOpen(ctx, Array(12345), &open); st != Err {
		t.Errorf("ArrayIsOpen(bogus) = %d, want Err", st)
	}
	if st := ArrayIsOpen(Ctx(0), Array(1), &open); st != Err {
		t.Errorf("ArrayIsOpen(null ctx) = %d, want Err", st)
	}
}

func TestArrayCreateTwiceFails(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)

	var schema ArraySchema
	must(t, ctx, ArraySchemaLoad(ctx, uri, &schema), "ArraySchemaLoad")
	defer ArraySchemaFree(&schema)
	if st := ArrayCreate(ctx, uri, schema); st != Err {
		t.Fatalf("second ArrayCreate = %d, want Err", st)
	}
	if msg := lastError(ctx); !strings.Contains(msg, "already exists") {
		t.Errorf("last error = %q", msg)
	}

	var ot ObjectType
	must(t, ctx, ObjectTypeOf(ctx, uri, &ot), "ObjectTypeOf")
	if ot != ObjectArray {
		t.Errorf("object type = %d, want array", ot)
	}
}

func TestArrayLifecycle(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)

	var arr Array
	must(t, ctx, ArrayAlloc(ctx, uri, &arr), "ArrayAlloc")
	defer ArrayFree(&arr)

	var mode QueryType
	if st := ArrayGetQueryType(ctx, arr, &mode); st != Err {
		t.Errorf("ArrayGetQueryType on closed array = %d, want Err", st)
	}
	var end uint64
	must(t, ctx, ArrayGetOpenTimestampEnd(ctx, arr, &end), "ArrayGetOpenTimestampEnd")
	if end != math.MaxUint64 {
		t.Errorf("closed end timestamp = %d, want max", end)
	}

	must(t, ctx, ArrayOpen(ctx, arr, QueryTypeRead), "ArrayOpen")
	if st := ArrayOpen(ctx, arr, QueryTypeRead); st != Err {
		t.Errorf("second ArrayOpen = %d, want Err", st)
	}
	must(t, ctx, ArrayGetQueryType(ctx, arr, &mode), "ArrayGetQueryType")
	if mode != QueryTypeRead {
		t.Errorf("mode = %d, want read", mode)
	}
	var open bool
	must(t, ctx, ArrayIsOpen(ctx, arr, &open), "ArrayIsOpen")
	if !open {
		t.Error("ArrayIsOpen = false")
	}

	var got string
	must(t, ctx, ArrayGetURI(ctx, arr, &got), "ArrayGetURI")
	if got != uri {
		t.Errorf("uri = %q, want %q", got, uri)
	}

	var schema ArraySchema
	must(t, ctx, ArrayGetSchema(ctx, arr, &schema), "ArrayGetSchema")
	var at ArrayType
	must(t, ctx, ArraySchemaGetArrayType(ctx, schema, &at), "ArraySchemaGetArrayType")
	ArraySchemaFree(&schema)
	if at != ArrayDense {
		t.Errorf("array type = %d, want dense", at)
	}

	must(t, ctx, ArrayReopen(ctx, arr), "ArrayReopen")
	must(t, ctx, ArrayClose(ctx, arr), "ArrayClose")
	must(t, ctx, ArrayClose(ctx, arr), "second ArrayClose")
	must(t, ctx, ArrayIsOpen(ctx, arr, &open), "ArrayIsOpen")
	if open {
		t.Error("ArrayIsOpen = true after close")
	}
}

func TestArrayNonEmptyDomain(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)

	tests := []struct {
		dim  string
		want []int32
	}{
		{"rows", []int32{1, 2}},
		{"cols", []int32{1, 4}},
	}
	for i, tt := range tests {
		domain := make([]byte, 8)
		var empty bool
		must(t, ctx, ArrayGetNonEmptyDomainFromIndex(ctx, arr, uint32(i), domain, &empty), "FromIndex")
		if empty {
			t.Fatalf("%s reported empty", tt.dim)
		}
		if diff := cmp.Diff(tt.want, toI32(domain)); diff != "" {
			t.Errorf("%s domain mismatch (-want +got):\n%s", tt.dim, diff)
		}
		byName := make([]byte, 8)
		must(t, ctx, ArrayGetNonEmptyDomainFromName(ctx, arr, tt.dim, byName, &empty), "FromName")
		if !cmp.Equal(domain, byName) {
			t.Errorf("%s: by name %v, by index %v", tt.dim, toI32(byName), toI32(domain))
		}
	}
}

func TestArrayNonEmptyDomainEmptyArray(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "empty", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})
	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)

	var empty bool
	must(t, ctx, ArrayGetNonEmptyDomainFromIndex(ctx, arr, 0, make([]byte, 16), &empty), "FromIndex")
	if !empty {
		t.Error("empty array reported a non-empty domain")
	}
}

func TestArrayMetadata(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)

	warr := openArray(t, ctx, uri, QueryTypeWrite)
	must(t, ctx, ArrayPutMetadata(ctx, warr, "units", DatatypeStringUTF8, 6, []byte("meters")), "put units")
	must(t, ctx, ArrayPutMetadata(ctx, warr, "pair", DatatypeInt32, 2, i32(7, 9)), "put pair")
	must(t, ctx, ArrayPutMetadata(ctx, warr, "gone", DatatypeInt32, 1, i32(1)), "put gone")
	must(t, ctx, ArrayDeleteMetadata(ctx, warr, "gone"), "delete gone")
	if st := ArrayPutMetadata(ctx, warr, "", DatatypeInt32, 1, i32(1)); st != Err {
		t.Errorf("empty key put = %d, want Err", st)
	}
	if st := ArrayPutMetadata(ctx, warr, "short", DatatypeInt32, 2, i32(1)); st != Err {
		t.Errorf("short value put = %d, want Err", st)
	}
	var n uint64
	if st := ArrayGetMetadataNum(ctx, warr, &n); st != Err {
		t.Errorf("metadata read in write mode = %d, want Err", st)
	}
	closeArray(t, ctx, &warr)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	must(t, ctx, ArrayGetMetadataNum(ctx, arr, &n), "ArrayGetMetadataNum")
	if n != 2 {
		t.Fatalf("metadata count = %d, want 2", n)
	}

	var (
		dt    Datatype
		num   uint32
		value []byte
	)
	must(t, ctx, ArrayGetMetadata(ctx, arr, "pair", &dt, &num, &value), "get pair")
	if dt != DatatypeInt32 || num != 2 || !cmp.Equal(toI32(value), []int32{7, 9}) {
		t.Errorf("pair = %v %d %v", dt, num, toI32(value))
	}

	var key string
	must(t, ctx, ArrayGetMetadataFromIndex(ctx, arr, 1, &key, &dt, &num, &value), "from index")
	if key != "units" || string(value) != "meters" {
		t.Errorf("entry 1 = %q %q", key, value)
	}
	if st := ArrayGetMetadataFromIndex(ctx, arr, 2, &key, &dt, &num, &value); st != Err {
		t.Errorf("out of range index = %d, want Err", st)
	}

	must(t, ctx, ArrayGetMetadata(ctx, arr, "gone", &dt, &num, &value), "get gone")
	if value != nil || num != 0 {
		t.Errorf("deleted key returned %d values", num)
	}
	var has bool
	must(t, ctx, ArrayHasMetadataKey(ctx, arr, "units", &dt, &has), "has units")
	if !has || dt != DatatypeStringUTF8 {
		t.Errorf("has units = %v %v", has, dt)
	}
	must(t, ctx, ArrayHasMetadataKey(ctx, arr, "missing", &dt, &has), "has missing")
	if has || dt != DatatypeAny {
		t.Errorf("has missing = %v %v, want false %v", has, dt, DatatypeAny)
	}
}

func TestArrayTimeTravel(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "tt", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	t1 := format.Now() + 1000
	t2 := t1 + 1000
	for i, ts := range []uint64{t1, t2} {
		var arr Array
		must(t, ctx, ArrayAlloc(ctx, uri, &arr), "ArrayAlloc")
		must(t, ctx, ArraySetOpenTimestampEnd(ctx, arr, ts), "ArraySetOpenTimestampEnd")
		must(t, ctx, ArrayOpen(ctx, arr, QueryTypeWrite), "ArrayOpen")
		var q Query
		must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
		d, a := i64(int64(i+1)), i32(int32(10*(i+1)))
		sizes := []uint64{8, 4}
		must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
		must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[1]), "set a")
		must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

		var lo, hi uint64
		must(t, ctx, QueryGetFragmentTimestampRange(ctx, q, 0, &lo, &hi), "QueryGetFragmentTimestampRange")
		if lo != ts || hi != ts {
			t.Errorf("fragment %d range = [%d, %d], want %d", i, lo, hi, ts)
		}
		QueryFree(&q)
		closeArray(t, ctx, &arr)
	}

	read := func(end uint64) []int32 {
		t.Helper()
		var arr Array
		must(t, ctx, ArrayAlloc(ctx, uri, &arr), "ArrayAlloc")
		must(t, ctx, ArraySetOpenTimestampEnd(ctx, arr, end), "ArraySetOpenTimestampEnd")
		must(t, ctx, ArrayOpen(ctx, arr, QueryTypeRead), "ArrayOpen")
		defer closeArray(t, ctx, &arr)
		var q Query
		must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
		defer QueryFree(&q)
		a := make([]byte, 16)
		size := uint64(len(a))
		must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &size), "set a")
		must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
		return toI32(a[:size])
	}

	if diff := cmp.Diff([]int32{10}, read(t1+500)); diff != "" {
		t.Errorf("read at t1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int32{10, 20}, read(t2)); diff != "" {
		t.Errorf("read at t2 mismatch (-want +got):\n%s", diff)
	}

	must(t, ctx, ArrayDeleteFragments(ctx, uri, t2, t2), "ArrayDeleteFragments")
	if diff := cmp.Diff([]int32{10}, read(t2)); diff != "" {
		t.Errorf("read after delete mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayDelete(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	must(t, ctx, ArrayDelete(ctx, uri), "ArrayDelete")

	var ot ObjectType
	must(t, ctx, ObjectTypeOf(ctx, uri, &ot), "ObjectTypeOf")
	if ot != ObjectInvalid {
		t.Errorf("object type after delete = %d", ot)
	}
	if st := ArrayDelete(ctx, uri); st != Err {
		t.Errorf("second ArrayDelete = %d, want Err", st)
	}
}

func TestArrayFreeClosesAndNoLeaks(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	before := LiveObjectCount()

	var arr Array
	must(t, ctx, ArrayAlloc(ctx, uri, &arr), "ArrayAlloc")
	must(t, ctx, ArrayOpen(ctx, arr, QueryTypeRead), "ArrayOpen")
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	var sub Subarray
	must(t, ctx, SubarrayAlloc(ctx, arr, &sub), "SubarrayAlloc")

	if got := LiveObjects(); got["query"] < 1 || got["subarray"] < 1 {
		t.Errorf("LiveObjects = %v", got)
	}

	SubarrayFree(&sub)
	QueryFree(&q)
	ArrayFree(&arr)
	if arr != 0 || q != 0 || sub != 0 {
		t.Error("free did not zero the pointers")
	}
	if after := LiveObjectCount(); after != before {
		t.Errorf("live objects = %d, want %d", after, before)
	}
	ArrayFree(&arr)
}
