package capi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDenseWriteThenSubarrayRead(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)

	var sub Subarray
	must(t, ctx, SubarrayAlloc(ctx, arr, &sub), "SubarrayAlloc")
	defer SubarrayFree(&sub)
	must(t, ctx, SubarrayAddRange(ctx, sub, 0, i32(1), i32(2), nil), "AddRange rows")
	must(t, ctx, SubarrayAddRangeByName(ctx, sub, "cols", i32(2), i32(4), nil), "AddRange cols")

	tests := []struct {
		name   string
		layout Layout
		want   []int32
	}{
		{"row major", LayoutRowMajor, []int32{2, 3, 4, 6, 7, 8}},
		{"col major", LayoutColMajor, []int32{2, 6, 3, 7, 4, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Query
			must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
			defer QueryFree(&q)
			must(t, ctx, QuerySetLayout(ctx, q, tt.layout), "QuerySetLayout")
			must(t, ctx, QuerySetSubarrayT(ctx, q, sub), "QuerySetSubarrayT")

			data := make([]byte, 64)
			size := uint64(len(data))
			must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "QuerySetDataBuffer")
			must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

			var st QueryStatus
			must(t, ctx, QueryGetStatus(ctx, q, &st), "QueryGetStatus")
			if st != QueryCompleted {
				t.Fatalf("status = %d, want completed", st)
			}
			if diff := cmp.Diff(tt.want, toI32(data[:size])); diff != "" {
				t.Errorf("cells mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDenseReadUnwrittenCellsYieldFill(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "dense", ArrayDense,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 4), i64(4)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	data := make([]byte, 16)
	size := uint64(len(data))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "QuerySetDataBuffer")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

	fill := int32(-2147483648)
	if diff := cmp.Diff([]int32{fill, fill, fill, fill}, toI32(data[:size])); diff != "" {
		t.Errorf("fill mismatch (-want +got):\n%s", diff)
	}
}

func TestSparseWriteThenSubarrayRead(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)

	var sub Subarray
	must(t, ctx, SubarrayAlloc(ctx, arr, &sub), "SubarrayAlloc")
	defer SubarrayFree(&sub)
	must(t, ctx, SubarrayAddRange(ctx, sub, 0, i32(1), i32(2), nil), "AddRange rows")
	must(t, ctx, SubarrayAddRange(ctx, sub, 1, i32(2), i32(4), nil), "AddRange cols")

	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	must(t, ctx, QuerySetSubarrayT(ctx, q, sub), "QuerySetSubarrayT")

	rows, cols, a := make([]byte, 64), make([]byte, 64), make([]byte, 64)
	sizes := []uint64{64, 64, 64}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "rows", rows, &sizes[0]), "set rows")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "cols", cols, &sizes[1]), "set cols")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[2]), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

	got := [][]int32{toI32(rows[:sizes[0]]), toI32(cols[:sizes[1]]), toI32(a[:sizes[2]])}
	want := [][]int32{{2, 2}, {3, 4}, {3, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}

	var has bool
	must(t, ctx, QueryHasResults(ctx, q, &has), "QueryHasResults")
	if !has {
		t.Error("QueryHasResults = false after a non-empty read")
	}
}

func TestSparseNewerFragmentWins(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)
	writeSparse(t, ctx, uri, i32(1), i32(1), i32(100))

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	a := make([]byte, 64)
	size := uint64(len(a))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &size), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

	if diff := cmp.Diff([]int32{100, 3, 2}, toI32(a[:size])); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestSparseDuplicateCoordinatesRejected(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "sparse", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	d, a := i64(3, 3), i32(1, 2)
	sizes := []uint64{uint64(len(d)), uint64(len(a))}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[1]), "set a")

	if st := QuerySubmit(ctx, q); st != Err {
		t.Fatalf("QuerySubmit = %d, want Err", st)
	}
	if msg := lastError(ctx); !strings.Contains(msg, "Duplicate coordinates") {
		t.Errorf("last error = %q", msg)
	}
	var st QueryStatus
	must(t, ctx, QueryGetStatus(ctx, q, &st), "QueryGetStatus")
	if st != QueryFailed {
		t.Errorf("status = %d, want failed", st)
	}
}

func TestSparseOutOfDomainRejected(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "sparse", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	d, a := i64(11), i32(1)
	sizes := []uint64{uint64(len(d)), uint64(len(a))}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[1]), "set a")
	if st := QuerySubmit(ctx, q); st != Err {
		t.Fatalf("QuerySubmit = %d, want Err", st)
	}
}

// varArray creates a sparse 1-D array with a var-sized string attribute and
// writes five cells whose values grow by one byte each.
func varArray(t *testing.T, ctx Ctx) string {
	t.Helper()
	uri := createArray(t, ctx, "var", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 100), i64(10)}},
		[]attrSpec{{name: "s", dt: DatatypeStringUTF8, varSized: true, nullable: true}})

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	d := i64(1, 2, 3, 4, 5)
	data := []byte("abbcccddddeeeee")
	offsets := []uint64{0, 1, 3, 6, 10}
	validity := []uint8{1, 1, 0, 1, 1}
	sizes := []uint64{uint64(len(d)), uint64(len(data)), 8 * uint64(len(offsets)), uint64(len(validity))}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "s", data, &sizes[1]), "set s")
	must(t, ctx, QuerySetOffsetsBuffer(ctx, q, "s", offsets, &sizes[2]), "set s offsets")
	must(t, ctx, QuerySetValidityBuffer(ctx, q, "s", validity, &sizes[3]), "set s validity")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
	return uri
}

func TestIncompleteReadPaginates(t *testing.T) {
	ctx := newTestCtx(t)
	uri := varArray(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)

	data := make([]byte, 64)
	offsets := make([]uint64, 2)
	validity := make([]uint8, 2)
	dataSize, offSize, valSize := uint64(len(data)), uint64(16), uint64(len(validity))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "s", data, &dataSize), "set s")
	must(t, ctx, QuerySetOffsetsBuffer(ctx, q, "s", offsets, &offSize), "set s offsets")
	must(t, ctx, QuerySetValidityBuffer(ctx, q, "s", validity, &valSize), "set s validity")

	type page struct {
		Status   QueryStatus
		Values   []string
		Validity []uint8
	}
	var pages []page
	for i := 0; i < 5; i++ {
		must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
		var st QueryStatus
		must(t, ctx, QueryGetStatus(ctx, q, &st), "QueryGetStatus")
		n := int(offSize / 8)
		p := page{Status: st, Validity: append([]uint8(nil), validity[:valSize]...)}
		for j := 0; j < n; j++ {
			end := dataSize
			if j+1 < n {
				end = offsets[j+1]
			}
			p.Values = append(p.Values, string(data[offsets[j]:end]))
		}
		pages = append(pages, p)
		if st == QueryIncomplete {
			var reason StatusReason
			must(t, ctx, QueryGetStatusDetails(ctx, q, &reason), "QueryGetStatusDetails")
			if reason != ReasonUserBufferSize {
				t.Errorf("reason = %d, want user buffer size", reason)
			}
		}
		if st == QueryCompleted {
			break
		}
	}

	want := []page{
		{QueryIncomplete, []string{"a", "bb"}, []uint8{1, 1}},
		{QueryIncomplete, []string{"ccc", "dddd"}, []uint8{0, 1}},
		{QueryCompleted, []string{"eeeee"}, []uint8{1}},
	}
	if diff := cmp.Diff(want, pages); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimatedResultSize(t *testing.T) {
	ctx := newTestCtx(t)
	uri := varArray(t, ctx)

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)

	var off, data, val, dsize uint64
	must(t, ctx, QueryGetEstResultSizeVarNullable(ctx, q, "s", &off, &data, &val), "est s")
	must(t, ctx, QueryGetEstResultSize(ctx, q, "d", &dsize), "est d")
	got := []uint64{off, data, val, dsize}
	if diff := cmp.Diff([]uint64{40, 15, 5, 40}, got); diff != "" {
		t.Errorf("estimates mismatch (-want +got):\n%s", diff)
	}
}

func TestReadWithoutBuffersFails(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	if st := QuerySubmit(ctx, q); st != Err {
		t.Fatalf("QuerySubmit = %d, want Err", st)
	}
	if msg := lastError(ctx); !strings.Contains(msg, "No buffers set") {
		t.Errorf("last error = %q", msg)
	}
}

func TestQueryAllocModeMismatch(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)

	var q Query
	if st := QueryAlloc(ctx, arr, QueryTypeWrite, &q); st != Err {
		t.Fatalf("QueryAlloc = %d, want Err", st)
	}
	if q != 0 {
		t.Errorf("query pointer = %d after failed alloc", q)
	}
	if st := QueryAlloc(ctx, arr, QueryTypeDelete, &q); st != Err {
		t.Fatalf("QueryAlloc(delete) = %d, want Err", st)
	}
}

func TestQueryLayoutValidation(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)

	var l Layout
	must(t, ctx, QueryGetLayout(ctx, q, &l), "QueryGetLayout")
	if l != LayoutUnordered {
		t.Errorf("default sparse write layout = %d, want unordered", l)
	}
	tests := []struct {
		layout Layout
		want   Status
	}{
		{LayoutGlobalOrder, OK},
		{LayoutUnordered, OK},
		{LayoutRowMajor, Err},
		{LayoutHilbert, Err},
	}
	for _, tt := range tests {
		if st := QuerySetLayout(ctx, q, tt.layout); st != tt.want {
			t.Errorf("QuerySetLayout(%d) = %d, want %d", tt.layout, st, tt.want)
		}
	}
}

func TestGlobalOrderWriteFinalize(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "sparse", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	must(t, ctx, QuerySetLayout(ctx, q, LayoutGlobalOrder), "QuerySetLayout")

	for _, batch := range [][2][]byte{{i64(1, 2), i32(10, 20)}, {i64(5), i32(50)}} {
		d, a := batch[0], batch[1]
		sizes := []uint64{uint64(len(d)), uint64(len(a))}
		must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
		must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[1]), "set a")
		must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
	}
	must(t, ctx, QueryFinalize(ctx, q), "QueryFinalize")

	var n uint32
	must(t, ctx, QueryGetFragmentNum(ctx, q, &n), "QueryGetFragmentNum")
	if n != 1 {
		t.Errorf("fragments = %d, want 1", n)
	}
	QueryFree(&q)
	closeArray(t, ctx, &arr)

	rarr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &rarr)
	var rq Query
	must(t, ctx, QueryAlloc(ctx, rarr, QueryTypeRead, &rq), "QueryAlloc")
	defer QueryFree(&rq)
	a := make([]byte, 64)
	size := uint64(len(a))
	must(t, ctx, QuerySetDataBuffer(ctx, rq, "a", a, &size), "set a")
	must(t, ctx, QuerySubmit(ctx, rq), "QuerySubmit")
	if diff := cmp.Diff([]int32{10, 20, 50}, toI32(a[:size])); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitAndFinalizeRequiresGlobalOrder(t *testing.T) {
	ctx := newTestCtx(t)
	uri := sparse2D(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	if st := QuerySubmitAndFinalize(ctx, q); st != Err {
		t.Fatalf("QuerySubmitAndFinalize = %d, want Err", st)
	}
	if msg := lastError(ctx); !strings.Contains(msg, "global order") {
		t.Errorf("last error = %q", msg)
	}
}

func TestCancelledContextRejectsSubmit(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	data := make([]byte, 64)
	size := uint64(len(data))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "set a")

	c, err := ctx.obj()
	if err != nil {
		t.Fatal(err)
	}
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	if st := QuerySubmit(ctx, q); st != Err {
		t.Fatalf("QuerySubmit = %d, want Err", st)
	}
}
