package capi

import (
	"encoding/binary"
	"testing"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
)

func memURI(t *testing.T, name string) string {
	return storage.Join(storage.SchemeMem+"capi_test", t.Name(), name)
}

func newTestCtx(t *testing.T) Ctx {
	t.Helper()
	var ctx Ctx
	if st := CtxAlloc(0, &ctx); st != OK {
		t.Fatalf("CtxAlloc = %d", st)
	}
	t.Cleanup(func() { CtxFree(&ctx) })
	return ctx
}

// lastError returns the message of the context's last error, or "".
func lastError(ctx Ctx) string {
	var e Error
	if CtxGetLastError(ctx, &e) != OK || e == 0 {
		return ""
	}
	defer ErrorFree(&e)
	var msg string
	ErrorMessage(e, &msg)
	return msg
}

func must(t *testing.T, ctx Ctx, st Status, what string) {
	t.Helper()
	if st != OK {
		t.Fatalf("%s = %d: %s", what, st, lastError(ctx))
	}
}

func i32(vs ...int32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.NativeEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func i64(vs ...int64) []byte {
	out := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.NativeEndian.PutUint64(out[8*i:], uint64(v))
	}
	return out
}

func toI32(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.NativeEndian.Uint32(b[4*i:]))
	}
	return out
}

func toI64(b []byte) []int64 {
	out := make([]int64, len(b)/8)
	for i := range out {
		out[i] = int64(binary.NativeEndian.Uint64(b[8*i:]))
	}
	return out
}

type dimSpec struct {
	name   string
	dt     Datatype
	domain []byte
	extent []byte
}

type attrSpec struct {
	name     string
	dt       Datatype
	varSized bool
	nullable bool
}

// createArray creates an array with the given dimensions and attributes and
// returns its URI.
func createArray(t *testing.T, ctx Ctx, name string, at ArrayType, dims []dimSpec, attrs []attrSpec) string {
	t.Helper()
	var schema ArraySchema
	must(t, ctx, ArraySchemaAlloc(ctx, at, &schema), "ArraySchemaAlloc")
	defer ArraySchemaFree(&schema)

	var dom Domain
	must(t, ctx, DomainAlloc(ctx, &dom), "DomainAlloc")
	defer DomainFree(&dom)
	for _, d := range dims {
		var dim Dimension
		must(t, ctx, DimensionAlloc(ctx, d.name, d.dt, d.domain, d.extent, &dim), "DimensionAlloc")
		must(t, ctx, DomainAddDimension(ctx, dom, dim), "DomainAddDimension")
		DimensionFree(&dim)
	}
	must(t, ctx, ArraySchemaSetDomain(ctx, schema, dom), "ArraySchemaSetDomain")

	for _, a := range attrs {
		var attr Attribute
		must(t, ctx, AttributeAlloc(ctx, a.name, a.dt, &attr), "AttributeAlloc")
		if a.varSized {
			must(t, ctx, AttributeSetCellValNum(ctx, attr, VarNum), "AttributeSetCellValNum")
		}
		if a.nullable {
			must(t, ctx, AttributeSetNullable(ctx, attr, true), "AttributeSetNullable")
		}
		must(t, ctx, ArraySchemaAddAttribute(ctx, schema, attr), "ArraySchemaAddAttribute")
		AttributeFree(&attr)
	}

	uri := memURI(t, name)
	must(t, ctx, ArrayCreate(ctx, uri, schema), "ArrayCreate")
	return uri
}

func openArray(t *testing.T, ctx Ctx, uri string, mode QueryType) Array {
	t.Helper()
	var arr Array
	must(t, ctx, ArrayAlloc(ctx, uri, &arr), "ArrayAlloc")
	must(t, ctx, ArrayOpen(ctx, arr, mode), "ArrayOpen")
	return arr
}

func closeArray(t *testing.T, ctx Ctx, arr *Array) {
	t.Helper()
	must(t, ctx, ArrayClose(ctx, *arr), "ArrayClose")
	ArrayFree(arr)
}

// dense4x4 creates a 4x4 int32 dense array with attribute "a" holding 1..16
// in row-major order.
func dense4x4(t *testing.T, ctx Ctx) string {
	t.Helper()
	uri := createArray(t, ctx, "dense", ArrayDense,
		[]dimSpec{
			{"rows", DatatypeInt32, i32(1, 4), i32(2)},
			{"cols", DatatypeInt32, i32(1, 4), i32(2)},
		},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	data := i32(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16)
	size := uint64(len(data))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "QuerySetDataBuffer")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
	return uri
}

// sparse2D creates a sparse 4x4 int32 array with attribute "a" and writes
// the cells (1,1)=1, (2,4)=2 and (2,3)=3.
func sparse2D(t *testing.T, ctx Ctx) string {
	t.Helper()
	uri := createArray(t, ctx, "sparse", ArraySparse,
		[]dimSpec{
			{"rows", DatatypeInt32, i32(1, 4), i32(4)},
			{"cols", DatatypeInt32, i32(1, 4), i32(4)},
		},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})
	writeSparse(t, ctx, uri, i32(1, 2, 2), i32(1, 4, 3), i32(1, 2, 3))
	return uri
}

func writeSparse(t *testing.T, ctx Ctx, uri string, rows, cols, a []byte) {
	t.Helper()
	arr := openArray(t, ctx, uri, QueryTypeWrite)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	defer QueryFree(&q)
	sizes := []uint64{uint64(len(rows)), uint64(len(cols)), uint64(len(a))}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "rows", rows, &sizes[0]), "set rows")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "cols", cols, &sizes[1]), "set cols")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[2]), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
}
