package tiledb

import (
	"testing"
)

func memURI(t *testing.T, name string) string {
	return "mem://tiledb_test/" + t.Name() + "/" + name
}

func must(t *testing.T, err error, what string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(nil)
	must(t, err, "NewContext")
	t.Cleanup(ctx.Free)
	return ctx
}

type testAttr struct {
	name     string
	dt       Datatype
	varSized bool
	nullable bool
}

// createArray creates an array whose dimensions all have the Go type T and
// returns its URI.
func createArray[T Scalar](t *testing.T, ctx *Context, name string, at ArrayType, dt Datatype, dims map[string][3]T, order []string, attrs []testAttr) string {
	t.Helper()
	schema, err := NewArraySchema(ctx, at)
	must(t, err, "NewArraySchema")
	defer schema.Free()

	dom, err := NewDomain(ctx)
	must(t, err, "NewDomain")
	defer dom.Free()
	for _, n := range order {
		d := dims[n]
		dim, err := NewDimension(ctx, n, dt, [2]T{d[0], d[1]}, d[2])
		must(t, err, "NewDimension "+n)
		must(t, dom.AddDimensions(dim), "AddDimensions")
		dim.Free()
	}
	must(t, schema.SetDomain(dom), "SetDomain")

	for _, a := range attrs {
		attr, err := NewAttribute(ctx, a.name, a.dt)
		must(t, err, "NewAttribute "+a.name)
		if a.varSized {
			must(t, attr.SetCellValNum(VarNum), "SetCellValNum")
		}
		if a.nullable {
			must(t, attr.SetNullable(true), "SetNullable")
		}
		must(t, schema.AddAttributes(attr), "AddAttributes")
		attr.Free()
	}

	uri := memURI(t, name)
	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	defer arr.Free()
	must(t, arr.Create(schema), "Create")
	return uri
}

func openArray(t *testing.T, ctx *Context, uri string, mode QueryType) *Array {
	t.Helper()
	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	must(t, arr.Open(mode), "Open")
	t.Cleanup(func() {
		_ = arr.Close()
		arr.Free()
	})
	return arr
}

// dense4x4 creates a 4x4 int32 dense array with attribute "a" holding 1..16
// in row-major order.
func dense4x4(t *testing.T, ctx *Context) string {
	t.Helper()
	uri := createArray(t, ctx, "dense", ArrayDense, DatatypeInt32,
		map[string][3]int32{"rows": {1, 4, 2}, "cols": {1, 4, 2}}, []string{"rows", "cols"},
		[]testAttr{{name: "a", dt: DatatypeInt32}})

	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	defer arr.Free()
	must(t, arr.Open(QueryTypeWrite), "Open write")
	q, err := NewQuery(ctx, arr, QueryTypeWrite)
	must(t, err, "NewQuery")
	must(t, q.SetLayout(LayoutRowMajor), "SetLayout")
	must(t, SetDataBuffer(q, "a", []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}), "SetDataBuffer")
	must(t, q.Submit(), "Submit")
	q.Free()
	must(t, arr.Close(), "Close")
	return uri
}

// sparse2D creates a sparse 4x4 int32 array with attribute "a" and writes
// (1,1)=1, (2,4)=2 and (2,3)=3.
func sparse2D(t *testing.T, ctx *Context) string {
	t.Helper()
	uri := createArray(t, ctx, "sparse", ArraySparse, DatatypeInt32,
		map[string][3]int32{"rows": {1, 4, 4}, "cols": {1, 4, 4}}, []string{"rows", "cols"},
		[]testAttr{{name: "a", dt: DatatypeInt32}})

	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	defer arr.Free()
	must(t, arr.Open(QueryTypeWrite), "Open write")
	q, err := NewQuery(ctx, arr, QueryTypeWrite)
	must(t, err, "NewQuery")
	must(t, q.SetLayout(LayoutUnordered), "SetLayout")
	must(t, SetDataBuffer(q, "rows", []int32{1, 2, 2}), "set rows")
	must(t, SetDataBuffer(q, "cols", []int32{1, 4, 3}), "set cols")
	must(t, SetDataBuffer(q, "a", []int32{1, 2, 3}), "set a")
	must(t, q.Submit(), "Submit")
	q.Free()
	must(t, arr.Close(), "Close")
	return uri
}

// varArray creates a sparse 1-D array with a nullable var-sized string
// attribute "s" holding a, bb, null ccc, dddd and eeeee at d = 1..5.
func varArray(t *testing.T, ctx *Context) string {
	t.Helper()
	uri := createArray(t, ctx, "var", ArraySparse, DatatypeInt64,
		map[string][3]int64{"d": {1, 100, 10}}, []string{"d"},
		[]testAttr{{name: "s", dt: DatatypeStringUTF8, varSized: true, nullable: true}})

	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	defer arr.Free()
	must(t, arr.Open(QueryTypeWrite), "Open write")
	q, err := NewQuery(ctx, arr, QueryTypeWrite)
	must(t, err, "NewQuery")
	data, offsets := PackStrings([]string{"a", "bb", "ccc", "dddd", "eeeee"})
	must(t, SetDataBuffer(q, "d", []int64{1, 2, 3, 4, 5}), "set d")
	must(t, SetDataBuffer(q, "s", data), "set s")
	must(t, q.SetOffsetsBuffer("s", offsets), "set s offsets")
	must(t, q.SetValidityBuffer("s", []uint8{1, 1, 0, 1, 1}), "set s validity")
	must(t, q.Submit(), "Submit")
	q.Free()
	must(t, arr.Close(), "Close")
	return uri
}
