// Package tiledb is a Go binding for the array storage engine exposed by
// package capi.
//
// The binding allocates native objects through the engine's C-style ABI,
// wraps each one in a handle that frees it exactly once, and marshals Go
// slices into the buffers queries read from and write into.
//
// # Architecture Overview
//
//	tiledb/              Root package: wrappers, query buffers, datatype bridge
//	├── capi/            The engine's ABI: alloc/free pairs and int32 status codes
//	├── resource/        Reference-counted native handles and scoped borrows
//	├── errors/          Structured error types for debugging
//	└── cmd/
//	    └── tiledb-inspect/   Browse arrays, groups and fragments from a terminal
//
// # Quick Start
//
// Create a dense array, write it and read part of it back:
//
//	ctx, err := tiledb.NewContext(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Free()
//
//	dom, _ := tiledb.NewDomain(ctx)
//	rows, _ := tiledb.NewDimension(ctx, "rows", tiledb.DatatypeInt32, [2]int32{1, 4}, 2)
//	cols, _ := tiledb.NewDimension(ctx, "cols", tiledb.DatatypeInt32, [2]int32{1, 4}, 2)
//	_ = dom.AddDimensions(rows, cols)
//
//	schema, _ := tiledb.NewArraySchema(ctx, tiledb.ArrayDense)
//	_ = schema.SetDomain(dom)
//	a, _ := tiledb.NewAttribute(ctx, "a", tiledb.DatatypeInt32)
//	_ = schema.AddAttributes(a)
//
//	arr, _ := tiledb.NewArray(ctx, "mem://quickstart")
//	_ = arr.Create(schema)
//
//	_ = arr.Open(tiledb.QueryTypeWrite)
//	q, _ := tiledb.NewQuery(ctx, arr, tiledb.QueryTypeWrite)
//	_ = tiledb.SetDataBuffer(q, "a", data)
//	_ = q.Submit()
//	q.Free()
//	_ = arr.Close()
//
// # Handles
//
// Every wrapper owns one native object. Free releases it; calling Free more
// than once is harmless, and a method called after Free fails with a
// disposed error instead of touching freed memory. Native calls borrow the
// handles they use, so an object freed from another goroutine is released
// only after the call in flight returns.
//
// Wrappers are not safe for concurrent use. A Query references but does not
// own its Context and Array; both must outlive it.
//
// # Query Buffers
//
// Buffers passed to a query are used in place. They stay pinned until they
// are replaced or the query is freed, and the engine writes the number of
// bytes it produced into a size cell owned by the binding. Read those counts
// with the Result* methods after each Submit.
//
// Reads that do not fit return QueryIncomplete. Consume the results and
// submit again until the status is QueryCompleted:
//
//	for {
//	    if err := q.Submit(); err != nil {
//	        return err
//	    }
//	    n, _ := q.ResultDataElements("a")
//	    consume(buf[:n])
//	    if st, _ := q.Status(); st != tiledb.QueryIncomplete {
//	        break
//	    }
//	}
//
// # Errors
//
// Engine failures are returned as *errors.Error with Kind KindNative, the
// engine's status code and its message. Argument checks done by the binding
// itself use the other kinds, such as KindTypeMismatch for a buffer whose
// element type does not match the field's datatype.
package tiledb
