// Package errors provides structured error types for tiledb-go.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the native status code for failures reported through the
// ABI, plus the field path, Go type and datatype names for marshalling failures.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("a").
//		GoType("float64").
//		Datatype("INT32").
//		Detail("buffer element type does not match attribute").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Native(errors.StatusErr, "Array is not open")
//	err := errors.InvalidInput(errors.PhaseValidate, "buffer for %q is empty", name)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind only.
package errors
