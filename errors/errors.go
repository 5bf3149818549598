package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseAlloc     Phase = "alloc"     // native object allocation
	PhaseMarshal   Phase = "marshal"   // Go values to native buffers
	PhaseNative    Phase = "native"    // failure reported through the ABI
	PhaseValidate  Phase = "validate"  // argument validation before any native call
	PhaseLifecycle Phase = "lifecycle" // handle and object state transitions
	PhaseConfig    Phase = "config"    // configuration parameters
	PhaseStorage   Phase = "storage"   // engine storage backends and on-disk format
	PhaseQuery     Phase = "query"     // query planning and execution inside the engine
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation   Kind = "allocation"
	KindNative       Kind = "native"
	KindTypeMismatch Kind = "type_mismatch"
	KindInvalidInput Kind = "invalid_input"
	KindDisposed     Kind = "disposed"
	KindUnsupported  Kind = "unsupported"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindCorrupt      Kind = "corrupt"
	KindIO           Kind = "io"
)

// Status codes returned by the native ABI.
const (
	StatusOK  int32 = 0
	StatusErr int32 = -1
	StatusOOM int32 = -2
)

// Error is the structured error type used on both sides of the ABI.
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	Datatype   string
	Detail     string
	Path       []string
	StatusCode int32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteByte(']')
	// native errors would otherwise read "[native] native".
	bare := string(e.Kind) == string(e.Phase)
	if !bare {
		b.WriteByte(' ')
		b.WriteString(string(e.Kind))
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Datatype != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Datatype != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", datatype ")
			b.WriteString(e.Datatype)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("datatype ")
			b.WriteString(e.Datatype)
		}
	}

	if e.Detail != "" {
		switch {
		case e.GoType != "" || e.Datatype != "":
			b.WriteString(" - ")
		case bare && len(e.Path) == 0:
			b.WriteByte(' ')
		default:
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.StatusCode != StatusOK {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Datatype sets the native datatype name
func (b *Builder) Datatype(t string) *Builder {
	b.err.Datatype = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Status sets the native status code
func (b *Builder) Status(code int32) *Builder {
	b.err.StatusCode = code
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Native creates an error carrying a message translated from the native side.
func Native(status int32, msg string) *Error {
	return &Error{
		Phase:      PhaseNative,
		Kind:       KindNative,
		StatusCode: status,
		Detail:     msg,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, datatype string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		Datatype: datatype,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %s", what),
	}
}

// Disposed reports use of a handle after it was freed.
func Disposed(what string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindDisposed,
		Detail: fmt.Sprintf("%s has been freed", what),
	}
}

// InvalidState creates an error for an operation issued in the wrong object state
func InvalidState(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Corrupt reports data that failed an integrity check.
func Corrupt(path string, detail string) *Error {
	return &Error{
		Phase:  PhaseStorage,
		Kind:   KindCorrupt,
		Path:   []string{path},
		Detail: detail,
	}
}

// IO wraps a storage backend failure
func IO(op, uri string, cause error) *Error {
	return &Error{
		Phase:  PhaseStorage,
		Kind:   KindIO,
		Detail: fmt.Sprintf("%s %s", op, uri),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// StatusOf returns the native status code carried by err, StatusErr for
// foreign errors and StatusOK for nil.
func StatusOf(err error) int32 {
	if err == nil {
		return StatusOK
	}
	var e *Error
	if errors.As(err, &e) && e.StatusCode != StatusOK {
		return e.StatusCode
	}
	return StatusErr
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
