package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseMarshal,
				Kind:     KindTypeMismatch,
				Path:     []string{"query", "a"},
				GoType:   "float64",
				Datatype: "INT32",
				Detail:   "cannot bind buffer",
			},
			contains: []string{"[marshal]", "type_mismatch", "query.a", "float64", "INT32", "cannot bind buffer"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseLifecycle,
				Kind:  KindDisposed,
			},
			contains: []string{"[lifecycle]", "disposed"},
		},
		{
			name:     "native error carries status",
			err:      Native(StatusErr, "Array is not open"),
			contains: []string{"[native]", "Array is not open", "status -1"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseStorage,
				Kind:   KindIO,
				Detail: "write tile",
				Cause:  errors.New("disk full"),
			},
			contains: []string{"[storage]", "io", "write tile", "caused by", "disk full"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_ErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"native", Native(StatusErr, "Query: Cannot submit; Array is not open"),
			"[native] Query: Cannot submit; Array is not open (status -1)"},
		{"native without detail", &Error{Phase: PhaseNative, Kind: KindNative, StatusCode: StatusOOM},
			"[native] (status -2)"},
		{"distinct phase and kind", InvalidInput(PhaseValidate, "empty key"),
			"[validate] invalid_input: empty key"},
		{"native kind outside native phase", Wrap(PhaseQuery, KindNative, nil, "submit"),
			"[query] native: submit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseStorage, KindIO, cause, "open fragment")

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindTypeMismatch,
		Path:  []string{"a"},
	}

	if !err.Is(&Error{Phase: PhaseMarshal, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseValidate, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseMarshal, Kind: KindInvalidInput}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("set buffer: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseMarshal, Kind: KindTypeMismatch}) {
		t.Error("errors.Is should match through fmt wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindTypeMismatch).
		Path("a").
		GoType("float64").
		Datatype("INT32").
		Value(42).
		Status(StatusErr).
		Cause(cause).
		Detail("expected %s, got %s", "int32", "float64").
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 1 || err.Path[0] != "a" {
		t.Errorf("Path = %v, want [a]", err.Path)
	}
	if err.GoType != "float64" || err.Datatype != "INT32" {
		t.Errorf("GoType=%v Datatype=%v", err.GoType, err.Datatype)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if err.StatusCode != StatusErr {
		t.Errorf("StatusCode = %v, want %v", err.StatusCode, StatusErr)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int32, got float64" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"Native", Native(StatusOOM, "out of memory"), PhaseNative, KindNative},
		{"TypeMismatch", TypeMismatch(PhaseMarshal, []string{"a"}, "int8", "FLOAT64"), PhaseMarshal, KindTypeMismatch},
		{"AllocationFailed", AllocationFailed(PhaseAlloc, "array"), PhaseAlloc, KindAllocation},
		{"Disposed", Disposed("query"), PhaseLifecycle, KindDisposed},
		{"InvalidState", InvalidState(PhaseLifecycle, "array %q is not open", "a1"), PhaseLifecycle, KindInvalidState},
		{"Unsupported", Unsupported(PhaseQuery, "bzip2 filter"), PhaseQuery, KindUnsupported},
		{"OutOfBounds", OutOfBounds(PhaseValidate, nil, 10, 5), PhaseValidate, KindOutOfBounds},
		{"NotFound", NotFound(PhaseNative, "attribute", "b"), PhaseNative, KindNotFound},
		{"InvalidInput", InvalidInput(PhaseValidate, "empty %s", "key"), PhaseValidate, KindInvalidInput},
		{"Corrupt", Corrupt("a.tdb", "checksum mismatch"), PhaseStorage, KindCorrupt},
		{"IO", IO("open", "mem://x", errors.New("boom")), PhaseStorage, KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
		})
	}

	if d := InvalidInput(PhaseValidate, "empty %s", "key").Detail; d != "empty key" {
		t.Errorf("InvalidInput detail = %q", d)
	}
	if d := NotFound(PhaseNative, "attribute", "b").Detail; d != `attribute "b" not found` {
		t.Errorf("NotFound detail = %q", d)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int32
	}{
		{"nil", nil, StatusOK},
		{"foreign", errors.New("x"), StatusErr},
		{"native oom", Native(StatusOOM, "oom"), StatusOOM},
		{"structured without status", InvalidInput(PhaseValidate, "x"), StatusErr},
		{"wrapped", fmt.Errorf("ctx: %w", Native(StatusOOM, "oom")), StatusOOM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(fmt.Errorf("w: %w", Disposed("ctx"))); k != KindDisposed {
		t.Errorf("KindOf = %q, want %q", k, KindDisposed)
	}
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("KindOf(plain) = %q, want empty", k)
	}
}
