package tiledb

import (
	"strings"
	"testing"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

func TestCheckTranslatesLastError(t *testing.T) {
	ctx := newTestContext(t)
	arr, err := NewArray(ctx, memURI(t, "missing"))
	must(t, err, "NewArray")
	defer arr.Free()

	err = arr.Open(QueryTypeRead)
	if err == nil {
		t.Fatal("opening a missing array succeeded")
	}
	if errors.StatusOf(err) != errors.StatusErr {
		t.Errorf("status = %d, want %d", errors.StatusOf(err), errors.StatusErr)
	}
	if errors.KindOf(err) != errors.KindNative {
		t.Errorf("kind = %q, want native", errors.KindOf(err))
	}

	last := ctx.LastError()
	if last == nil || last.Error() != err.Error() {
		t.Errorf("LastError = %v, want %v", last, err)
	}
}

func TestLastErrorNilOnFreshContext(t *testing.T) {
	ctx := newTestContext(t)
	if err := ctx.LastError(); err != nil {
		t.Errorf("LastError = %v, want nil", err)
	}
}

func TestErrorRetrievalFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"last error unavailable", check(capi.Ctx(0), capi.Err), "error during ctx_get_last_error"},
		{"message unavailable", drainError(capi.Error(0), capi.Err), "error during error_message"},
		{"config status without error", checkConfig(0, capi.OOM), "native call failed with status -2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil || !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", tt.err, tt.want)
			}
		})
	}
	if err := check(capi.Ctx(0), capi.OK); err != nil {
		t.Errorf("check(OK) = %v, want nil", err)
	}
	if errors.StatusOf(checkConfig(0, capi.OOM)) != errors.StatusOOM {
		t.Error("OOM status lost")
	}
}

func TestBorrowsReleasedOnEveryPath(t *testing.T) {
	ctx := newTestContext(t)
	uri := dense4x4(t, ctx)
	arr, err := NewArray(ctx, uri)
	must(t, err, "NewArray")
	defer arr.Free()

	must(t, arr.Open(QueryTypeRead), "Open")
	if _, err := arr.URI(); err != nil {
		t.Fatal(err)
	}
	if err := arr.Open(QueryTypeRead); err == nil {
		t.Error("second Open succeeded")
	}
	must(t, arr.Close(), "Close")

	if n := arr.h.Refs(); n != 0 {
		t.Errorf("array borrows = %d, want 0", n)
	}
	if n := ctx.h.Refs(); n != 0 {
		t.Errorf("context borrows = %d, want 0", n)
	}
}

func TestUseAfterFree(t *testing.T) {
	ctx := newTestContext(t)
	arr, err := NewArray(ctx, memURI(t, "a"))
	must(t, err, "NewArray")
	arr.Free()
	arr.Free()
	if _, err := arr.IsOpen(); errors.KindOf(err) != errors.KindDisposed {
		t.Errorf("IsOpen after Free err = %v, want disposed", err)
	}

	other, err := NewContext(nil)
	must(t, err, "NewContext")
	a2, err := NewArray(other, memURI(t, "b"))
	must(t, err, "NewArray")
	defer a2.Free()
	other.Free()
	if _, err := a2.IsOpen(); errors.KindOf(err) != errors.KindDisposed {
		t.Errorf("call through freed context err = %v, want disposed", err)
	}

	var nilCtx *Context
	if _, err := NewArray(nilCtx, "mem://x"); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("nil context err = %v, want invalid input", err)
	}
}
