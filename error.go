package tiledb

import (
	"fmt"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

// check translates the status of a call made with ctx. Failures are read
// back through the last-error protocol.
func check(ctx capi.Ctx, status capi.Status) error {
	if status == capi.OK {
		return nil
	}
	var e capi.Error
	if st := capi.CtxGetLastError(ctx, &e); st != capi.OK {
		return errors.Native(int32(status), fmt.Sprintf("error during ctx_get_last_error: %d", st))
	}
	if e == 0 {
		return errors.Native(int32(status), fmt.Sprintf("native call failed with status %d", status))
	}
	return drainError(e, status)
}

// drainError reads the message of e and frees it.
func drainError(e capi.Error, status capi.Status) error {
	defer capi.ErrorFree(&e)
	var msg string
	if st := capi.ErrorMessage(e, &msg); st != capi.OK {
		return errors.Native(int32(status), fmt.Sprintf("error during error_message: %d", st))
	}
	return errors.Native(int32(status), msg)
}

// checkConfig translates the status and error object of a config call.
func checkConfig(e capi.Error, status capi.Status) error {
	if e != 0 {
		return drainError(e, status)
	}
	if status != capi.OK {
		return errors.Native(int32(status), fmt.Sprintf("native call failed with status %d", status))
	}
	return nil
}
