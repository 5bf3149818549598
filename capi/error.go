package capi

import (
	stderrors "errors"

	"github.com/wippyai/tiledb-go/errors"
)

type errorObj struct {
	msg string
}

// message renders an engine error the way ErrorMessage reports it.
func message(err error) string {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	msg := e.Detail
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func statusOf(err error) Status {
	return Status(errors.StatusOf(err))
}

func newError(err error, out *Error) Status {
	if out == nil {
		return Err
	}
	*out = 0
	if err == nil {
		return OK
	}
	if perr := put(kindError, &errorObj{msg: message(err)}, out); perr != nil {
		return OOM
	}
	return statusOf(err)
}

// ErrorMessage copies the message of an error object.
func ErrorMessage(e Error, msg *string) Status {
	o, err := e.obj()
	if err != nil || msg == nil {
		return Err
	}
	*msg = o.msg
	return OK
}

// ErrorFree releases an error object. Freeing a null error is a no-op.
func ErrorFree(e *Error) {
	drop(kindError, e)
}
