package o11y

import (
	"context"
	"errors"
)

// NewWarning returns an error that AddResultToSpan records as a warning rather than an error.
// No two errors created with NewWarning will be tested as equal with Is.
func NewWarning(warn string) error {
	return &warnError{
		msg: warn,
	}
}

// errWarning is only used as the errors.Is target inside IsWarning.
var errWarning = errors.New("")

// IsWarning returns true if any error in the chain is a warning.
func IsWarning(err error) bool {
	return errors.Is(err, errWarning)
}

// DontErrorTrace returns true if the error is a warning or a context canceled or deadline error.
func DontErrorTrace(err error) bool {
	return IsWarning(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type warnError struct {
	msg string
}

func (e *warnError) Error() string {
	return e.msg
}

func (e *warnError) Unwrap() error {
	return errWarning
}
