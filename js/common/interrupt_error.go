package common

import (
	"errors"

	"github.com/dop251/goja"
)

// UnwrapGojaInterruptedError returns the error the runtime was interrupted
// with, or err itself if it isn't an interruption carrying an error.
func UnwrapGojaInterruptedError(err error) error {
	var gojaErr *goja.InterruptedError
	if errors.As(err, &gojaErr) {
		if e, ok := gojaErr.Value().(error); ok {
			return e
		}
	}
	return err
}
