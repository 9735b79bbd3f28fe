package common

import (
	"errors"

	"github.com/dop251/goja"
)

// Throw a JS error; avoids re-wrapping exceptions that came from JS in the
// first place. Any other error is thrown as a GoError object which, if refs
// is not nil, is tagged with a new HostError for err so that the classifier
// can chain it back once the exception reaches the host.
func Throw(rt *goja.Runtime, refs *BackRefs, err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	obj := rt.NewGoError(err)
	if refs != nil {
		refs.Tag(obj, NewHostError(err))
	}
	panic(obj)
}
