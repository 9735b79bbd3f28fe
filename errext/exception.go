// Package errext contains the exception hierarchy that JavaScript failures are
// translated into, together with extensions for normal Go errors (hints and
// exit codes) that the rest of the module attaches to them.
package errext

// Exception is the root of the engine exception hierarchy. It is deliberately
// open: any error that reports a Kind is an engine exception, the built-in
// kinds are just the ones this package constructs.
type Exception interface {
	error
	Kind() Kind
}

// HasStackTrace is implemented by errors that resulted from a script exception
// and may carry the JavaScript stack trace that lead to them.
type HasStackTrace interface {
	error
	StackTrace() string
}
