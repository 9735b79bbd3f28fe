package common

import (
	"fmt"

	"github.com/aphofstede/v8js/errext"
)

// BuildScriptException turns a drained capture into a ScriptException.
//
// With a message facet the location fields and the stack trace are set and
// the message reads "<file>:<line>: <exception text>"; without one the
// message is the exception text and nothing else is set. With a facet, if
// the thrown value is tagged with a host error, that error becomes the cause
// and the exception takes its own reference on it.
func BuildScriptException(c Capture) *errext.ScriptException {
	text := c.ExceptionText()
	message := text

	var opts []errext.ScriptOption
	if m, ok := c.Message(); ok {
		loc := errext.ScriptLocation{
			FileName:    m.ScriptResourceName(),
			LineNumber:  m.LineNumber(),
			StartColumn: m.StartColumn(),
			EndColumn:   m.EndColumn(),
			SourceLine:  m.SourceLine(),
		}
		message = fmt.Sprintf("%s:%d: %s", loc.FileName, loc.LineNumber, text)
		opts = append(opts, errext.WithLocation(loc), errext.WithStackTrace(c.StackTrace()))
		if h, ok := hostCause(c); ok {
			opts = append(opts, errext.WithCause(h.Err(), h.Retain()))
		}
	}

	return errext.NewScriptException(message, opts...)
}

// ThrowScriptException returns the exception that the host should raise for
// c. Captures without a message facet skip the full build and yield a plain
// ScriptException from the exception text.
func ThrowScriptException(c Capture) error {
	if _, ok := c.Message(); !ok {
		return errext.NewScriptException(c.ExceptionText())
	}
	return BuildScriptException(c)
}

func hostCause(c Capture) (*HostError, bool) {
	ref, ok := c.HiddenReference()
	if !ok {
		return nil, false
	}
	h, ok := ref.(*HostError)
	if !ok || h == nil || !IsHostException(h.Err()) {
		return nil, false
	}
	return h, true
}
