package errext

import (
	"fmt"
	"sync/atomic"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/aphofstede/v8js/errext/exitcodes"
)

// payload is shared by every built-in exception kind.
type payload struct {
	kind    Kind
	message string
	cause   error
}

// Error returns the exception message.
func (p *payload) Error() string {
	return p.message
}

// Kind returns the exception kind.
func (p *payload) Kind() Kind {
	return p.kind
}

// Unwrap returns the cause of the exception, if any.
func (p *payload) Unwrap() error {
	return p.cause
}

// Is matches Kind targets against the hierarchy.
func (p *payload) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && isKind(p.kind, k)
}

// ExitCode returns the process exit code for the exception kind.
func (p *payload) ExitCode() exitcodes.ExitCode {
	switch {
	case isKind(p.kind, KindScript):
		return exitcodes.ScriptException
	case isKind(p.kind, KindTimeLimit):
		return exitcodes.ScriptTimeLimit
	case isKind(p.kind, KindMemoryLimit):
		return exitcodes.ScriptMemoryLimit
	default:
		return exitcodes.GenericEngine
	}
}

// EngineException is a failure lacking script context, e.g. a configuration or
// construction error. It is also the concrete type of custom kinds.
type EngineException struct {
	payload
}

// NewEngineException returns an EngineException with the given message.
func NewEngineException(message string) *EngineException {
	return &EngineException{payload{kind: KindEngine, message: message}}
}

// NewEngineExceptionf formats according to a format specifier.
func NewEngineExceptionf(format string, args ...interface{}) *EngineException {
	return NewEngineException(fmt.Sprintf(format, args...))
}

// WrapEngineException returns an EngineException caused by err.
func WrapEngineException(err error, message string) *EngineException {
	return &EngineException{payload{kind: KindEngine, message: message + ": " + err.Error(), cause: err}}
}

// New returns an exception of the given kind. Built-in kinds get their
// concrete type, any other kind an *EngineException.
func New(kind Kind, message string) Exception {
	p := payload{kind: kind, message: message}
	switch kind {
	case KindScript:
		return NewScriptException(message)
	case KindTimeLimit:
		return &TimeLimitException{p}
	case KindMemoryLimit:
		return &MemoryLimitException{p}
	default:
		return &EngineException{p}
	}
}

// TimeLimitException signals that a script ran past its time budget.
type TimeLimitException struct {
	payload
}

// NewTimeLimitException returns the exception raised when limit is exceeded.
func NewTimeLimitException(limit time.Duration) *TimeLimitException {
	return &TimeLimitException{payload{
		kind:    KindTimeLimit,
		message: fmt.Sprintf("Script time limit of %d milliseconds exceeded", limit.Milliseconds()),
	}}
}

// Hint implements HasHint.
func (*TimeLimitException) Hint() string {
	return "You can increase the time limit via the --time-limit option"
}

// MemoryLimitException signals that a script grew the heap past its budget.
type MemoryLimitException struct {
	payload
}

// NewMemoryLimitException returns the exception raised when limit is exceeded.
func NewMemoryLimitException(limit uint64) *MemoryLimitException {
	return &MemoryLimitException{payload{
		kind:    KindMemoryLimit,
		message: fmt.Sprintf("Script memory limit of %d bytes exceeded", limit),
	}}
}

// Hint implements HasHint.
func (*MemoryLimitException) Hint() string {
	return "You can increase the memory limit via the --memory-limit option"
}

// Releaser is the ownership side of a shared cause: the exception holds one
// reference and gives it back with Release.
type Releaser interface {
	Release()
}

// ScriptException is a failure raised while executing script code. Its
// structured fields are populated at construction and read-only afterwards.
type ScriptException struct {
	payload
	props    [numScriptFields]interface{}
	owner    Releaser
	released int32
}

// ScriptLocation is the source position a script exception points at.
type ScriptLocation struct {
	FileName    string
	LineNumber  int
	StartColumn int
	EndColumn   int
	SourceLine  string
}

// ScriptOption configures a ScriptException under construction.
type ScriptOption func(*ScriptException)

// WithLocation sets all location fields at once.
func WithLocation(loc ScriptLocation) ScriptOption {
	return func(e *ScriptException) {
		FileNameField.set(e, null.StringFrom(loc.FileName))
		LineNumberField.set(e, null.IntFrom(int64(loc.LineNumber)))
		StartColumnField.set(e, null.IntFrom(int64(loc.StartColumn)))
		EndColumnField.set(e, null.IntFrom(int64(loc.EndColumn)))
		SourceLineField.set(e, null.StringFrom(loc.SourceLine))
	}
}

// WithStackTrace sets the stack trace; an empty trace leaves the field null.
func WithStackTrace(trace string) ScriptOption {
	return func(e *ScriptException) {
		if trace != "" {
			TraceField.set(e, null.StringFrom(trace))
		}
	}
}

// WithCause chains cause to the exception. owner, if not nil, is the reference
// the exception now holds on the cause and is released by Release.
func WithCause(cause error, owner Releaser) ScriptOption {
	return func(e *ScriptException) {
		e.cause = cause
		e.owner = owner
	}
}

// NewScriptException returns a ScriptException with the given message.
func NewScriptException(message string, opts ...ScriptOption) *ScriptException {
	e := &ScriptException{payload: payload{kind: KindScript, message: message}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName returns the name of the script the exception was raised in.
func (e *ScriptException) FileName() null.String { return FileNameField.Get(e) }

// LineNumber returns the 1-based line number.
func (e *ScriptException) LineNumber() null.Int { return LineNumberField.Get(e) }

// StartColumn returns the 0-based column the offending code starts at.
func (e *ScriptException) StartColumn() null.Int { return StartColumnField.Get(e) }

// EndColumn returns the 0-based column the offending code ends at.
func (e *ScriptException) EndColumn() null.Int { return EndColumnField.Get(e) }

// SourceLine returns the text of the offending line.
func (e *ScriptException) SourceLine() null.String { return SourceLineField.Get(e) }

// Trace returns the JavaScript stack trace.
func (e *ScriptException) Trace() null.String { return TraceField.Get(e) }

// StackTrace implements HasStackTrace.
func (e *ScriptException) StackTrace() string {
	return e.Trace().String
}

// Release gives back the reference held on a chained cause. Calling it more
// than once has no further effect.
func (e *ScriptException) Release() {
	if e.owner == nil || !atomic.CompareAndSwapInt32(&e.released, 0, 1) {
		return
	}
	e.owner.Release()
}

var (
	_ Exception     = &EngineException{}
	_ Exception     = &ScriptException{}
	_ Exception     = &TimeLimitException{}
	_ Exception     = &MemoryLimitException{}
	_ HasStackTrace = &ScriptException{}
	_ HasExitCode   = &ScriptException{}
	_ HasHint       = &TimeLimitException{}
	_ HasHint       = &MemoryLimitException{}
)
