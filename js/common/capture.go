package common

// Capture is a drained record of a single exception event raised by the
// engine: the thrown value and whatever location and stack information the
// engine could attach to it.
type Capture interface {
	// ExceptionText is the textual representation of the thrown value.
	ExceptionText() string

	// Message returns the location facet. It is absent when the engine had no
	// source position for the exception.
	Message() (Message, bool)

	// StackTrace returns the stack trace text, empty if there is none.
	StackTrace() string

	// HiddenReference returns the value tagged on the thrown object as the
	// host error it originated from. Primitive values never carry one.
	HiddenReference() (interface{}, bool)
}

// Message is the location facet of a Capture.
type Message interface {
	ScriptResourceName() string
	SourceLine() string
	LineNumber() int
	StartColumn() int
	EndColumn() int
}
