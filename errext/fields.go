package errext

import (
	"fmt"

	"gopkg.in/guregu/null.v3"
)

// FieldInfo describes a structured field declared on an exception kind.
// Declared fields are protected: they are set when the exception is
// constructed and can only be read afterwards.
type FieldInfo struct {
	Name string
	Type string
}

// Field is a typed, read-only accessor for one structured field of a
// ScriptException. The zero value of T is the field's null default.
type Field[T any] struct {
	name string
	slot int
}

// Name returns the declared field name.
func (f Field[T]) Name() string {
	return f.name
}

// Get returns the value stored in e, or the null default if it was never set.
func (f Field[T]) Get(e *ScriptException) T {
	var zero T
	if e == nil {
		return zero
	}
	v, ok := e.props[f.slot].(T)
	if !ok {
		return zero
	}
	return v
}

func (f Field[T]) set(e *ScriptException, v T) {
	e.props[f.slot] = v
}

func (f Field[T]) info() FieldInfo {
	var zero T
	return FieldInfo{Name: f.name, Type: fmt.Sprintf("%T", zero)}
}

// The fields declared on ScriptException.
//
//nolint:gochecknoglobals
var (
	FileNameField    = Field[null.String]{name: "JsFileName", slot: 0}
	LineNumberField  = Field[null.Int]{name: "JsLineNumber", slot: 1}
	StartColumnField = Field[null.Int]{name: "JsStartColumn", slot: 2}
	EndColumnField   = Field[null.Int]{name: "JsEndColumn", slot: 3}
	SourceLineField  = Field[null.String]{name: "JsSourceLine", slot: 4}
	TraceField       = Field[null.String]{name: "JsTrace", slot: 5}
)

const numScriptFields = 6

func scriptFields() []FieldInfo {
	return []FieldInfo{
		FileNameField.info(),
		LineNumberField.info(),
		StartColumnField.info(),
		EndColumnField.info(),
		SourceLineField.info(),
		TraceField.info(),
	}
}
