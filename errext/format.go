package errext

import (
	"errors"
)

// Format formats the given error as a message (string) and a map of fields
// suitable for structured logging.
// In case of [HasStackTrace], the stack trace is appended to the message.
// In case of [HasHint], the hint is added as a field.
// In case of [Exception], the kind name is added as a field, and for a
// [ScriptException] with a location, the file and line too.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}

	errText := err.Error()
	var xerr HasStackTrace
	if errors.As(err, &xerr) {
		if trace := xerr.StackTrace(); trace != "" {
			errText += "\n" + trace
		}
	}

	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	var exc Exception
	if errors.As(err, &exc) {
		fields["kind"] = exc.Kind().String()
	}
	var serr *ScriptException
	if errors.As(err, &serr) && serr.FileName().Valid {
		fields["file"] = serr.FileName().String
		fields["line"] = serr.LineNumber().Int64
	}

	return errText, fields
}
