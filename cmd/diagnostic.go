package cmd

import (
	"errors"
	"strings"

	"github.com/fatih/color"

	"github.com/aphofstede/v8js/errext"
)

// diagnostic renders the location of a script exception the way compilers
// do: the offending source line with a caret under the failing code.
type diagnostic struct {
	location *color.Color
	caret    *color.Color
	cause    *color.Color
}

func newDiagnostic(noColor bool) diagnostic {
	newColor := func(attributes ...color.Attribute) *color.Color {
		c := color.New(attributes...)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c
	}
	return diagnostic{
		location: newColor(color.Bold),
		caret:    newColor(color.FgRed, color.Bold),
		cause:    newColor(color.FgYellow),
	}
}

// render returns the diagnostic for err, or an empty string if err isn't a
// script exception with a location.
func (d diagnostic) render(err error) string {
	var se *errext.ScriptException
	if !errors.As(err, &se) || !se.FileName().Valid {
		return ""
	}

	var b strings.Builder
	b.WriteString(d.location.Sprintf("%s:%d", se.FileName().String, se.LineNumber().Int64))
	b.WriteByte('\n')
	if line := se.SourceLine().String; strings.TrimSpace(line) != "" {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n    ")
		b.WriteString(d.caret.Sprint(caretLine(line, int(se.StartColumn().Int64), int(se.EndColumn().Int64))))
		b.WriteByte('\n')
	}
	if cause := errors.Unwrap(se); cause != nil {
		b.WriteString(d.cause.Sprintf("caused by: %s", cause.Error()))
		b.WriteByte('\n')
	}
	return b.String()
}

// caretLine marks [start, end) of line, keeping tabs in the indentation so
// that the carets line up.
func caretLine(line string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}
	if end > len(line)+1 {
		end = len(line) + 1
	}
	if end <= start {
		end = start + 1
	}

	var b strings.Builder
	for i := 0; i < start; i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString(strings.Repeat("^", end-start))
	return b.String()
}
