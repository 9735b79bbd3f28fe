package js

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/aphofstede/v8js/js/common"
)

// scriptMessage is the location facet built from a goja stack frame or a
// parser position.
type scriptMessage struct {
	file       string
	sourceLine string
	line       int
	start      int
	end        int
}

func (m *scriptMessage) ScriptResourceName() string { return m.file }
func (m *scriptMessage) SourceLine() string         { return m.sourceLine }
func (m *scriptMessage) LineNumber() int            { return m.line }
func (m *scriptMessage) StartColumn() int           { return m.start }
func (m *scriptMessage) EndColumn() int             { return m.end }

// capture implements common.Capture for one failed run.
type capture struct {
	text  string
	msg   *scriptMessage
	trace string
	value goja.Value
	refs  *common.BackRefs
}

var _ common.Capture = &capture{}

func (c *capture) ExceptionText() string { return c.text }
func (c *capture) StackTrace() string    { return c.trace }

func (c *capture) Message() (common.Message, bool) {
	if c.msg == nil {
		return nil, false
	}
	return c.msg, true
}

func (c *capture) HiddenReference() (interface{}, bool) {
	if c.refs == nil {
		return nil, false
	}
	h, ok := c.refs.Lookup(c.value)
	if !ok {
		return nil, false
	}
	return h, true
}

// frameRe matches a script frame as written by goja, e.g.
// "fn (app.js:3:5(12))" or "app.js:3:5(12)". Native frames don't match.
var frameRe = regexp.MustCompile(`^(?:.*? \()?(.+):(\d+):(\d+)\(\d+\)\)?$`)

func parseFrame(frame string) (file string, line, column int, ok bool) {
	m := frameRe.FindStringSubmatch(frame)
	if m == nil {
		return "", 0, 0, false
	}
	line, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, 0, false
	}
	column, err = strconv.Atoi(m[3])
	if err != nil {
		return "", 0, 0, false
	}
	return m[1], line, column, true
}

// guard runs f as a native function call so that a JavaScript exception
// raised inside it, e.g. by a throwing toString, comes back as an error and
// leaves the VM usable.
func (r *Runtime) guard(f func()) error {
	fn, _ := goja.AssertFunction(r.vm.ToValue(func(goja.FunctionCall) goja.Value {
		f()
		return goja.Undefined()
	}))
	_, err := fn(goja.Undefined())
	return err
}

// describe converts a goja exception into its text and its frames, each in
// the "at ..." form. The thrown value is converted once; if that throws, the
// text falls back to the value's class and the frames are lost.
func (r *Runtime) describe(ex *goja.Exception) (text string, frames []string) {
	var full string
	if err := r.guard(func() { full = ex.String() }); err != nil {
		r.logger.Debug("Couldn't convert the thrown value to a string")
		return fallbackText(ex.Value()), nil
	}

	lines := strings.Split(strings.TrimSuffix(full, "\n"), "\n")
	i := len(lines)
	for i > 0 && strings.HasPrefix(lines[i-1], "\tat ") {
		i--
	}
	for _, line := range lines[i:] {
		if frame := line[1:]; !isHostFrame(frame) {
			frames = append(frames, frame)
		}
	}
	if ex.Value() == nil {
		return "<nil>", frames
	}
	return strings.Join(lines[:i], "\n"), frames
}

func fallbackText(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok {
		return "[object " + obj.ClassName() + "]"
	}
	return "[object]"
}

// isHostFrame reports whether frame is a native frame named after a Go
// function, e.g. "at github.com/x/y.(*T).f.func1 (native)".
func isHostFrame(frame string) bool {
	name := strings.TrimPrefix(frame, "at ")
	if !strings.HasSuffix(name, " (native)") {
		return false
	}
	return strings.Contains(strings.TrimSuffix(name, " (native)"), "/")
}

func (r *Runtime) exceptionCapture(ex *goja.Exception) *capture {
	c := &capture{value: ex.Value(), refs: r.refs}
	var frames []string
	c.text, frames = r.describe(ex)
	c.trace = strings.Join(frames, "\n")
	for _, frame := range frames {
		if file, line, column, ok := parseFrame(strings.TrimPrefix(frame, "at ")); ok {
			c.msg = r.message(file, line, column)
			break
		}
	}
	return c
}

// syntaxCapture describes a parse or compile failure. There is no thrown
// value and no stack, only the position.
func (r *Runtime) syntaxCapture(text, file string, line, column int) *capture {
	c := &capture{text: text}
	if line > 0 {
		c.msg = r.message(file, line, column)
	}
	return c
}

// message builds the location facet for a 1-based line and column.
func (r *Runtime) message(file string, line, column int) *scriptMessage {
	src := r.sources[file]
	sourceLine := lineAt(src, line)
	start := column - 1
	if start < 0 {
		start = 0
	}
	return &scriptMessage{
		file:       file,
		sourceLine: sourceLine,
		line:       line,
		start:      start,
		end:        tokenEnd(sourceLine, start),
	}
}

func lineAt(src string, line int) string {
	if line < 1 {
		return ""
	}
	lines := strings.Split(src, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// tokenEnd returns the column right after the identifier or number starting
// at start, or start+1 for any other character.
func tokenEnd(sourceLine string, start int) int {
	if start >= len(sourceLine) {
		return start + 1
	}
	end := start
	for end < len(sourceLine) && isWordByte(sourceLine[end]) {
		end++
	}
	if end == start {
		end++
	}
	return end
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
