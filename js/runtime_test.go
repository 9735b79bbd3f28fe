package js

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/lib"
	"github.com/aphofstede/v8js/lib/testutils"
)

func newTestRuntime(t *testing.T, opts lib.RuntimeOptions) *Runtime {
	t.Helper()
	r, err := New(opts, testutils.NewLogger(t))
	require.NoError(t, err)
	return r
}

func requireScriptException(t *testing.T, err error) *errext.ScriptException {
	t.Helper()
	var se *errext.ScriptException
	require.ErrorAs(t, err, &se)
	return se
}

func TestRunScript(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{Env: map[string]string{"FOO": "bar"}})

	v, err := r.RunScript(context.Background(), "sum.js", "1 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Export())

	v, err = r.RunScript(context.Background(), "env.js", "__ENV.FOO")
	require.NoError(t, err)
	assert.Equal(t, "bar", v.String())
}

func TestNewInvalidOptions(t *testing.T) {
	t.Parallel()

	_, err := New(lib.RuntimeOptions{TimeLimit: null.IntFrom(-5)}, testutils.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, errext.KindEngine)
	assert.ErrorContains(t, err, "time limit can't be negative")
}

func TestRunScriptReferenceError(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	_, err := r.RunScript(context.Background(), "app.js", "var a = 1;\nconsole.log(x);\n")
	se := requireScriptException(t, err)

	assert.Equal(t, "app.js:2: ReferenceError: x is not defined", se.Error())
	assert.Equal(t, null.StringFrom("app.js"), se.FileName())
	assert.Equal(t, null.IntFrom(2), se.LineNumber())
	assert.Equal(t, null.StringFrom("console.log(x);"), se.SourceLine())
	require.True(t, se.StartColumn().Valid)
	require.True(t, se.EndColumn().Valid)
	assert.Greater(t, se.EndColumn().Int64, se.StartColumn().Int64)
	assert.Contains(t, se.StackTrace(), "at app.js:2:")
	assert.Nil(t, errors.Unwrap(se))
	assert.ErrorIs(t, err, errext.KindScript)
}

func TestRunScriptStackTrace(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	src := "function f() {\n  throw new Error('boom');\n}\nf();\n"
	_, err := r.RunScript(context.Background(), "nested.js", src)
	se := requireScriptException(t, err)

	assert.Equal(t, "nested.js:2: Error: boom", se.Error())
	assert.Equal(t, null.StringFrom("  throw new Error('boom');"), se.SourceLine())
	trace := se.StackTrace()
	assert.Contains(t, trace, "nested.js:2:")
	assert.Contains(t, trace, "nested.js:4:")
	for _, line := range strings.Split(trace, "\n") {
		assert.True(t, strings.HasPrefix(line, "at "), line)
	}
}

func TestRunScriptThrowPrimitive(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	_, err := r.RunScript(context.Background(), "prim.js", `throw "boom";`)
	se := requireScriptException(t, err)

	assert.Equal(t, "prim.js:1: boom", se.Error())
	assert.Nil(t, errors.Unwrap(se))
}

func TestRunScriptUnconvertibleValue(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"throwing toString": `throw {toString: function() { throw new Error("nested") }}`,
		"no prototype":      `throw Object.create(null)`,
	}
	for name, src := range tests {
		src := src
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := newTestRuntime(t, lib.RuntimeOptions{})
			var err error
			require.NotPanics(t, func() {
				_, err = r.RunScript(context.Background(), "app.js", src)
			})
			se := requireScriptException(t, err)
			assert.Equal(t, "[object Object]", se.Error())
			assert.Nil(t, errors.Unwrap(se))

			v, err := r.RunScript(context.Background(), "next.js", "1 + 1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), v.Export())
		})
	}
}

func TestRunScriptHostFramesHidden(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	registerFailing(t, r, errors.New("host failure"))

	_, err := r.RunScript(context.Background(), "host.js", "function f() {\n  fail();\n}\nf();\n")
	se := requireScriptException(t, err)
	defer se.Release()

	trace := se.StackTrace()
	assert.NotContains(t, trace, "github.com/")
	assert.True(t, strings.HasPrefix(trace, "at f (host.js:2:"), trace)
	assert.Equal(t, null.IntFrom(2), se.LineNumber())
}

func TestRunScriptAnonymous(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	_, err := r.RunScript(context.Background(), "", "null.x")
	se := requireScriptException(t, err)

	assert.Equal(t, null.StringFrom(anonymousScript), se.FileName())
	assert.Equal(t, null.StringFrom("null.x"), se.SourceLine())
	assert.True(t, strings.HasPrefix(se.Error(), "<eval>:1: TypeError"), se.Error())
}

func TestRunScriptSyntaxError(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	_, err := r.RunScript(context.Background(), "broken.js", "var a = 1;\nvar = ;\n")
	se := requireScriptException(t, err)

	assert.True(t, strings.HasPrefix(se.Error(), "broken.js:2: SyntaxError: "), se.Error())
	assert.Equal(t, null.StringFrom("broken.js"), se.FileName())
	assert.Equal(t, null.IntFrom(2), se.LineNumber())
	assert.Equal(t, null.StringFrom("var = ;"), se.SourceLine())
	assert.False(t, se.Trace().Valid)
	assert.Nil(t, errors.Unwrap(se))
}

func TestHostFunc(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	require.NoError(t, r.RegisterFunc("add", func(args []goja.Value) (interface{}, error) {
		var sum int64
		for _, arg := range args {
			sum += arg.ToInteger()
		}
		return sum, nil
	}))

	v, err := r.RunScript(context.Background(), "add.js", "add(1, 2, 3)")
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.Export())
}

func registerFailing(t *testing.T, r *Runtime, hostErr error) {
	t.Helper()
	require.NoError(t, r.RegisterFunc("fail", func([]goja.Value) (interface{}, error) {
		return nil, hostErr
	}))
}

func TestHostErrorBecomesCause(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"uncaught": "var a = 1;\nfail();\n",
		"rethrown": "try {\n  fail();\n} catch (e) {\n  throw e;\n}\n",
		"nested":   "function g() { fail(); }\nfunction f() { g(); }\nf();\n",
	}
	for name, src := range tests {
		src := src
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			hostErr := errors.New("host failure")
			r := newTestRuntime(t, lib.RuntimeOptions{})
			registerFailing(t, r, hostErr)

			_, err := r.RunScript(context.Background(), "host.js", src)
			se := requireScriptException(t, err)

			assert.Same(t, hostErr, errors.Unwrap(se))
			assert.ErrorIs(t, err, hostErr)
			assert.Contains(t, se.Error(), "host failure")
			assert.True(t, strings.HasPrefix(se.Error(), "host.js:"), se.Error())
			assert.Equal(t, 0, r.refs.Len())
			se.Release()
		})
	}
}

func TestHostErrorWrappedInJS(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	registerFailing(t, r, errors.New("host failure"))

	src := "try { fail(); } catch (e) { throw new Error('wrapped: ' + e.message); }"
	_, err := r.RunScript(context.Background(), "wrap.js", src)
	se := requireScriptException(t, err)

	assert.Equal(t, "wrap.js:1: Error: wrapped: host failure", se.Error())
	assert.Nil(t, errors.Unwrap(se))
	assert.Equal(t, 0, r.refs.Len())
}

func TestHostErrorCaughtInJS(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	registerFailing(t, r, errors.New("host failure"))

	v, err := r.RunScript(context.Background(), "caught.js", "try { fail(); 'no'; } catch (e) { e.message }")
	require.NoError(t, err)
	assert.Equal(t, "host failure", v.String())
	assert.Equal(t, 0, r.refs.Len(), "references of caught errors are dropped after the run")
}

func TestHostErrorReferenceCount(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	hostErr := errors.New("host failure")
	registerFailing(t, r, hostErr)

	prg, err := r.compile("count.js", "fail();")
	require.NoError(t, err)
	_, err = r.vm.RunProgram(prg)
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)

	h, ok := r.refs.Lookup(ex.Value())
	require.True(t, ok)
	assert.Equal(t, 1, h.Refs())

	se := requireScriptException(t, r.classify(err))
	assert.Same(t, hostErr, errors.Unwrap(se))
	assert.Equal(t, 2, h.Refs())

	r.refs.Reset()
	assert.Equal(t, 1, h.Refs())

	se.Release()
	assert.Equal(t, 0, h.Refs())
}

func TestConsole(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t)
	r, err := New(lib.RuntimeOptions{}, logger)
	require.NoError(t, err)

	_, err = r.RunScript(context.Background(), "console.js",
		`console.log("hello", 42); console.warn("careful"); console.error(undefined, null); console.debug("dbg")`)
	require.NoError(t, err)

	entries := hook.Drain()
	assert.True(t, testutils.LogContains(entries, logrus.InfoLevel, "hello 42"))
	assert.True(t, testutils.LogContains(entries, logrus.WarnLevel, "careful"))
	assert.True(t, testutils.LogContains(entries, logrus.ErrorLevel, "undefined null"))
	assert.True(t, testutils.LogContains(entries, logrus.DebugLevel, "dbg"))

	e := testutils.FindEntry(entries, logrus.InfoLevel, "hello 42")
	require.NotNil(t, e)
	assert.Equal(t, "console", e.Data["source"])
}

func TestScriptExceptionIsLogged(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t)
	r, err := New(lib.RuntimeOptions{}, logger)
	require.NoError(t, err)

	_, err = r.RunScript(context.Background(), "log.js", "\nundefinedFn()")
	require.Error(t, err)

	e := testutils.FindEntry(hook.Drain(), logrus.DebugLevel, "log.js:2: ReferenceError")
	require.NotNil(t, e)
	assert.Equal(t, "ScriptException", e.Data["kind"])
	assert.Equal(t, "log.js", e.Data["file"])
	assert.Equal(t, 2, e.Data["line"])
}
