package js

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/sirupsen/logrus"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/js/common"
	"github.com/aphofstede/v8js/lib"
)

// anonymousScript is the name used for scripts run without one, matching
// what goja prints in stack frames.
const anonymousScript = "<eval>"

// HostFunc is a Go function callable from JavaScript. A returned error is
// thrown into the script and, if uncaught, comes back as the cause of the
// resulting ScriptException.
type HostFunc func(args []goja.Value) (interface{}, error)

// Runtime is a JavaScript runtime whose failures are reported as errext
// exceptions. It is not safe for concurrent use.
type Runtime struct {
	vm      *goja.Runtime
	opts    lib.RuntimeOptions
	logger  logrus.FieldLogger
	refs    *common.BackRefs
	sources map[string]string
}

// New creates a runtime. It fails only if the options are invalid or the
// exception hierarchy could not be registered.
func New(opts lib.RuntimeOptions, logger logrus.FieldLogger) (*Runtime, error) {
	if _, err := errext.RegisterExceptionHierarchy(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, errext.WrapEngineException(err, "invalid runtime options")
	}

	r := &Runtime{
		vm:      goja.New(),
		opts:    opts,
		logger:  logger,
		refs:    common.NewBackRefs(),
		sources: make(map[string]string),
	}

	env := make(map[string]string, len(opts.Env))
	for k, v := range opts.Env {
		env[k] = v
	}
	if err := r.Set("__ENV", env); err != nil {
		return nil, err
	}
	console, err := newConsole(r.vm, logger)
	if err != nil {
		return nil, errext.WrapEngineException(err, "setting up console")
	}
	if err := r.Set("console", console); err != nil {
		return nil, err
	}
	return r, nil
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Set sets a global variable.
func (r *Runtime) Set(name string, value interface{}) error {
	if err := r.vm.GlobalObject().Set(name, value); err != nil {
		return errext.WrapEngineException(err, fmt.Sprintf("setting global %q", name))
	}
	return nil
}

// RegisterFunc exposes fn to scripts as the global function name.
func (r *Runtime) RegisterFunc(name string, fn HostFunc) error {
	return r.Set(name, func(call goja.FunctionCall) goja.Value {
		res, err := fn(call.Arguments)
		if err != nil {
			common.Throw(r.vm, r.refs, err)
		}
		return r.vm.ToValue(res)
	})
}

// RunScript compiles and runs src under the configured limits. Failures are
// returned as errext exceptions: a *errext.ScriptException for anything
// thrown by the script (or a syntax error), a *errext.TimeLimitException or
// *errext.MemoryLimitException when a limit is hit, and an
// *errext.EngineException otherwise.
func (r *Runtime) RunScript(ctx context.Context, name, src string) (goja.Value, error) {
	if name == "" {
		name = anonymousScript
	}
	r.sources[name] = src

	prg, err := r.compile(name, src)
	if err != nil {
		return nil, err
	}

	// the throw sites' references on host errors go away with the run, after
	// the classifier had its chance to take its own
	defer r.refs.Reset()

	// the limits also cover classification, which may call back into the
	// script to convert the thrown value
	stop := r.watch(ctx)
	defer stop()

	v, err := r.vm.RunProgram(prg)
	if err != nil {
		return nil, r.classify(err)
	}
	return v, nil
}

func (r *Runtime) compile(name, src string) (*goja.Program, error) {
	ast, err := parser.ParseFile(nil, name, src, 0, parser.WithDisableSourceMaps)
	if err != nil {
		var list parser.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			first := list[0]
			return nil, r.raise(r.syntaxCapture("SyntaxError: "+first.Message,
				name, first.Position.Line, first.Position.Column))
		}
		return nil, r.raise(r.syntaxCapture(err.Error(), name, 0, 0))
	}

	prg, err := goja.CompileAST(ast, false)
	if err != nil {
		return nil, r.raise(r.compilerCapture(name, err))
	}
	return prg, nil
}

func (r *Runtime) compilerCapture(name string, err error) *capture {
	var cerr *goja.CompilerError
	var syntaxErr *goja.CompilerSyntaxError
	var refErr *goja.CompilerReferenceError
	switch {
	case errors.As(err, &syntaxErr):
		cerr = &syntaxErr.CompilerError
	case errors.As(err, &refErr):
		cerr = &refErr.CompilerError
	}
	if cerr == nil || cerr.File == nil {
		return r.syntaxCapture(err.Error(), name, 0, 0)
	}
	pos := cerr.File.Position(cerr.Offset)
	return r.syntaxCapture(err.Error(), name, pos.Line, pos.Column)
}

// classify maps a failed run onto the exception hierarchy.
func (r *Runtime) classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		reason := common.UnwrapGojaInterruptedError(err)
		var exc errext.Exception
		if errors.As(reason, &exc) {
			r.logger.WithField("kind", exc.Kind().String()).Debug(exc.Error())
			return reason
		}
		return errext.WrapEngineException(reason, "script interrupted")
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return r.raise(r.exceptionCapture(ex))
	}
	return errext.WrapEngineException(err, "running script")
}

func (r *Runtime) raise(c *capture) error {
	err := common.ThrowScriptException(c)
	fields := logrus.Fields{"kind": errext.KindScript.String()}
	if c.msg != nil {
		fields["file"] = c.msg.file
		fields["line"] = c.msg.line
	}
	if cause := errors.Unwrap(err); cause != nil {
		fields["cause"] = cause.Error()
	}
	r.logger.WithFields(fields).Debug(err.Error())
	return err
}
