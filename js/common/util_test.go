package common

import (
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrow(t *testing.T) {
	t.Parallel()

	rt := goja.New()
	refs := NewBackRefs()
	hostErr := errors.New("aaaa")

	fn1, ok := goja.AssertFunction(rt.ToValue(func(goja.FunctionCall) goja.Value {
		Throw(rt, refs, hostErr)
		return nil
	}))
	require.True(t, ok, "fn1 is invalid")

	_, err := fn1(goja.Undefined())
	var ex *goja.Exception
	require.ErrorAs(t, err, &ex)
	assert.Contains(t, err.Error(), "aaaa")

	h, ok := refs.Lookup(ex.Value())
	require.True(t, ok)
	assert.Same(t, hostErr, h.Err())
	assert.Equal(t, 1, h.Refs())

	fn2, ok := goja.AssertFunction(rt.ToValue(func(goja.FunctionCall) goja.Value {
		Throw(rt, refs, ex)
		return nil
	}))
	require.True(t, ok, "fn2 is invalid")

	_, err = fn2(goja.Undefined())
	var rethrown *goja.Exception
	require.ErrorAs(t, err, &rethrown)
	assert.Same(t, ex.Value(), rethrown.Value())
	assert.Equal(t, 1, refs.Len(), "rethrowing doesn't tag again")
}

func TestThrowWithoutRefs(t *testing.T) {
	t.Parallel()

	rt := goja.New()
	fn, ok := goja.AssertFunction(rt.ToValue(func(goja.FunctionCall) goja.Value {
		Throw(rt, nil, errors.New("untracked"))
		return nil
	}))
	require.True(t, ok)

	_, err := fn(goja.Undefined())
	assert.ErrorContains(t, err, "untracked")
}

func TestUnwrapGojaInterruptedError(t *testing.T) {
	t.Parallel()

	rt := goja.New()
	reason := errors.New("stop")
	rt.Interrupt(reason)
	_, err := rt.RunString("for (;;) {}")
	require.Error(t, err)
	assert.Same(t, reason, UnwrapGojaInterruptedError(err))

	rt.ClearInterrupt()
	rt.Interrupt("not an error")
	_, err = rt.RunString("for (;;) {}")
	require.Error(t, err)
	assert.Same(t, err, UnwrapGojaInterruptedError(err))

	plain := errors.New("plain")
	assert.Same(t, plain, UnwrapGojaInterruptedError(plain))
}
