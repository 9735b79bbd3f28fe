package js

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/errext/exitcodes"
	"github.com/aphofstede/v8js/lib"
)

func TestTimeLimit(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{TimeLimit: null.IntFrom(100)})

	start := time.Now()
	_, err := r.RunScript(context.Background(), "loop.js", "while (true) {}")
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	var tle *errext.TimeLimitException
	require.ErrorAs(t, err, &tle)
	assert.Equal(t, "Script time limit of 100 milliseconds exceeded", tle.Error())
	assert.ErrorIs(t, err, errext.KindTimeLimit)
	assert.ErrorIs(t, err, errext.KindEngine)
	assert.NotErrorIs(t, err, errext.KindScript)
	assert.Equal(t, exitcodes.ScriptTimeLimit, tle.ExitCode())

	// the interrupt is cleared, the runtime can be used again
	v, err := r.RunScript(context.Background(), "after.js", "40 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Export())
}

func TestTimeLimitNotReached(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{TimeLimit: null.IntFrom(5000)})
	v, err := r.RunScript(context.Background(), "quick.js", "var s = 0; for (var i = 0; i < 100; i++) { s += i; } s")
	require.NoError(t, err)
	assert.Equal(t, int64(4950), v.Export())
}

func TestContextCancel(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.RunScript(ctx, "loop.js", "while (true) {}")
	require.Error(t, err)

	var ee *errext.EngineException
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "script interrupted")
	assert.Equal(t, exitcodes.GenericEngine, ee.ExitCode())
}

func TestContextAlreadyCanceled(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunScript(ctx, "loop.js", "while (true) {}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), err)
}

//nolint:paralleltest // heap usage is process wide
func TestMemoryLimit(t *testing.T) {
	r := newTestRuntime(t, lib.RuntimeOptions{
		MemoryLimit:         null.IntFrom(8 << 20),
		MemoryCheckInterval: null.IntFrom(1),
		TimeLimit:           null.IntFrom(30000),
	})

	src := `var keep = []; while (true) { keep.push(new Array(1024).fill("x")); }`
	_, err := r.RunScript(context.Background(), "hog.js", src)
	require.Error(t, err)

	var mle *errext.MemoryLimitException
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, "Script memory limit of 8388608 bytes exceeded", mle.Error())
	assert.ErrorIs(t, err, errext.KindMemoryLimit)
	assert.Equal(t, exitcodes.ScriptMemoryLimit, mle.ExitCode())
}

func TestInterrupterFiresOnce(t *testing.T) {
	t.Parallel()

	r := newTestRuntime(t, lib.RuntimeOptions{})
	in := &interrupter{vm: r.vm}
	assert.True(t, in.interrupt(errors.New("first")))
	assert.False(t, in.interrupt(errors.New("second")))
	in.stop()

	stopped := &interrupter{vm: r.vm}
	stopped.stop()
	assert.False(t, stopped.interrupt(errors.New("late")))

	v, err := r.RunScript(context.Background(), "ok.js", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Export())
}
