package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/aphofstede/v8js/lib"
)

func TestGetRuntimeOptions(t *testing.T) {
	t.Parallel()

	// unset flags keep their default value, marked as not set
	defaultInterval := null.NewInt(lib.DefaultMemoryCheckInterval.Milliseconds(), false)

	testCases := map[string]struct {
		args     []string
		expected lib.RuntimeOptions
		err      string
	}{
		"nothing set": {
			args:     []string{},
			expected: lib.RuntimeOptions{MemoryCheckInterval: defaultInterval},
		},
		"limits": {
			args: []string{"--time-limit", "1.5s", "--memory-limit", "1024", "--memory-check-interval", "20ms"},
			expected: lib.RuntimeOptions{
				TimeLimit:           null.IntFrom(1500),
				MemoryLimit:         null.IntFrom(1024),
				MemoryCheckInterval: null.IntFrom(20),
			},
		},
		"env vars": {
			args: []string{"-e", "A=1", "--env", "B=two=2", "-e", "EMPTY", "--include-system-env-vars=false"},
			expected: lib.RuntimeOptions{
				IncludeSystemEnvVars: null.BoolFrom(false),
				MemoryCheckInterval:  defaultInterval,
				Env:                  map[string]string{"A": "1", "B": "two=2", "EMPTY": ""},
			},
		},
		"invalid env var name": {
			args: []string{"-e", "1NVALID=x"},
			err:  "invalid environment variable name '1NVALID'",
		},
		"non-ascii env var name": {
			args: []string{"-e", "БАР=x"},
			err:  "invalid environment variable name",
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			flags := runtimeOptionFlagSet(false)
			require.NoError(t, flags.Parse(tc.args))

			opts, err := getRuntimeOptions(flags)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, opts)
		})
	}
}

func TestScriptEnv(t *testing.T) {
	t.Parallel()

	system := map[string]string{"HOME": "/root", "FOO": "system"}

	env := scriptEnv(lib.RuntimeOptions{Env: map[string]string{"FOO": "user"}}, system)
	assert.Equal(t, map[string]string{"FOO": "user"}, env)

	env = scriptEnv(lib.RuntimeOptions{
		IncludeSystemEnvVars: null.BoolFrom(true),
		Env:                  map[string]string{"FOO": "user"},
	}, system)
	assert.Equal(t, map[string]string{"HOME": "/root", "FOO": "user"}, env)

	assert.Empty(t, scriptEnv(lib.RuntimeOptions{}, system))
}
