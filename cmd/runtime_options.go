package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/pflag"

	"github.com/aphofstede/v8js/lib"
)

var userEnvVarName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func runtimeOptionFlagSet(includeSysEnv bool) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", 0)
	flags.SortFlags = false
	flags.Bool("include-system-env-vars", includeSysEnv, "pass the real system environment variables to the runtime")
	flags.Duration("time-limit", 0, "abort the script after this much time, e.g. `5s`; 0 means unlimited")
	flags.Int64("memory-limit", 0, "abort the script once the heap grew by this many `bytes`; 0 means unlimited")
	flags.Duration("memory-check-interval", lib.DefaultMemoryCheckInterval,
		"how often the heap is sampled while a memory limit is set")
	flags.StringArrayP("env", "e", nil, "add/override environment variable with `VAR=value`")
	return flags
}

// getRuntimeOptions returns the options that were explicitly set through
// CLI flags. The env map is nil unless at least one -e was given.
func getRuntimeOptions(flags *pflag.FlagSet) (lib.RuntimeOptions, error) {
	opts := lib.RuntimeOptions{
		IncludeSystemEnvVars: getNullBool(flags, "include-system-env-vars"),
		TimeLimit:            getNullMilliseconds(flags, "time-limit"),
		MemoryLimit:          getNullInt64(flags, "memory-limit"),
		MemoryCheckInterval:  getNullMilliseconds(flags, "memory-check-interval"),
	}

	// Set/overwrite environment variables with custom user-supplied values
	envVars, err := flags.GetStringArray("env")
	if err != nil {
		return opts, err
	}
	for _, kv := range envVars {
		k, v := parseEnvKeyValue(kv)
		// Allow only alphanumeric ASCII variable names for now
		if !userEnvVarName.MatchString(k) {
			return opts, fmt.Errorf("invalid environment variable name '%s'", k)
		}
		if opts.Env == nil {
			opts.Env = make(map[string]string)
		}
		opts.Env[k] = v
	}

	return opts, nil
}

// scriptEnv returns the variables scripts see as __ENV: the system ones if
// enabled, overridden by the configured ones.
func scriptEnv(opts lib.RuntimeOptions, system map[string]string) map[string]string {
	env := make(map[string]string)
	if opts.IncludeSystemEnvVars.Bool {
		for k, v := range system {
			env[k] = v
		}
	}
	for k, v := range opts.Env {
		env[k] = v
	}
	return env
}
