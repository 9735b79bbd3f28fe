package lib

import (
	"errors"
	"time"

	"gopkg.in/guregu/null.v3"
)

// DefaultMemoryCheckInterval is how often the heap is sampled when a memory
// limit is set and no interval was configured.
const DefaultMemoryCheckInterval = 10 * time.Millisecond

// RuntimeOptions are settings passed onto the goja JS runtime
type RuntimeOptions struct {
	// Time budget for a single script run, in milliseconds
	TimeLimit null.Int `json:"timeLimit" envconfig:"TIME_LIMIT"`

	// Heap growth budget for a single script run, in bytes
	MemoryLimit null.Int `json:"memoryLimit" envconfig:"MEMORY_LIMIT"`

	// How often the heap is sampled while a memory limit is set, in milliseconds
	MemoryCheckInterval null.Int `json:"memoryCheckInterval" envconfig:"MEMORY_CHECK_INTERVAL"`

	// Whether to pass the actual system environment variables to the JS runtime
	IncludeSystemEnvVars null.Bool `json:"includeSystemEnvVars" envconfig:"INCLUDE_SYSTEM_ENV_VARS"`

	// Environment variables exposed to scripts as __ENV
	Env map[string]string `json:"env" ignored:"true"`
}

// Apply returns a copy of o with every option set in opts overriding it.
func (o RuntimeOptions) Apply(opts RuntimeOptions) RuntimeOptions {
	if opts.TimeLimit.Valid {
		o.TimeLimit = opts.TimeLimit
	}
	if opts.MemoryLimit.Valid {
		o.MemoryLimit = opts.MemoryLimit
	}
	if opts.MemoryCheckInterval.Valid {
		o.MemoryCheckInterval = opts.MemoryCheckInterval
	}
	if opts.IncludeSystemEnvVars.Valid {
		o.IncludeSystemEnvVars = opts.IncludeSystemEnvVars
	}
	if opts.Env != nil {
		env := make(map[string]string, len(o.Env)+len(opts.Env))
		for k, v := range o.Env {
			env[k] = v
		}
		for k, v := range opts.Env {
			env[k] = v
		}
		o.Env = env
	}
	return o
}

// Validate checks the options for values the runtime can't work with.
func (o RuntimeOptions) Validate() error {
	var errs []error
	if o.TimeLimit.Valid && o.TimeLimit.Int64 < 0 {
		errs = append(errs, errors.New("time limit can't be negative"))
	}
	if o.MemoryLimit.Valid && o.MemoryLimit.Int64 < 0 {
		errs = append(errs, errors.New("memory limit can't be negative"))
	}
	if o.MemoryCheckInterval.Valid && o.MemoryCheckInterval.Int64 <= 0 {
		errs = append(errs, errors.New("memory check interval must be positive"))
	}
	return errors.Join(errs...)
}

// TimeLimitDuration returns the time limit, zero meaning unlimited.
func (o RuntimeOptions) TimeLimitDuration() time.Duration {
	if !o.TimeLimit.Valid {
		return 0
	}
	return time.Duration(o.TimeLimit.Int64) * time.Millisecond
}

// MemoryLimitBytes returns the memory limit, zero meaning unlimited.
func (o RuntimeOptions) MemoryLimitBytes() uint64 {
	if !o.MemoryLimit.Valid || o.MemoryLimit.Int64 < 0 {
		return 0
	}
	return uint64(o.MemoryLimit.Int64)
}

// MemoryCheckEvery returns the heap sampling interval.
func (o RuntimeOptions) MemoryCheckEvery() time.Duration {
	if !o.MemoryCheckInterval.Valid || o.MemoryCheckInterval.Int64 <= 0 {
		return DefaultMemoryCheckInterval
	}
	return time.Duration(o.MemoryCheckInterval.Int64) * time.Millisecond
}
