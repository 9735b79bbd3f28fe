// Package exitcodes contains the constants representing possible exit error codes.
package exitcodes

// ExitCode is just a type representing a process exit code
type ExitCode uint8

// list of exit codes, one per exception kind plus configuration errors
const (
	GenericEngine     ExitCode = 103
	InvalidConfig     ExitCode = 104
	ScriptException   ExitCode = 107
	ScriptTimeLimit   ExitCode = 109
	ScriptMemoryLimit ExitCode = 110
)
