// Package consts houses some constants needed across the module
package consts

// Version contains the current semantic version.
const Version = "0.3.0"

// EnvPrefix is the prefix of the environment variables the CLI reads its
// options from, e.g. V8JS_TIME_LIMIT.
const EnvPrefix = "V8JS"
