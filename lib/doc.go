// Package lib holds the types shared by the runtime and the command, mainly
// the runtime options and their consolidation.
package lib
