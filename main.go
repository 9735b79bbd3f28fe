// Package main is the entry point of the v8js command.
package main

import "github.com/aphofstede/v8js/cmd"

func main() {
	cmd.Execute()
}
