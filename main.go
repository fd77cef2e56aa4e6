// Package main is the entry point for the Prism CLI.
package main

import "github.com/prism-rts/prism/cmd"

func main() {
	cmd.Execute()
}
