// Package main is the entry point for the Sigil admin CLI.
// It mints and inspects session tokens, signs object store requests and
// runs the storage health check from a shell.
package main

import (
	"fmt"
	"os"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
