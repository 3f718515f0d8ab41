// Package main is the entry point for the ravemap CLI.
//
// Usage:
//
//	ravemap [flags] <command> [args]
//
// Commands:
//
//	serve     - Run the OSC control service
//	process   - Process a folder of audio files once
//	probe     - Report a model's latent dimensionality
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/ravelab/ravemap/cmd/ravemap/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
