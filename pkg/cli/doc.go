// Package cli provides common helpers for the ravemap command-line
// tools: result output in multiple formats, terminal styling, and
// human-readable value formatting.
//
// Example usage:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
