// Command recipe-executor is the CLI entrypoint driving the core engine
// against a single recipe. It is peripheral glue per spec.md §1: the
// entrypoint, flag parsing, and logger setup live here so the core packages
// never import "flag".
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err) //nolint:gosec // G705: CLI error output
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(opts.logDir)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closeLog()

	artifacts, err := loadArtifacts(opts)
	if err != nil {
		return err
	}

	return executeRecipe(context.Background(), opts.recipePath, artifacts, logger)
}
