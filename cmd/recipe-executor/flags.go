package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
)

// cliOptions is the parsed shape of the fixed CLI surface in spec.md §6,
// plus the --context-file supplement described in SPEC_FULL.md §4.
type cliOptions struct {
	recipePath   string
	contextPairs []string
	contextFile  string
	logDir       string
}

// repeatedFlag collects every occurrence of a repeatable flag in the order
// given on the command line, matching flag.Value's append-on-each-call
// contract.
type repeatedFlag struct{ values *[]string }

func (r repeatedFlag) String() string {
	if r.values == nil {
		return ""
	}
	return strings.Join(*r.values, ",")
}

func (r repeatedFlag) Set(v string) error {
	*r.values = append(*r.values, v)
	return nil
}

func parseArgs(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("recipe-executor", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: recipe-executor [options] <recipe_path>

Options:
`)
		fs.PrintDefaults()
	}

	var opts cliOptions
	fs.Var(repeatedFlag{&opts.contextPairs}, "context", "seed an artifact as key=value (repeatable)")
	fs.StringVar(&opts.contextFile, "context-file", "", "JSON file of artifacts to seed before --context overrides")
	fs.StringVar(&opts.logDir, "log-dir", "", "directory to write a debug-level recipe.log into")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return cliOptions{}, fmt.Errorf("recipe_path is required")
	}
	opts.recipePath = fs.Arg(0)
	return opts, nil
}

// loadArtifacts merges --context-file (if given) with --context key=value
// pairs, individual flags overriding the file per SPEC_FULL.md §4.
func loadArtifacts(opts cliOptions) (map[string]any, error) {
	artifacts := map[string]any{}

	if opts.contextFile != "" {
		data, err := os.ReadFile(opts.contextFile) //nolint:gosec // G304: operator-supplied CLI path
		if err != nil {
			return nil, fmt.Errorf("read --context-file %q: %w", opts.contextFile, err)
		}
		if err := json.Unmarshal(data, &artifacts); err != nil {
			return nil, fmt.Errorf("decode --context-file %q: %w", opts.contextFile, err)
		}
	}

	for _, pair := range opts.contextPairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--context %q: expected key=value", pair)
		}
		artifacts[key] = coerceContextValue(value)
	}

	return artifacts, nil
}

// coerceContextValue mirrors the Context's permissive artifact typing
// (spec.md §3): a value that parses as JSON (a number, boolean, object, or
// array) is decoded as such; anything else is kept as a plain string.
func coerceContextValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
