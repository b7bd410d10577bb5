package engine

import (
	"context"
	"log/slog"

	"github.com/caseflow/recipe-executor/ctxstore"
)

// Step is a single composable unit of a recipe. Implementations are
// constructed once per occurrence in a recipe (or once per loop iteration),
// execute exactly once, and are then discarded.
type Step interface {
	// Execute runs the step against rc, reading and/or writing artifacts.
	Execute(ctx context.Context, rc *ctxstore.Context) error
}

// StepFactory builds a Step from its type-specific config and a logger.
// Factories validate config at construction time and return an error
// (usually StepConfigError) on a malformed shape. A few steps also return
// StepConfigError from Execute when a value only known at run time is
// unusable, such as a read_files path that renders to an empty list or a
// write_files artifact that is absent.
type StepFactory func(cfg map[string]any, logger *slog.Logger) (Step, error)
