package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/caseflow/recipe-executor/ctxstore"
)

// Executor loads a recipe and drives its steps sequentially against a
// Context. It is the single dispatch point every control-flow step
// (execute_recipe, loop, parallel) re-enters for its own sub-execution.
type Executor struct {
	registry *StepRegistry
	logger   *slog.Logger
}

// NewExecutor builds an Executor bound to registry. logger may be nil, in
// which case slog.Default() is used.
func NewExecutor(registry *StepRegistry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger}
}

// Registry returns the registry this Executor dispatches against, letting
// control-flow steps build sub-steps from the same set of built-ins.
func (e *Executor) Registry() *StepRegistry { return e.registry }

// Logger returns the executor's logger so steps can derive child loggers.
func (e *Executor) Logger() *slog.Logger { return e.logger }

// Execute resolves raw to a Recipe and runs its steps in order against rc.
// A step failure is wrapped in a StepFailedError naming its index and type
// and returned immediately — the executor never retries.
func (e *Executor) Execute(ctx context.Context, raw any, rc *ctxstore.Context) error {
	recipe, err := LoadRecipe(raw)
	if err != nil {
		return err
	}

	frameID := uuid.New().String()
	e.logger.Info("recipe execution started", "steps", len(recipe.Steps), "frame", frameID)

	for i, desc := range recipe.Steps {
		factory, ok := e.registry.Lookup(desc.Type)
		if !ok {
			err := &UnknownStepTypeError{Type: desc.Type}
			e.logger.Error("unknown step type", "index", i, "type", desc.Type)
			return &StepFailedError{Index: i, Type: desc.Type, Cause: err}
		}

		stepLogger := e.logger.With("step", desc.Type, "index", i)
		step, err := factory(desc.Config, stepLogger)
		if err != nil {
			stepLogger.Error("step construction failed", "error", err)
			return &StepFailedError{Index: i, Type: desc.Type, Cause: err}
		}

		stepLogger.Info("step started")
		stepLogger.Debug("step config", "config", desc.Config)

		if err := step.Execute(ctx, rc); err != nil {
			stepLogger.Error("step failed", "error", err)
			return &StepFailedError{Index: i, Type: desc.Type, Cause: err}
		}

		stepLogger.Info("step completed")
	}

	e.logger.Info("recipe execution completed", "frame", frameID)
	return nil
}
