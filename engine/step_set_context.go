package engine

import (
	"context"
	"log/slog"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

// setContextStep renders a template string and assigns it to an artifact
// key. It is the supplemented leaf step for conditional/loop bodies that
// need to stash a small value without a full LLM round trip.
type setContextStep struct {
	key         string
	value       string
	ifNotExists bool
	logger      *slog.Logger
}

func newSetContextStepFactory() StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		key, _ := cfg["key"].(string)
		if key == "" {
			return nil, &StepConfigError{Type: "set_context", Reason: "'key' is required"}
		}
		value, _ := cfg["value"].(string)
		ifNotExists, _ := cfg["if_not_exists"].(bool)

		return &setContextStep{key: key, value: value, ifNotExists: ifNotExists, logger: logger}, nil
	}
}

func (s *setContextStep) Execute(_ context.Context, rc *ctxstore.Context) error {
	if s.ifNotExists && rc.Contains(s.key) {
		s.logger.Debug("set_context skipped, key already present", "key", s.key)
		return nil
	}

	rendered, err := template.Render(s.value, rc)
	if err != nil {
		return err
	}
	rc.Set(s.key, rendered)
	return nil
}
