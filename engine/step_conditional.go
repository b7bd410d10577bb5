package engine

import (
	"context"
	"log/slog"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

type conditionalStep struct {
	condition string
	ifTrue    *Recipe
	ifFalse   *Recipe
	eval      *conditionEvaluator
	executor  *Executor
	logger    *slog.Logger
}

func newConditionalStepFactory(executor *Executor, fs FileSystem) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		condition, _ := cfg["condition"].(string)
		if condition == "" {
			return nil, &StepConfigError{Type: "conditional", Reason: "'condition' is required"}
		}

		ifTrue, err := branchRecipe(cfg["if_true"])
		if err != nil {
			return nil, &StepConfigError{Type: "conditional", Reason: "if_true: " + err.Error()}
		}
		if ifTrue == nil {
			return nil, &StepConfigError{Type: "conditional", Reason: "'if_true' is required"}
		}

		ifFalse, err := branchRecipe(cfg["if_false"])
		if err != nil {
			return nil, &StepConfigError{Type: "conditional", Reason: "if_false: " + err.Error()}
		}

		eval, err := newConditionEvaluator(fs)
		if err != nil {
			return nil, err
		}

		return &conditionalStep{
			condition: condition,
			ifTrue:    ifTrue,
			ifFalse:   ifFalse,
			eval:      eval,
			executor:  executor,
			logger:    logger,
		}, nil
	}
}

func branchRecipe(raw any) (*Recipe, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &StepConfigError{Type: "conditional", Reason: "branch must be an object with a 'steps' array"}
	}
	return decodeRecipe(m, "conditional-branch")
}

func (s *conditionalStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	rendered, err := template.Render(s.condition, rc)
	if err != nil {
		return err
	}

	result, err := s.eval.Eval(rendered, rc.Snapshot())
	if err != nil {
		return &ConditionError{Expression: rendered, Cause: err}
	}

	s.logger.Debug("conditional evaluated", "expression", rendered, "result", result)

	if result {
		return s.executor.Execute(ctx, s.ifTrue, rc)
	}
	if s.ifFalse != nil {
		return s.executor.Execute(ctx, s.ifFalse, rc)
	}
	return nil
}
