package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

type loopStep struct {
	items     string
	itemKey   string
	resultKey string
	failFast  bool
	body      *Recipe
	executor  *Executor
	logger    *slog.Logger
}

func newLoopStepFactory(executor *Executor) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		items, _ := cfg["items"].(string)
		if items == "" {
			return nil, &StepConfigError{Type: "loop", Reason: "'items' is required"}
		}
		itemKey, _ := cfg["item_key"].(string)
		if itemKey == "" {
			return nil, &StepConfigError{Type: "loop", Reason: "'item_key' is required"}
		}
		resultKey, _ := cfg["result_key"].(string)
		if resultKey == "" {
			return nil, &StepConfigError{Type: "loop", Reason: "'result_key' is required"}
		}

		failFast := true
		if v, ok := cfg["fail_fast"]; ok {
			b, ok := v.(bool)
			if !ok {
				return nil, &StepConfigError{Type: "loop", Reason: "'fail_fast' must be a boolean"}
			}
			failFast = b
		}

		substepsRaw, _ := cfg["substeps"].([]any)
		body, err := decodeRecipe(map[string]any{"steps": substepsRaw}, "loop-substeps")
		if err != nil {
			return nil, &StepConfigError{Type: "loop", Reason: "substeps: " + err.Error()}
		}

		return &loopStep{
			items:     items,
			itemKey:   itemKey,
			resultKey: resultKey,
			failFast:  failFast,
			body:      body,
			executor:  executor,
			logger:    logger,
		}, nil
	}
}

type loopError struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

func (s *loopStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	rendered, err := template.Render(s.items, rc)
	if err != nil {
		return err
	}

	collection, found := resolveDottedPath(rc.Snapshot(), rendered)
	if !found || collection == nil {
		rc.Set(s.resultKey, []any{})
		return nil
	}

	switch coll := collection.(type) {
	case map[string]any:
		return s.runMapping(ctx, rc, coll)
	case []any:
		return s.runSequence(ctx, rc, coll)
	default:
		return s.runSequence(ctx, rc, []any{collection})
	}
}

func (s *loopStep) runSequence(ctx context.Context, rc *ctxstore.Context, items []any) error {
	results := make([]any, 0, len(items))
	var errs []loopError

	for i, item := range items {
		result, err := s.runOne(ctx, rc, item, map[string]any{"__index": i})
		if err != nil {
			if s.failFast {
				return err
			}
			errs = append(errs, loopError{Key: fmt.Sprintf("%d", i), Error: err.Error()})
			continue
		}
		results = append(results, result)
	}

	rc.Set(s.resultKey, results)
	if len(errs) > 0 {
		rc.Set(s.resultKey+"__errors", errs)
	}
	return nil
}

func (s *loopStep) runMapping(ctx context.Context, rc *ctxstore.Context, items map[string]any) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make(map[string]any, len(items))
	var errs []loopError

	for _, k := range keys {
		result, err := s.runOne(ctx, rc, items[k], map[string]any{"__key": k})
		if err != nil {
			if s.failFast {
				return err
			}
			errs = append(errs, loopError{Key: k, Error: err.Error()})
			continue
		}
		results[k] = result
	}

	rc.Set(s.resultKey, results)
	if len(errs) > 0 {
		rc.Set(s.resultKey+"__errors", errs)
	}
	return nil
}

func (s *loopStep) runOne(ctx context.Context, parent *ctxstore.Context, item any, extra map[string]any) (any, error) {
	child := parent.Clone()
	child.Set(s.itemKey, item)
	for k, v := range extra {
		child.Set(k, v)
	}

	if err := s.executor.Execute(ctx, s.body, child); err != nil {
		return nil, err
	}

	result, _ := child.Get(s.itemKey)
	return result, nil
}
