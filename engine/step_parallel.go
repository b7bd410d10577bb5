package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/caseflow/recipe-executor/ctxstore"
)

type parallelStep struct {
	substeps       []StepDescriptor
	maxConcurrency int64
	delay          time.Duration
	executor       *Executor
	logger         *slog.Logger
}

func newParallelStepFactory(executor *Executor) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		stepsRaw, _ := cfg["substeps"].([]any)
		if len(stepsRaw) == 0 {
			return nil, &StepConfigError{Type: "parallel", Reason: "'substeps' must be a non-empty list"}
		}

		substeps := make([]StepDescriptor, 0, len(stepsRaw))
		for i, raw := range stepsRaw {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, &StepConfigError{Type: "parallel", Reason: fmt.Sprintf("substeps[%d] must be an object", i)}
			}
			typ, ok := m["type"].(string)
			if !ok || typ == "" {
				return nil, &StepConfigError{Type: "parallel", Reason: fmt.Sprintf("substeps[%d] missing 'type'", i)}
			}
			subCfg, _ := m["config"].(map[string]any)
			if subCfg == nil {
				subCfg = map[string]any{}
			}
			substeps = append(substeps, StepDescriptor{Type: typ, Config: subCfg})
		}

		maxConcurrency := int64(0)
		if v, ok := cfg["max_concurrency"]; ok {
			n, err := toNonNegativeInt(v)
			if err != nil {
				return nil, &StepConfigError{Type: "parallel", Reason: "'max_concurrency': " + err.Error()}
			}
			maxConcurrency = n
		}

		delay := time.Duration(0)
		if v, ok := cfg["delay"]; ok {
			seconds, err := toNonNegativeFloat(v)
			if err != nil {
				return nil, &StepConfigError{Type: "parallel", Reason: "'delay': " + err.Error()}
			}
			delay = time.Duration(seconds * float64(time.Second))
		}

		return &parallelStep{
			substeps:       substeps,
			maxConcurrency: maxConcurrency,
			delay:          delay,
			executor:       executor,
			logger:         logger,
		}, nil
	}
}

func toNonNegativeInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("must be >= 0")
		}
		return int64(n), nil
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("must be >= 0")
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("must be a number")
	}
}

func toNonNegativeFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("must be >= 0")
		}
		return float64(n), nil
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("must be >= 0")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be a number")
	}
}

// Execute launches each substep against its own clone of rc, bounded by
// maxConcurrency and staggered by delay. It is fail-fast: once any substep
// errors, no further substeps are launched, but already-running substeps
// are allowed to finish (never force-cancelled).
func (s *parallelStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	weight := s.maxConcurrency
	if weight <= 0 {
		weight = int64(len(s.substeps))
	}
	sem := semaphore.NewWeighted(weight)

	var wg sync.WaitGroup
	var aborted atomic.Bool
	var firstErr atomic.Pointer[error]

	for i, desc := range s.substeps {
		if aborted.Load() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if aborted.Load() {
			sem.Release(1)
			break
		}

		wg.Add(1)
		go func(i int, desc StepDescriptor) {
			defer wg.Done()
			defer sem.Release(1)

			child := rc.Clone()
			recipe := &Recipe{Steps: []StepDescriptor{desc}}
			if err := s.executor.Execute(ctx, recipe, child); err != nil {
				wrapped := fmt.Errorf("parallel substep %d (%s): %w", i, desc.Type, err)
				firstErr.CompareAndSwap(nil, &wrapped)
				aborted.Store(true)
			}
		}(i, desc)

		if i < len(s.substeps)-1 && s.delay > 0 {
			time.Sleep(s.delay)
		}
	}

	wg.Wait()

	if p := firstErr.Load(); p != nil {
		return *p
	}
	return nil
}
