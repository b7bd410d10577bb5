package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/engine"
	"github.com/caseflow/recipe-executor/schema"
)

// fakeLLMProvider answers llm_generate calls from a per-model function table,
// letting each test scenario script the exact response it needs without a
// real provider.
type fakeLLMProvider struct {
	responders map[string]func(engine.GenerateRequest) (any, error)
}

func newFakeLLMProvider() *fakeLLMProvider {
	return &fakeLLMProvider{responders: map[string]func(engine.GenerateRequest) (any, error){}}
}

func (p *fakeLLMProvider) on(model string, fn func(engine.GenerateRequest) (any, error)) *fakeLLMProvider {
	p.responders[model] = fn
	return p
}

func (p *fakeLLMProvider) Generate(_ context.Context, req engine.GenerateRequest) (any, error) {
	fn, ok := p.responders[req.Model]
	if !ok {
		return nil, errors.New("no responder registered for model " + req.Model)
	}
	return fn(req)
}

// memFS is an in-memory engine.FileSystem for exercising read_files/write_files
// and parallel fan-out without touching disk.
type memFS struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemFS() *memFS { return &memFS{files: map[string]string{}} }

func (m *memFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *memFS) ReadText(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.files[path]
	if !ok {
		return "", errors.New("not found: " + path)
	}
	return v, nil
}

func (m *memFS) WriteText(path string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	return nil
}

func (m *memFS) MkdirAll(string) error { return nil }

func (m *memFS) ExpandUser(path string) string { return path }

func (m *memFS) snapshotKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

// multiplyStep is a minimal test-only step used by the loop scenario (S3): it
// multiplies the numeric value at a configured key by ten in place.
type multiplyStep struct{ key string }

func (s *multiplyStep) Execute(_ context.Context, rc *ctxstore.Context) error {
	v, _ := rc.Get(s.key)
	n, ok := v.(int)
	if !ok {
		return errors.New("multiply: value is not an int")
	}
	rc.Set(s.key, n*10)
	return nil
}

func newMultiplyStepFactory() engine.StepFactory {
	return func(cfg map[string]any, _ *slog.Logger) (engine.Step, error) {
		key, _ := cfg["key"].(string)
		return &multiplyStep{key: key}, nil
	}
}

func recipeFromSteps(steps []map[string]any) map[string]any {
	stepsAny := make([]any, len(steps))
	for i, s := range steps {
		stepsAny[i] = s
	}
	return map[string]any{"steps": stepsAny}
}

// TestS1_Echo exercises the echo scenario from spec.md §8: a single
// llm_generate step with a text output format and a stub provider that
// returns a fixed string.
func TestS1_Echo(t *testing.T) {
	provider := newFakeLLMProvider().on("stub/echo", func(engine.GenerateRequest) (any, error) {
		return "hi", nil
	})
	_, executor := engine.NewDefaultRegistry(engine.Deps{LLMProvider: provider, Logger: testLogger()})

	rc := ctxstore.New(nil, nil)
	recipe := recipeFromSteps([]map[string]any{
		{"type": "llm_generate", "config": map[string]any{
			"prompt": "hi", "model": "stub/echo", "output_format": "text", "output_key": "out",
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := rc.Get("out"); v != "hi" {
		t.Fatalf("got %v", v)
	}
}

// TestS2_Template exercises the rendered-prompt scenario: the prompt template
// is resolved against seeded context before being handed to the provider.
func TestS2_Template(t *testing.T) {
	provider := newFakeLLMProvider().on("stub/echo", func(req engine.GenerateRequest) (any, error) {
		return req.Prompt, nil
	})
	_, executor := engine.NewDefaultRegistry(engine.Deps{LLMProvider: provider, Logger: testLogger()})

	rc := ctxstore.New(map[string]any{"name": "world"}, nil)
	recipe := recipeFromSteps([]map[string]any{
		{"type": "llm_generate", "config": map[string]any{
			"prompt": "hello {{name}}", "model": "stub/echo", "output_format": "text", "output_key": "out",
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := rc.Get("out"); v != "hello world" {
		t.Fatalf("got %v", v)
	}
}

// TestS3_Loop exercises the loop ordering property: iterating [1,2,3] through
// a substep that multiplies by ten must yield [10,20,30] in input order.
func TestS3_Loop(t *testing.T) {
	registry, executor := engine.NewDefaultRegistry(engine.Deps{Logger: testLogger()})
	registry.Register("multiply10", newMultiplyStepFactory())

	rc := ctxstore.New(map[string]any{"xs": []any{1, 2, 3}}, nil)
	recipe := recipeFromSteps([]map[string]any{
		{"type": "loop", "config": map[string]any{
			"items":      "xs",
			"item_key":   "v",
			"result_key": "result",
			"substeps": []any{
				map[string]any{"type": "multiply10", "config": map[string]any{"key": "v"}},
			},
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := rc.Get("result")
	got, ok := v.([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("got %v", v)
	}
	want := []any{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// TestS4_ParallelWrites exercises the parallel fan-out property: two
// substeps each writing a distinct file must both land on disk, regardless
// of completion order.
func TestS4_ParallelWrites(t *testing.T) {
	fs := newMemFS()
	registry, executor := engine.NewDefaultRegistry(engine.Deps{FileSystem: fs, Logger: testLogger()})
	_ = registry

	rc := ctxstore.New(map[string]any{
		"fileA": []any{map[string]any{"path": "a.txt", "content": "A"}},
		"fileB": []any{map[string]any{"path": "b.txt", "content": "B"}},
	}, nil)

	recipe := recipeFromSteps([]map[string]any{
		{"type": "parallel", "config": map[string]any{
			"substeps": []any{
				map[string]any{"type": "write_files", "config": map[string]any{"artifact": "fileA", "root": "."}},
				map[string]any{"type": "write_files", "config": map[string]any{"artifact": "fileB", "root": "."}},
			},
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keys := fs.snapshotKeys()
	if len(keys) != 2 || keys[0] != "a.txt" || keys[1] != "b.txt" {
		t.Fatalf("got files %v", keys)
	}
}

// TestS5_Conditional exercises condition evaluation and branch selection.
func TestS5_Conditional(t *testing.T) {
	_, executor := engine.NewDefaultRegistry(engine.Deps{Logger: testLogger()})

	rc := ctxstore.New(map[string]any{"flag": true}, nil)
	recipe := recipeFromSteps([]map[string]any{
		{"type": "conditional", "config": map[string]any{
			"condition": `context["flag"] == true`,
			"if_true": map[string]any{
				"steps": []any{map[string]any{"type": "set_context", "config": map[string]any{"key": "x", "value": "1"}}},
			},
			"if_false": map[string]any{
				"steps": []any{map[string]any{"type": "set_context", "config": map[string]any{"key": "x", "value": "2"}}},
			},
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := rc.Get("x"); v != "1" {
		t.Fatalf("got %v", v)
	}
}

// TestS6_Schema exercises structured-output validation: a well-shaped
// response validates and stores as a mapping; a malformed one surfaces as
// LLMError wrapping a schema validation failure.
func TestS6_Schema(t *testing.T) {
	outputFormat := map[string]any{
		"type":     "object",
		"required": []any{"n", "s"},
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
			"s": map[string]any{"type": "string"},
		},
	}

	t.Run("valid", func(t *testing.T) {
		provider := newFakeLLMProvider().on("stub/obj", func(engine.GenerateRequest) (any, error) {
			return map[string]any{"n": 7, "s": "ok"}, nil
		})
		_, executor := engine.NewDefaultRegistry(engine.Deps{LLMProvider: provider, Logger: testLogger()})

		rc := ctxstore.New(nil, nil)
		recipe := recipeFromSteps([]map[string]any{
			{"type": "llm_generate", "config": map[string]any{
				"prompt": "go", "model": "stub/obj", "output_format": outputFormat, "output_key": "out",
			}},
		})
		if err := executor.Execute(context.Background(), recipe, rc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, _ := rc.Get("out")
		m := v.(map[string]any)
		if m["s"] != "ok" {
			t.Fatalf("got %v", m)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		provider := newFakeLLMProvider().on("stub/obj", func(engine.GenerateRequest) (any, error) {
			return map[string]any{"n": "not-a-number"}, nil
		})
		_, executor := engine.NewDefaultRegistry(engine.Deps{LLMProvider: provider, Logger: testLogger()})

		rc := ctxstore.New(nil, nil)
		recipe := recipeFromSteps([]map[string]any{
			{"type": "llm_generate", "config": map[string]any{
				"prompt": "go", "model": "stub/obj", "output_format": outputFormat, "output_key": "out",
			}},
		})
		err := executor.Execute(context.Background(), recipe, rc)
		if err == nil {
			t.Fatal("expected error")
		}

		var stepFailed *engine.StepFailedError
		if !errors.As(err, &stepFailed) {
			t.Fatalf("expected StepFailedError in chain, got %v", err)
		}
		var llmErr *engine.LLMError
		if !errors.As(err, &llmErr) {
			t.Fatalf("expected LLMError in chain, got %v", err)
		}
		var schemaErr *schema.SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("expected SchemaError in chain, got %v", err)
		}
	})
}

// TestSequentialOrder exercises the sequential-order testable property:
// steps that each record their own index must be observed in declared order.
func TestSequentialOrder(t *testing.T) {
	registry, executor := engine.NewDefaultRegistry(engine.Deps{Logger: testLogger()})
	var seen []int
	registry.Register("record", func(cfg map[string]any, _ *slog.Logger) (engine.Step, error) {
		n, _ := cfg["n"].(int)
		return recordStepFunc(func(context.Context, *ctxstore.Context) error {
			seen = append(seen, n)
			return nil
		}), nil
	})

	recipe := recipeFromSteps([]map[string]any{
		{"type": "record", "config": map[string]any{"n": 0}},
		{"type": "record", "config": map[string]any{"n": 1}},
		{"type": "record", "config": map[string]any{"n": 2}},
	})

	if err := executor.Execute(context.Background(), recipe, ctxstore.New(nil, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

type recordStepFunc func(context.Context, *ctxstore.Context) error

func (f recordStepFunc) Execute(ctx context.Context, rc *ctxstore.Context) error { return f(ctx, rc) }

// TestUnknownStepType exercises the UnknownStepType error path.
func TestUnknownStepType(t *testing.T) {
	_, executor := engine.NewDefaultRegistry(engine.Deps{Logger: testLogger()})
	recipe := recipeFromSteps([]map[string]any{{"type": "nope", "config": map[string]any{}}})

	err := executor.Execute(context.Background(), recipe, ctxstore.New(nil, nil))
	if !errors.Is(err, engine.ErrUnknownStepType) {
		t.Fatalf("expected ErrUnknownStepType, got %v", err)
	}
}

// TestLoopFailFastFalseCollectsErrors exercises the non-fail-fast loop path:
// a failing iteration is recorded rather than aborting the whole loop.
func TestLoopFailFastFalseCollectsErrors(t *testing.T) {
	registry, executor := engine.NewDefaultRegistry(engine.Deps{Logger: testLogger()})
	registry.Register("fail_on_two", func(map[string]any, *slog.Logger) (engine.Step, error) {
		return recordStepFunc(func(_ context.Context, rc *ctxstore.Context) error {
			v, _ := rc.Get("v")
			if v == 2 {
				return errors.New("boom")
			}
			rc.Set("v", v)
			return nil
		}), nil
	})

	rc := ctxstore.New(map[string]any{"xs": []any{1, 2, 3}}, nil)
	recipe := recipeFromSteps([]map[string]any{
		{"type": "loop", "config": map[string]any{
			"items":      "xs",
			"item_key":   "v",
			"result_key": "result",
			"fail_fast":  false,
			"substeps": []any{
				map[string]any{"type": "fail_on_two", "config": map[string]any{}},
			},
		}},
	})

	if err := executor.Execute(context.Background(), recipe, rc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, _ := rc.Get("result")
	if got := result.([]any); len(got) != 2 {
		t.Fatalf("expected 2 successful results, got %v", got)
	}
	if _, ok := rc.Get("result__errors"); !ok {
		t.Fatal("expected result__errors to be set")
	}
}
