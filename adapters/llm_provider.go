package adapters

import (
	"context"
	"fmt"

	"github.com/caseflow/recipe-executor/engine"
	"github.com/caseflow/recipe-executor/model"
)

// UnconfiguredLLMProvider is a placeholder LLMProvider for setups with no
// concrete provider (OpenAI, Anthropic, Azure, Ollama): every call fails,
// naming the model. Concrete provider clients are deliberately out of the
// core's scope — see spec.md §1 — so this package ships only this placeholder
// plus StubLLMProvider, which is the one the CLI wires for local
// smoke-testing; a real deployment supplies its own engine.LLMProvider.
type UnconfiguredLLMProvider struct{}

func (UnconfiguredLLMProvider) Generate(_ context.Context, req engine.GenerateRequest) (any, error) {
	return nil, fmt.Errorf("no LLM provider configured for model %q; wire a concrete engine.LLMProvider implementation", req.Model)
}

// StubLLMProvider is a deterministic, network-free LLMProvider for local
// development and smoke tests. The model identifier selects the response:
//
//   - a model registered via WithFixedResponse returns its fixed payload
//     (checked first, for any identifier).
//   - "stub/echo" returns the rendered prompt verbatim as text output.
//   - "stub/files" returns one file, "stub.txt", holding the prompt.
//
// Any other model is an error. It never calls out to a real provider; it
// exists so a recipe author can exercise an entire recipe's control flow
// before wiring real credentials.
type StubLLMProvider struct {
	// Fixed holds canned responses keyed by model identifier, registered via
	// WithFixedResponse.
	Fixed map[string]any
}

// NewStubLLMProvider returns an empty StubLLMProvider; register fixed
// responses with WithFixedResponse before use.
func NewStubLLMProvider() *StubLLMProvider {
	return &StubLLMProvider{Fixed: map[string]any{}}
}

// WithFixedResponse registers value as the response StubLLMProvider.Generate
// returns for the given model identifier.
func (p *StubLLMProvider) WithFixedResponse(model string, value any) *StubLLMProvider {
	p.Fixed[model] = value
	return p
}

func (p *StubLLMProvider) Generate(_ context.Context, req engine.GenerateRequest) (any, error) {
	if v, ok := p.Fixed[req.Model]; ok {
		return v, nil
	}

	switch req.Model {
	case "stub/echo":
		return req.Prompt, nil
	case "stub/files":
		return model.FileGenerationResult{
			Files: []model.FileSpec{{Path: "stub.txt", Content: req.Prompt}},
		}, nil
	default:
		return nil, fmt.Errorf("stub provider has no fixed response and no builtin mode for model %q", req.Model)
	}
}
