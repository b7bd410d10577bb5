package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/schema"
	"github.com/caseflow/recipe-executor/template"
)

type llmGenerateStep struct {
	prompt       string
	model        string
	outputKey    string
	schema       *schema.Compiled
	mcpServers   []MCPServerConfig
	provider     LLMProvider
	logger       *slog.Logger
}

func newLLMGenerateStepFactory(provider LLMProvider) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		prompt, _ := cfg["prompt"].(string)
		if prompt == "" {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "'prompt' is required"}
		}
		model, _ := cfg["model"].(string)
		if model == "" {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "'model' is required"}
		}
		outputKey, _ := cfg["output_key"].(string)
		if outputKey == "" {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "'output_key' is required"}
		}
		outputFormat, ok := cfg["output_format"]
		if !ok {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "'output_format' is required"}
		}

		compiled, err := schema.Compile(outputFormat)
		if err != nil {
			return nil, err
		}

		servers, err := decodeMCPServers(cfg["mcp_servers"])
		if err != nil {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "'mcp_servers': " + err.Error()}
		}

		if provider == nil {
			return nil, &StepConfigError{Type: "llm_generate", Reason: "no LLMProvider configured"}
		}

		return &llmGenerateStep{
			prompt:     prompt,
			model:      model,
			outputKey:  outputKey,
			schema:     compiled,
			mcpServers: servers,
			provider:   provider,
			logger:     logger,
		}, nil
	}
}

func decodeMCPServers(raw any) ([]MCPServerConfig, error) {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("must be a list of server objects")
	}
	out := make([]MCPServerConfig, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d must be an object", i)
		}
		out = append(out, decodeOneMCPServer(m))
	}
	return out, nil
}

func decodeOneMCPServer(m map[string]any) MCPServerConfig {
	cfg := MCPServerConfig{}
	cfg.Command, _ = m["command"].(string)
	cfg.URL, _ = m["url"].(string)
	cfg.WorkingDir, _ = m["working_dir"].(string)
	if args, ok := m["args"].([]any); ok {
		for _, a := range args {
			if s, ok := a.(string); ok {
				cfg.Args = append(cfg.Args, s)
			}
		}
	}
	if env, ok := m["env"].(map[string]any); ok {
		cfg.Env = make(map[string]string, len(env))
		for k, v := range env {
			if s, ok := v.(string); ok {
				cfg.Env[k] = s
			}
		}
	}
	if headers, ok := m["headers"].(map[string]any); ok {
		cfg.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			if s, ok := v.(string); ok {
				cfg.Headers[k] = s
			}
		}
	}
	return cfg
}

func (s *llmGenerateStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	prompt, err := template.Render(s.prompt, rc)
	if err != nil {
		return err
	}
	model, err := template.Render(s.model, rc)
	if err != nil {
		return err
	}
	outputKey, err := template.Render(s.outputKey, rc)
	if err != nil {
		return err
	}

	s.logger.Info("llm_generate invoking provider", "model", model)
	s.logger.Debug("llm_generate prompt", "prompt", prompt)

	raw, err := s.provider.Generate(ctx, GenerateRequest{
		Model:      model,
		Prompt:     prompt,
		Schema:     s.schema,
		MCPServers: s.mcpServers,
	})
	if err != nil {
		return &LLMError{Model: model, Cause: err}
	}

	validated, err := s.schema.Validate(raw)
	if err != nil {
		return &LLMError{Model: model, Cause: err}
	}

	s.logger.Debug("llm_generate response", "response", validated)

	rc.Set(outputKey, validated)
	return nil
}
