package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

type mcpStep struct {
	server    MCPServerConfig
	toolName  string
	arguments map[string]any
	resultKey string
	client    MCPClient
	logger    *slog.Logger
}

func newMCPStepFactory(client MCPClient) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		serverRaw, ok := cfg["server"].(map[string]any)
		if !ok {
			return nil, &StepConfigError{Type: "mcp", Reason: "'server' object is required"}
		}
		server := decodeOneMCPServer(serverRaw)
		if server.Command == "" && server.URL == "" {
			return nil, &StepConfigError{Type: "mcp", Reason: "'server' must set either 'command' or 'url'"}
		}

		toolName, _ := cfg["tool_name"].(string)
		if toolName == "" {
			return nil, &StepConfigError{Type: "mcp", Reason: "'tool_name' is required"}
		}

		arguments, _ := cfg["arguments"].(map[string]any)

		resultKey, _ := cfg["result_key"].(string)
		if resultKey == "" {
			resultKey = "tool_result"
		}

		if client == nil {
			return nil, &StepConfigError{Type: "mcp", Reason: "no MCPClient configured"}
		}

		return &mcpStep{
			server:    server,
			toolName:  toolName,
			arguments: arguments,
			resultKey: resultKey,
			client:    client,
			logger:    logger,
		}, nil
	}
}

func (s *mcpStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	server, err := s.renderServer(rc)
	if err != nil {
		return err
	}
	toolName, err := template.Render(s.toolName, rc)
	if err != nil {
		return err
	}

	args := make(map[string]any, len(s.arguments))
	for k, v := range s.arguments {
		if str, ok := v.(string); ok {
			rendered, err := template.Render(str, rc)
			if err != nil {
				return err
			}
			args[k] = rendered
			continue
		}
		args[k] = v
	}

	description := serviceDescription(server)

	session, err := s.client.Open(ctx, server)
	if err != nil {
		return &ToolInvocationError{Service: description, Cause: err}
	}
	defer session.Close(ctx)

	result, err := session.Invoke(ctx, toolName, args)
	if err != nil {
		return &ToolInvocationError{Service: description, Cause: err}
	}

	s.logger.Debug("mcp tool invoked", "tool", toolName, "server", description)
	rc.Set(s.resultKey, result)
	return nil
}

func (s *mcpStep) renderServer(rc *ctxstore.Context) (MCPServerConfig, error) {
	server := s.server
	var err error
	if server.Command != "" {
		server.Command, err = template.Render(server.Command, rc)
		if err != nil {
			return server, err
		}
		for i, a := range server.Args {
			server.Args[i], err = template.Render(a, rc)
			if err != nil {
				return server, err
			}
		}
	}
	if server.URL != "" {
		server.URL, err = template.Render(server.URL, rc)
		if err != nil {
			return server, err
		}
	}
	return server, nil
}

func serviceDescription(server MCPServerConfig) string {
	if server.URL != "" {
		return server.URL
	}
	parts := append([]string{server.Command}, server.Args...)
	return fmt.Sprintf("command: %s", strings.Join(parts, " "))
}
