package adapters

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/caseflow/recipe-executor/engine"
)

// MCPClient opens sessions against stdio- or SSE-transported MCP tool
// servers using mark3labs/mcp-go, the client-side counterpart of the same
// library the teacher uses to expose its own engine as an MCP server.
type MCPClient struct {
	// MaxOpenRetries bounds the transport-level reconnection attempts Open
	// makes when the initial handshake fails. Retry here is purely
	// transport reconnection, never step-level retry — the Executor itself
	// never retries a failed step.
	MaxOpenRetries uint64
}

// NewMCPClient returns an MCPClient with its default retry budget.
func NewMCPClient() *MCPClient {
	return &MCPClient{MaxOpenRetries: 3}
}

// Open starts a session against server, retrying the initial handshake with
// exponential backoff before giving up.
func (c *MCPClient) Open(ctx context.Context, server engine.MCPServerConfig) (engine.MCPSession, error) {
	var mc *client.Client
	operation := func() error {
		var err error
		mc, err = c.dial(ctx, server)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retryBudget())
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("open mcp session: %w", err)
	}

	return &mcpSession{client: mc}, nil
}

func (c *MCPClient) retryBudget() uint64 {
	if c.MaxOpenRetries > 0 {
		return c.MaxOpenRetries
	}
	return 3
}

func (c *MCPClient) dial(ctx context.Context, server engine.MCPServerConfig) (*client.Client, error) {
	var mc *client.Client
	var err error

	switch {
	case server.Command != "":
		env := make([]string, 0, len(server.Env))
		for k, v := range server.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		mc, err = client.NewStdioMCPClient(server.Command, env, server.Args...)
	case server.URL != "":
		opts := make([]client.ClientOption, 0, 1)
		if len(server.Headers) > 0 {
			opts = append(opts, client.WithHeaders(server.Headers))
		}
		mc, err = client.NewSSEMCPClient(server.URL, opts...)
	default:
		return nil, fmt.Errorf("mcp server config must set either 'command' or 'url'")
	}
	if err != nil {
		return nil, err
	}

	if err := mc.Start(ctx); err != nil {
		return nil, err
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "recipe-executor",
		Version: "0.1.0",
	}
	if _, err := mc.Initialize(ctx, initReq); err != nil {
		_ = mc.Close()
		return nil, err
	}

	return mc, nil
}

type mcpSession struct {
	client *client.Client
}

func (s *mcpSession) Invoke(ctx context.Context, toolName string, arguments map[string]any) (map[string]any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = arguments

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("tool %q returned an error result: %s", toolName, toolResultText(result))
	}

	return map[string]any{
		"content": toolResultText(result),
	}, nil
}

func toolResultText(result *mcp.CallToolResult) string {
	var out string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}

func (s *mcpSession) Close(_ context.Context) error {
	return s.client.Close()
}
