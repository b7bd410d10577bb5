package engine

import (
	"context"

	"github.com/caseflow/recipe-executor/schema"
)

// LLMProvider turns a rendered prompt and an expected output shape into a
// validated value. Implementations own provider auth, wire formats, and MCP
// tool wiring; the core never interprets provider-specific errors beyond
// surfacing them wrapped as LLMError.
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (any, error)
}

// GenerateRequest is everything an LLMProvider needs to service one
// llm_generate step invocation.
type GenerateRequest struct {
	Model      string
	Prompt     string
	Schema     *schema.Compiled
	MCPServers []MCPServerConfig
}

// MCPServerConfig selects a transport for an MCP tool server: either a
// stdio command or an HTTP/SSE URL.
type MCPServerConfig struct {
	Command    string
	Args       []string
	Env        map[string]string
	WorkingDir string
	URL        string
	Headers    map[string]string
}

// MCPClient opens sessions against MCP tool servers.
type MCPClient interface {
	Open(ctx context.Context, server MCPServerConfig) (MCPSession, error)
}

// MCPSession is one opened connection to an MCP tool server. Callers must
// call Close exactly once, regardless of whether Invoke succeeded.
type MCPSession interface {
	Invoke(ctx context.Context, toolName string, arguments map[string]any) (map[string]any, error)
	Close(ctx context.Context) error
}

// FileSystem is the thin façade over OS file I/O that steps use for disk
// access, letting tests substitute an in-memory fake. Two reads bypass it:
// the conditional step's is_newer predicate calls os.Stat directly, and
// LoadRecipe (which execute_recipe uses to load a sub-recipe) calls
// os.ReadFile.
type FileSystem interface {
	Exists(path string) bool
	ReadText(path string) (string, error)
	WriteText(path string, content string) error
	MkdirAll(path string) error
	ExpandUser(path string) string
}
