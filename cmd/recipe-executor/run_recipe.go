package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/caseflow/recipe-executor/adapters"
	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/engine"
)

// executeRecipe wires the default registry against real capability adapters
// and drives recipePath to completion. Concrete LLM provider clients are
// out of core scope (spec.md §1); StubLLMProvider lets "stub/*" models run
// without network access, which is enough for local recipe authoring and
// the CLI smoke path.
func executeRecipe(ctx context.Context, recipePath string, artifacts map[string]any, logger *slog.Logger) error {
	fs := adapters.NewOSFileSystem()

	_, executor := engine.NewDefaultRegistry(engine.Deps{
		LLMProvider: adapters.NewStubLLMProvider(),
		MCPClient:   adapters.NewMCPClient(),
		FileSystem:  fs,
		BaseDir:     filepath.Dir(recipePath),
		Logger:      logger,
	})

	rc := ctxstore.New(artifacts, nil)
	return executor.Execute(ctx, recipePath, rc)
}
