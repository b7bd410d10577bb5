package engine

import "log/slog"

// Deps collects the capability adapters and configuration NewDefaultRegistry
// needs to wire up every built-in step type.
type Deps struct {
	LLMProvider LLMProvider
	MCPClient   MCPClient
	FileSystem  FileSystem
	// BaseDir is the directory execute_recipe resolves relative recipe_path
	// values against first, before falling back to the working directory.
	BaseDir string
	Logger  *slog.Logger
}

// NewDefaultRegistry builds the Executor/StepRegistry pair and registers
// every built-in step type exactly once. This is the single registration
// path: there is no package-level init() side effect and no second entry
// point that populates the registry differently.
//
// execute_recipe, loop, parallel, and conditional all need to dispatch back
// into the Executor they belong to, and the Executor needs a populated
// registry to dispatch steps at all. That circular dependency is resolved
// with two-phase construction: the Executor is built with an empty registry
// first; factories close over its pointer rather than a finished registry,
// so nothing actually dereferences the registry until a recipe is run,
// by which point the second phase has filled it in.
func NewDefaultRegistry(deps Deps) (*StepRegistry, *Executor) {
	registry := NewStepRegistry()
	executor := NewExecutor(registry, deps.Logger)

	registry.Register("read_files", newReadFilesStepFactory(deps.FileSystem))
	registry.Register("write_files", newWriteFilesStepFactory(deps.FileSystem))
	registry.Register("set_context", newSetContextStepFactory())
	registry.Register("llm_generate", newLLMGenerateStepFactory(deps.LLMProvider))
	registry.Register("mcp", newMCPStepFactory(deps.MCPClient))
	registry.Register("execute_recipe", newExecuteRecipeStepFactory(executor, deps.FileSystem, deps.BaseDir))
	registry.Register("loop", newLoopStepFactory(executor))
	registry.Register("parallel", newParallelStepFactory(executor))
	registry.Register("conditional", newConditionalStepFactory(executor, deps.FileSystem))

	return registry, executor
}
