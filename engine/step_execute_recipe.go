package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

type executeRecipeStep struct {
	recipePath       string
	contextOverrides map[string]string
	baseDir          string
	fs               FileSystem
	executor         *Executor
	logger           *slog.Logger
}

func newExecuteRecipeStepFactory(executor *Executor, fs FileSystem, baseDir string) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		recipePath, _ := cfg["recipe_path"].(string)
		if recipePath == "" {
			return nil, &StepConfigError{Type: "execute_recipe", Reason: "'recipe_path' is required"}
		}

		overrides := map[string]string{}
		if raw, ok := cfg["context_overrides"].(map[string]any); ok {
			for k, v := range raw {
				s, ok := v.(string)
				if !ok {
					return nil, &StepConfigError{Type: "execute_recipe", Reason: fmt.Sprintf("context_overrides[%q] must be a string", k)}
				}
				overrides[k] = s
			}
		}

		return &executeRecipeStep{
			recipePath:       recipePath,
			contextOverrides: overrides,
			baseDir:          baseDir,
			fs:               fs,
			executor:         executor,
			logger:           logger,
		}, nil
	}
}

func (s *executeRecipeStep) Execute(ctx context.Context, rc *ctxstore.Context) error {
	renderedPath, err := template.Render(s.recipePath, rc)
	if err != nil {
		return err
	}
	renderedPath = s.fs.ExpandUser(renderedPath)

	resolved, err := s.resolvePath(renderedPath)
	if err != nil {
		return err
	}

	for key, tmplExpr := range s.contextOverrides {
		rendered, err := template.Render(tmplExpr, rc)
		if err != nil {
			return err
		}
		rc.Set(key, rendered)
	}

	s.logger.Debug("execute_recipe invoking sub-recipe", "path", resolved)
	return s.executor.Execute(ctx, resolved, rc)
}

// resolvePath tries renderedPath relative to baseDir (Deps.BaseDir) first,
// then relative to the working directory. baseDir is fixed when the
// registry is built — the CLI sets it to the top-level recipe's directory —
// so a sub-recipe's own directory is not searched for the recipes it in
// turn invokes.
func (s *executeRecipeStep) resolvePath(renderedPath string) (string, error) {
	if filepath.IsAbs(renderedPath) {
		if s.fs.Exists(renderedPath) {
			return renderedPath, nil
		}
		return "", &FileNotFoundError{Path: renderedPath}
	}

	if s.baseDir != "" {
		candidate := filepath.Join(s.baseDir, renderedPath)
		if s.fs.Exists(candidate) {
			return candidate, nil
		}
	}

	if s.fs.Exists(renderedPath) {
		return renderedPath, nil
	}

	return "", &FileNotFoundError{Path: renderedPath}
}
