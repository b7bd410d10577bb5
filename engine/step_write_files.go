package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/model"
	"github.com/caseflow/recipe-executor/template"
)

type writeFilesStep struct {
	artifact string
	root     string
	fs       FileSystem
	logger   *slog.Logger
}

func newWriteFilesStepFactory(fs FileSystem) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		artifact, _ := cfg["artifact"].(string)
		if artifact == "" {
			return nil, &StepConfigError{Type: "write_files", Reason: "'artifact' is required"}
		}
		root, _ := cfg["root"].(string)
		if root == "" {
			root = "."
		}
		return &writeFilesStep{artifact: artifact, root: root, fs: fs, logger: logger}, nil
	}
}

func (s *writeFilesStep) Execute(_ context.Context, rc *ctxstore.Context) error {
	value, ok := rc.Get(s.artifact)
	if !ok {
		return &StepConfigError{Type: "write_files", Reason: fmt.Sprintf("artifact %q not found", s.artifact)}
	}

	files, err := extractFileSpecs(value)
	if err != nil {
		return &StepConfigError{Type: "write_files", Reason: err.Error()}
	}

	root, err := template.Render(s.root, rc)
	if err != nil {
		return err
	}
	root = s.fs.ExpandUser(root)

	for _, f := range files {
		renderedPath, err := template.Render(f.Path, rc)
		if err != nil {
			return err
		}
		renderedContent, err := template.Render(f.Content, rc)
		if err != nil {
			return err
		}

		target := resolveWritePath(root, renderedPath, s.fs)

		if err := s.fs.MkdirAll(filepath.Dir(target)); err != nil {
			return fmt.Errorf("write_files: create directory for %q: %w", target, err)
		}
		if err := s.fs.WriteText(target, renderedContent); err != nil {
			return fmt.Errorf("write_files: write %q: %w", target, err)
		}
		s.logger.Debug("wrote file", "path", target)
	}

	return nil
}

// resolveWritePath joins root and path per the write_files path policy:
// absolute paths bypass root entirely; otherwise, if root's first segment
// duplicates path's first segment, the duplicate is dropped before joining
// (guards against "<root>/<root>/..." layouts).
func resolveWritePath(root, path string, fs FileSystem) string {
	path = fs.ExpandUser(path)
	if filepath.IsAbs(path) {
		return path
	}

	rootSegs := splitPathSegments(root)
	pathSegs := splitPathSegments(path)
	if len(rootSegs) > 0 && len(pathSegs) > 0 && rootSegs[0] == pathSegs[0] {
		pathSegs = pathSegs[1:]
	}
	return filepath.Join(append(append([]string{}, rootSegs...), pathSegs...)...)
}

func splitPathSegments(p string) []string {
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == "." || clean == "" {
		return nil
	}
	var segs []string
	for _, seg := range strings.Split(clean, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// extractFileSpecs accepts a FileGenerationResult-shaped value or a bare
// sequence of FileSpec and normalizes both to []model.FileSpec.
func extractFileSpecs(value any) ([]model.FileSpec, error) {
	if files, ok := value.([]model.FileSpec); ok {
		return files, nil
	}
	if result, ok := value.(model.FileGenerationResult); ok {
		return result.Files, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}

	var result model.FileGenerationResult
	if err := json.Unmarshal(b, &result); err == nil && len(result.Files) > 0 {
		return result.Files, nil
	}

	var files []model.FileSpec
	if err := json.Unmarshal(b, &files); err == nil {
		return files, nil
	}

	return nil, fmt.Errorf("artifact must be a FileGenerationResult or a list of FileSpec, got %T", value)
}
