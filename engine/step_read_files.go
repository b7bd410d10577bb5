package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/caseflow/recipe-executor/ctxstore"
	"github.com/caseflow/recipe-executor/template"
)

type readFilesStep struct {
	path      string
	artifact  string
	optional  bool
	mergeMode string
	fs        FileSystem
	logger    *slog.Logger
}

func newReadFilesStepFactory(fs FileSystem) StepFactory {
	return func(cfg map[string]any, logger *slog.Logger) (Step, error) {
		artifact, _ := cfg["artifact"].(string)
		if artifact == "" {
			return nil, &StepConfigError{Type: "read_files", Reason: "'artifact' is required"}
		}

		path, err := pathConfigToString(cfg["path"])
		if err != nil {
			return nil, &StepConfigError{Type: "read_files", Reason: err.Error()}
		}

		optional, _ := cfg["optional"].(bool)
		mergeMode, _ := cfg["merge_mode"].(string)
		if mergeMode == "" {
			mergeMode = "concat"
		}
		if mergeMode != "concat" && mergeMode != "dict" {
			return nil, &StepConfigError{Type: "read_files", Reason: fmt.Sprintf("'merge_mode' must be 'concat' or 'dict', got %q", mergeMode)}
		}

		return &readFilesStep{path: path, artifact: artifact, optional: optional, mergeMode: mergeMode, fs: fs, logger: logger}, nil
	}
}

// pathConfigToString normalizes the path config field (string or sequence
// of strings per spec) down to a single comma-joinable string so the
// existing "split a single string on commas" normalization step applies
// uniformly regardless of the declared shape.
func pathConfigToString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return "", fmt.Errorf("'path' list entries must be strings")
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("'path' is required and must be a string or list of strings")
	}
}

func (s *readFilesStep) Execute(_ context.Context, rc *ctxstore.Context) error {
	rendered, err := template.Render(s.path, rc)
	if err != nil {
		return err
	}

	var paths []string
	for _, p := range strings.Split(rendered, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return &StepConfigError{Type: "read_files", Reason: "'path' resolved to an empty list"}
	}

	contents := make([]string, len(paths))
	for i, p := range paths {
		resolved := s.fs.ExpandUser(p)
		if !s.fs.Exists(resolved) {
			if s.optional {
				contents[i] = ""
				continue
			}
			return &FileNotFoundError{Path: resolved}
		}
		text, err := s.fs.ReadText(resolved)
		if err != nil {
			return &FileNotFoundError{Path: resolved, Cause: err}
		}
		contents[i] = text
	}

	var result any
	if len(paths) == 1 {
		if s.mergeMode == "dict" {
			result = map[string]any{filepath.Base(paths[0]): contents[0]}
		} else {
			result = contents[0]
		}
	} else if s.mergeMode == "dict" {
		m := make(map[string]any, len(paths))
		for i, p := range paths {
			m[filepath.Base(p)] = contents[i]
		}
		result = m
	} else {
		blocks := make([]string, len(paths))
		for i, p := range paths {
			blocks[i] = fmt.Sprintf("%s:\n%s", filepath.Base(p), contents[i])
		}
		result = strings.Join(blocks, "\n")
	}

	rc.Set(s.artifact, result)
	s.logger.Debug("read_files completed", "paths", paths, "artifact", s.artifact)
	return nil
}
