// Package adapters provides the concrete capability implementations the
// core's engine.FileSystem, engine.MCPClient, and related interfaces are
// defined against: real disk I/O and a real MCP client transport. These are
// the "external collaborators" spec.md §1 explicitly keeps out of the core —
// peripheral glue wired together by cmd/recipe-executor.
package adapters

import (
	"os"
	"path/filepath"
	"strings"
)

// OSFileSystem implements engine.FileSystem over the local filesystem.
type OSFileSystem struct{}

// NewOSFileSystem returns a FileSystem backed by the real filesystem.
func NewOSFileSystem() *OSFileSystem { return &OSFileSystem{} }

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) ReadText(path string) (string, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: recipe-controlled path, not attacker input
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (OSFileSystem) WriteText(path string, content string) error {
	return os.WriteFile(path, []byte(content), 0o644) //nolint:gosec // G306: generated artifacts are not secrets
}

func (OSFileSystem) MkdirAll(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// ExpandUser resolves a single leading "~" to the current user's home
// directory, matching the original implementation's one-shot expansion.
func (OSFileSystem) ExpandUser(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
