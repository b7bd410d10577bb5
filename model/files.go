// Package model holds the small set of value types shared across the
// recipe executor's components: the canonical "file-like result" that LLM
// calls produce and write_files consumes.
package model

// FileSpec is a single file to be written: a path paired with its content.
type FileSpec struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileGenerationResult is the typed carrier for the "files" output shape:
// an ordered list of files plus optional free-text commentary from the
// model.
type FileGenerationResult struct {
	Files      []FileSpec `json:"files"`
	Commentary string     `json:"commentary,omitempty"`
}
