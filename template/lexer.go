package template

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokOutput // {{ expr }}
	tokTag    // {% tag %}
)

type token struct {
	kind tokenKind
	text string // raw text for tokText, trimmed inner content otherwise
}

// lex splits a template string into a flat sequence of text/output/tag
// tokens. It does not understand tag nesting — that is the parser's job.
func lex(src string) ([]token, error) {
	var toks []token
	rest := src

	for {
		openOut := strings.Index(rest, "{{")
		openTag := strings.Index(rest, "{%")

		if openOut < 0 && openTag < 0 {
			if rest != "" {
				toks = append(toks, token{kind: tokText, text: rest})
			}
			return toks, nil
		}

		var kind tokenKind
		var openIdx, delimLen int
		var closeDelim string
		if openTag < 0 || (openOut >= 0 && openOut < openTag) {
			kind, openIdx, delimLen, closeDelim = tokOutput, openOut, 2, "}}"
		} else {
			kind, openIdx, delimLen, closeDelim = tokTag, openTag, 2, "%}"
		}

		if openIdx > 0 {
			toks = append(toks, token{kind: tokText, text: rest[:openIdx]})
		}

		searchFrom := openIdx + delimLen
		closeIdx := strings.Index(rest[searchFrom:], closeDelim)
		if closeIdx < 0 {
			return nil, fmt.Errorf("unterminated %q starting at offset %d", rest[openIdx:openIdx+delimLen], openIdx)
		}
		closeIdx += searchFrom

		inner := strings.TrimSpace(rest[searchFrom:closeIdx])
		toks = append(toks, token{kind: kind, text: inner})

		rest = rest[closeIdx+len(closeDelim):]
	}
}
