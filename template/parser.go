package template

import (
	"fmt"
	"strings"
)

// parse builds a node tree from a flat token stream, consuming matching
// {% if %}/{% elsif %}/{% else %}/{% endif %} and {% for %}/{% endfor %}
// pairs and skipping {% comment %}/{% endcomment %} blocks. Any other
// {% tag %} is rejected — the renderer is a closed
// template dialect, not a general scripting surface.
func parse(toks []token) ([]node, error) {
	nodes, rest, err := parseSequence(toks, "")
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected trailing tag %q", rest[0].text)
	}
	return nodes, nil
}

// parseSequence consumes tokens until it sees a tag in stopWords (a
// space-separated set of tag leading words) or runs out of input. It
// returns the parsed nodes and the remaining, unconsumed tokens (including
// the stop tag itself, so the caller can inspect which one matched).
func parseSequence(toks []token, stopWords string) ([]node, []token, error) {
	var out []node
	for len(toks) > 0 {
		tk := toks[0]
		switch tk.kind {
		case tokText:
			out = append(out, textNode{text: tk.text})
			toks = toks[1:]
		case tokOutput:
			out = append(out, outputNode{expr: tk.text})
			toks = toks[1:]
		case tokTag:
			word := firstWord(tk.text)
			if stopWords != "" && containsWord(stopWords, word) {
				return out, toks, nil
			}
			switch word {
			case "if":
				n, remaining, err := parseIf(tk.text, toks[1:])
				if err != nil {
					return nil, nil, err
				}
				out = append(out, n)
				toks = remaining
			case "for":
				n, remaining, err := parseFor(tk.text, toks[1:])
				if err != nil {
					return nil, nil, err
				}
				out = append(out, n)
				toks = remaining
			case "comment":
				remaining, err := skipComment(toks[1:])
				if err != nil {
					return nil, nil, err
				}
				toks = remaining
			default:
				return nil, nil, fmt.Errorf("unsupported tag %q", word)
			}
		}
	}
	return out, nil, nil
}

func parseIf(headerText string, toks []token) (node, []token, error) {
	var branches []ifBranch
	cond := strings.TrimSpace(strings.TrimPrefix(headerText, "if"))

	for {
		body, remaining, err := parseSequence(toks, "elsif else endif")
		if err != nil {
			return nil, nil, err
		}
		branches = append(branches, ifBranch{cond: cond, body: body})

		if len(remaining) == 0 {
			return nil, nil, fmt.Errorf("unterminated {%% if %%} (missing endif)")
		}
		word := firstWord(remaining[0].text)
		switch word {
		case "elsif":
			cond = strings.TrimSpace(strings.TrimPrefix(remaining[0].text, "elsif"))
			toks = remaining[1:]
			continue
		case "else":
			toks = remaining[1:]
			body, remaining2, err := parseSequence(toks, "endif")
			if err != nil {
				return nil, nil, err
			}
			branches = append(branches, ifBranch{cond: "", body: body})
			if len(remaining2) == 0 || firstWord(remaining2[0].text) != "endif" {
				return nil, nil, fmt.Errorf("unterminated {%% if %%} (missing endif)")
			}
			return ifNode{branches: branches}, remaining2[1:], nil
		case "endif":
			return ifNode{branches: branches}, remaining[1:], nil
		}
	}
}

func parseFor(headerText string, toks []token) (node, []token, error) {
	header := strings.TrimSpace(strings.TrimPrefix(headerText, "for"))
	parts := strings.Fields(header)
	if len(parts) != 3 || parts[1] != "in" {
		return nil, nil, fmt.Errorf("malformed {%% for %%} header %q, want \"for x in y\"", headerText)
	}

	body, remaining, err := parseSequence(toks, "endfor")
	if err != nil {
		return nil, nil, err
	}
	if len(remaining) == 0 || firstWord(remaining[0].text) != "endfor" {
		return nil, nil, fmt.Errorf("unterminated {%% for %%} (missing endfor)")
	}
	return forNode{varName: parts[0], coll: parts[2], body: body}, remaining[1:], nil
}

func skipComment(toks []token) ([]token, error) {
	for i, tk := range toks {
		if tk.kind == tokTag && firstWord(tk.text) == "endcomment" {
			return toks[i+1:], nil
		}
	}
	return nil, fmt.Errorf("unterminated {%% comment %%} (missing endcomment)")
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func containsWord(space, word string) bool {
	for _, w := range strings.Fields(space) {
		if w == word {
			return true
		}
	}
	return false
}
