// Package template implements the recipe executor's template dialect: a
// closed Liquid-like grammar supporting {{ output }} expressions with
// dotted/bracketed variable paths and filter pipelines, plus {% if %}/
// {% elsif %}/{% else %}/{% endif %}, {% for %}/{% endfor %}, and
// {% comment %}/{% endcomment %} control tags. It deliberately implements
// no arithmetic, assignment, or custom-tag extension point: rendering a
// recipe's strings must never become a way to run arbitrary logic.
package template

import (
	"fmt"
	"strings"

	"github.com/caseflow/recipe-executor/ctxstore"
)

// Renderer renders template strings against a Context. A zero-value
// Renderer is ready to use in non-strict mode.
type Renderer struct {
	// Strict, when true, turns an unresolved variable path into a render
	// error instead of substituting an empty string.
	Strict bool
}

// Render parses and evaluates tmplStr against ctx. Missing variable paths
// render as empty strings unless r.Strict is set, in which case they
// produce an *Error.
func (r *Renderer) Render(tmplStr string, ctx *ctxstore.Context) (string, error) {
	toks, err := lex(tmplStr)
	if err != nil {
		return "", newError(fmt.Errorf("%s: %w", tmplStr, err))
	}
	nodes, err := parse(toks)
	if err != nil {
		return "", newError(fmt.Errorf("%s: %w", tmplStr, err))
	}

	root := &scope{vars: rootVars(ctx)}
	var b strings.Builder
	if err := renderNodes(&b, nodes, root, r.Strict); err != nil {
		return "", newError(err)
	}
	return b.String(), nil
}

// Render is a package-level convenience wrapping a non-strict Renderer,
// matching how most steps invoke the template layer.
func Render(tmplStr string, ctx *ctxstore.Context) (string, error) {
	r := &Renderer{}
	return r.Render(tmplStr, ctx)
}

func rootVars(ctx *ctxstore.Context) map[string]any {
	vars := ctx.Snapshot()
	vars["config"] = ctx.ConfigView()
	return vars
}

func renderNodes(b *strings.Builder, nodes []node, sc *scope, strict bool) error {
	for _, n := range nodes {
		if err := renderNode(b, n, sc, strict); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(b *strings.Builder, n node, sc *scope, strict bool) error {
	switch t := n.(type) {
	case textNode:
		b.WriteString(t.text)
		return nil

	case outputNode:
		v, missing, err := evalExpression(t.expr, sc)
		if err != nil {
			return fmt.Errorf("%q: %w", t.expr, err)
		}
		if missing && strict {
			return fmt.Errorf("%q: undefined variable", t.expr)
		}
		b.WriteString(toString(v))
		return nil

	case ifNode:
		for _, branch := range t.branches {
			if branch.cond == "" {
				return renderNodes(b, branch.body, sc, strict)
			}
			v, _, err := evalExpression(branch.cond, sc)
			if err != nil {
				return fmt.Errorf("%q: %w", branch.cond, err)
			}
			if truthy(v) {
				return renderNodes(b, branch.body, sc, strict)
			}
		}
		return nil

	case forNode:
		v, _, err := evalExpression(t.coll, sc)
		if err != nil {
			return fmt.Errorf("%q: %w", t.coll, err)
		}
		list, ok := v.([]any)
		if !ok {
			if v == nil {
				return nil
			}
			return fmt.Errorf("%q: not a list", t.coll)
		}
		for _, item := range list {
			childScope := sc.push(t.varName, item)
			if err := renderNodes(b, t.body, childScope, strict); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unhandled node type %T", n)
	}
}
