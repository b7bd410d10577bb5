package template

import "github.com/google/uuid"

// templateFunc is a zero/variadic-argument helper callable as ident(...) in
// an expression, distinct from the pipe-filter syntax.
type templateFunc func(args []any) (any, error)

// functions holds the small set of callables available to recipe templates.
// uuid/uuidv4 mirror the teacher's template engine: a fresh random UUID v4
// per call, useful for tagging generated artifacts and execution frames.
var functions = map[string]templateFunc{
	"uuid":   func([]any) (any, error) { return uuid.New().String(), nil },
	"uuidv4": func([]any) (any, error) { return uuid.New().String(), nil },
}
