package engine

import (
	"fmt"
	"os"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// conditionEvaluator compiles and runs the closed expression grammar used by
// the conditional step. It is deliberately not a general scripting surface:
// on top of CEL's standard operators, functions and macros, the environment
// declares only a "context" map, the and/or/not combinators, and a handful
// of file predicates. CEL is not Turing-complete and cannot run arbitrary
// user code.
type conditionEvaluator struct {
	env *cel.Env
}

func newConditionEvaluator(fs FileSystem) (*conditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("and",
			cel.Overload("and_bool_bool", []*cel.Type{cel.BoolType, cel.BoolType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return types.Bool(lhs.(types.Bool) && rhs.(types.Bool))
				}),
			),
		),
		cel.Function("or",
			cel.Overload("or_bool_bool", []*cel.Type{cel.BoolType, cel.BoolType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return types.Bool(lhs.(types.Bool) || rhs.(types.Bool))
				}),
			),
		),
		cel.Function("not",
			cel.Overload("not_bool", []*cel.Type{cel.BoolType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Bool(!bool(v.(types.Bool)))
				}),
			),
		),
		cel.Function("file_exists",
			cel.Overload("file_exists_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					path := string(v.(types.String))
					return types.Bool(fs.Exists(fs.ExpandUser(path)))
				}),
			),
		),
		cel.Function("all_exist",
			cel.Overload("all_exist_list", []*cel.Type{cel.ListType(cel.StringType)}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					native, err := v.ConvertToNative(reflect.TypeOf([]string{}))
					if err != nil {
						return types.Bool(false)
					}
					for _, p := range native.([]string) {
						if !fs.Exists(fs.ExpandUser(p)) {
							return types.Bool(false)
						}
					}
					return types.Bool(true)
				}),
			),
		),
		cel.Function("is_newer",
			cel.Overload("is_newer_string_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(a, b ref.Val) ref.Val {
					return types.Bool(isNewer(fs, string(a.(types.String)), string(b.(types.String))))
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build condition environment: %w", err)
	}
	return &conditionEvaluator{env: env}, nil
}

func isNewer(fs FileSystem, a, b string) bool {
	infoA, errA := os.Stat(fs.ExpandUser(a))
	infoB, errB := os.Stat(fs.ExpandUser(b))
	if errA != nil || errB != nil {
		return false
	}
	return infoA.ModTime().After(infoB.ModTime())
}

// Eval compiles expr once per call and evaluates it against contextVars. A
// syntactically invalid expression, or one that fails to evaluate to a
// boolean, is reported as ConditionError by the caller.
func (e *conditionEvaluator) Eval(expr string, contextVars map[string]any) (bool, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, issues.Err()
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"context": contextVars})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition must evaluate to a boolean, got %T", out.Value())
	}
	return b, nil
}
