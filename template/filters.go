package template

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type filterFunc func(v any, args []any) (any, error)

var filters = map[string]filterFunc{
	"default": filterDefault,
	"upcase":  filterUpcase,
	"downcase": filterDowncase,
	"strip":   filterStrip,
	"size":    filterSize,
	"append":  filterAppend,
	"join":    filterJoin,
	"first":   filterFirst,
	"last":    filterLast,
	"sort":    filterSort,
}

func applyFilter(name string, v any, args []any) (any, error) {
	f, ok := filters[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", name)
	}
	return f(v, args)
}

// filterDefault returns its argument when v is nil, false, or an empty
// string — the minimum filter the renderer must support.
func filterDefault(v any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("default: expects exactly one argument")
	}
	if v == nil {
		return args[0], nil
	}
	if s, ok := v.(string); ok && s == "" {
		return args[0], nil
	}
	if b, ok := v.(bool); ok && !b {
		return args[0], nil
	}
	return v, nil
}

func filterUpcase(v any, _ []any) (any, error) {
	return strings.ToUpper(toString(v)), nil
}

func filterDowncase(v any, _ []any) (any, error) {
	return strings.ToLower(toString(v)), nil
}

func filterStrip(v any, _ []any) (any, error) {
	return strings.TrimSpace(toString(v)), nil
}

func filterSize(v any, _ []any) (any, error) {
	switch t := v.(type) {
	case string:
		return len(t), nil
	case []any:
		return len(t), nil
	case map[string]any:
		return len(t), nil
	default:
		return 0, nil
	}
}

func filterAppend(v any, args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("append: expects exactly one argument")
	}
	return toString(v) + toString(args[0]), nil
}

func filterJoin(v any, args []any) (any, error) {
	sep := ","
	if len(args) == 1 {
		sep = toString(args[0])
	}
	list, ok := v.([]any)
	if !ok {
		return toString(v), nil
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = toString(item)
	}
	return strings.Join(parts, sep), nil
}

func filterFirst(v any, _ []any) (any, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func filterLast(v any, _ []any) (any, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, nil
	}
	return list[len(list)-1], nil
}

func filterSort(v any, _ []any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return v, nil
	}
	sorted := make([]any, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, j int) bool {
		return toString(sorted[i]) < toString(sorted[j])
	})
	return sorted, nil
}

// toString coerces any resolved value to its string rendering, used both
// for literal output and as filter/append argument coercion.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
