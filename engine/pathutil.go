package engine

import "strings"

// resolveDottedPath walks a dot-separated path through nested maps,
// falling back to treating the whole path as a single key first (so keys
// that themselves contain dots still resolve).
func resolveDottedPath(data map[string]any, path string) (any, bool) {
	if v, ok := data[path]; ok {
		return v, true
	}

	var current any = data
	for _, seg := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}
