package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// StepDescriptor is one entry in a recipe's steps array: a type tag plus
// its type-specific config. Recipes are value objects — immutable once
// parsed.
type StepDescriptor struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Recipe is a parsed recipe document: an ordered sequence of steps.
type Recipe struct {
	Steps []StepDescriptor `json:"steps"`
}

// LoadRecipe resolves raw into a parsed Recipe. raw is one of: a path to a
// JSON file, a JSON string, or an already-parsed *Recipe/map[string]any.
func LoadRecipe(raw any) (*Recipe, error) {
	switch v := raw.(type) {
	case *Recipe:
		return v, nil
	case Recipe:
		return &v, nil
	case string:
		return loadRecipeFromString(v)
	case map[string]any:
		return decodeRecipe(v, "object")
	default:
		return nil, &RecipeParseError{Source: fmt.Sprintf("%T", raw), Cause: fmt.Errorf("unsupported recipe value type")}
	}
}

func loadRecipeFromString(s string) (*Recipe, error) {
	if rec, err := decodeRecipeJSON([]byte(s), "string"); err == nil {
		return rec, nil
	}

	data, err := os.ReadFile(s)
	if err != nil {
		return nil, &RecipeParseError{Source: s, Cause: fmt.Errorf("not valid JSON and not a readable file: %w", err)}
	}
	return decodeRecipeJSON(data, s)
}

func decodeRecipeJSON(data []byte, source string) (*Recipe, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &RecipeParseError{Source: source, Cause: err}
	}
	return decodeRecipe(raw, source)
}

func decodeRecipe(raw map[string]any, source string) (*Recipe, error) {
	stepsRaw, ok := raw["steps"]
	if !ok {
		return nil, &RecipeParseError{Source: source, Cause: fmt.Errorf("missing required field %q", "steps")}
	}
	stepsList, ok := stepsRaw.([]any)
	if !ok {
		return nil, &RecipeParseError{Source: source, Cause: fmt.Errorf("field %q must be an array", "steps")}
	}

	steps := make([]StepDescriptor, 0, len(stepsList))
	for i, raw := range stepsList {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, &RecipeParseError{Source: source, Cause: fmt.Errorf("steps[%d] must be an object", i)}
		}
		typ, ok := m["type"].(string)
		if !ok || typ == "" {
			return nil, &RecipeParseError{Source: source, Cause: fmt.Errorf("steps[%d] missing string field %q", i, "type")}
		}
		cfg, _ := m["config"].(map[string]any)
		if cfg == nil {
			cfg = map[string]any{}
		}
		steps = append(steps, StepDescriptor{Type: typ, Config: cfg})
	}

	return &Recipe{Steps: steps}, nil
}
