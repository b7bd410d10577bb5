package ctxstore

import (
	"errors"
	"testing"
)

func TestContext_GetSetContains(t *testing.T) {
	c := New(map[string]any{"a": 1}, nil)

	if !c.Contains("a") {
		t.Fatalf("expected Contains(a) = true")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected Get(a) = (1, true), got (%v, %v)", v, ok)
	}
	if v, ok := c.Get("missing"); ok || v != nil {
		t.Fatalf("expected Get(missing) = (nil, false), got (%v, %v)", v, ok)
	}
	if v := c.GetOr("missing", "fallback"); v != "fallback" {
		t.Fatalf("expected GetOr default, got %v", v)
	}

	c.Set("b", 2)
	if !c.Contains("b") {
		t.Fatalf("expected Contains(b) after Set")
	}
}

func TestContext_DeleteNotFound(t *testing.T) {
	c := New(nil, nil)
	if err := c.Delete("nope"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	c.Set("x", 1)
	if err := c.Delete("x"); err != nil {
		t.Fatalf("unexpected error deleting present key: %v", err)
	}
	if c.Contains("x") {
		t.Fatalf("expected x to be gone after Delete")
	}
}

// TestContext_CloneIndependence checks that mutating a clone never affects
// the parent, even through nested mutable values.
func TestContext_CloneIndependence(t *testing.T) {
	c := New(map[string]any{
		"nested": map[string]any{"inner": []any{1, 2, 3}},
	}, map[string]any{"k": "v"})

	clone := c.Clone()

	// Mutate through the clone's nested structures.
	nested := clone.GetOr("nested", nil).(map[string]any)
	nested["inner"] = append(nested["inner"].([]any), 4)
	nested["new_key"] = "added"
	clone.Set("top", "added-to-clone")
	clone.Set("nested", "replaced-entirely")

	// Parent must be unaffected.
	parentNested, ok := c.Get("nested")
	if !ok {
		t.Fatalf("parent lost its nested key")
	}
	pm := parentNested.(map[string]any)
	if _, ok := pm["new_key"]; ok {
		t.Fatalf("parent's nested map was mutated via clone")
	}
	if inner := pm["inner"].([]any); len(inner) != 3 {
		t.Fatalf("parent's nested slice was mutated via clone, len=%d", len(inner))
	}
	if c.Contains("top") {
		t.Fatalf("parent gained a key set only on the clone")
	}
}

// TestContext_SnapshotStability is testable property #2.
func TestContext_SnapshotStability(t *testing.T) {
	c := New(map[string]any{"a": map[string]any{"b": 1}}, nil)
	snap := c.Snapshot()

	c.Set("a", "replaced")
	c.Set("new", "value")

	if _, ok := snap["new"]; ok {
		t.Fatalf("snapshot was affected by a later Set")
	}
	am, ok := snap["a"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot's nested value changed type, got %T", snap["a"])
	}
	if am["b"] != 1 {
		t.Fatalf("snapshot's nested value changed: %v", am)
	}
}

func TestContext_Keys(t *testing.T) {
	c := New(map[string]any{"z": 1, "a": 2, "m": 3}, nil)
	keys := c.Keys()
	want := []string{"a", "m", "z"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("expected sorted keys %v, got %v", want, keys)
		}
	}
}

func TestContext_ConfigViewIsReadOnlyCopy(t *testing.T) {
	c := New(nil, map[string]any{"region": "us-east-1"})
	view := c.ConfigView()
	view["region"] = "eu-west-1"
	view["injected"] = true

	fresh := c.ConfigView()
	if fresh["region"] != "us-east-1" {
		t.Fatalf("mutating a ConfigView leaked back into the Context")
	}
	if _, ok := fresh["injected"]; ok {
		t.Fatalf("mutating a ConfigView leaked back into the Context")
	}
}
