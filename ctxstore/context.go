// Package ctxstore implements the shared mutable store ("Context" in the
// recipe executor's data model) that threads artifacts and read-only
// configuration between steps within one execution frame.
//
// A Context is owned by the frame that creates it. Loop iterations and
// parallel substeps each run against a Clone, never the parent's own
// Context — see Clone. Sub-recipes started by execute_recipe share the
// caller's Context, so their writes stay visible to later steps.
package ctxstore

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"
)

// ErrKeyNotFound is returned by Delete when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// Context holds the two disjoint dictionaries a recipe execution threads
// through its steps: mutable artifacts and read-only config.
//
// Context is not safe for concurrent use. Within a single execution frame
// only one step runs at a time, and concurrent frames always get their own
// Clone, so no internal locking is needed.
type Context struct {
	artifacts map[string]any
	config    map[string]any
}

// New creates a Context seeded with the given artifacts and config maps.
// Both may be nil, in which case empty maps are used. The inputs are not
// aliased — New deep-copies them, matching Clone's independence guarantee.
func New(artifacts, config map[string]any) *Context {
	c := &Context{
		artifacts: make(map[string]any),
		config:    make(map[string]any),
	}
	for k, v := range artifacts {
		c.artifacts[k] = deepcopy.Copy(v)
	}
	for k, v := range config {
		c.config[k] = deepcopy.Copy(v)
	}
	return c
}

// Get returns the artifact stored under key, or nil and false if absent.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.artifacts[key]
	return v, ok
}

// GetOr returns the artifact stored under key, or def if absent.
func (c *Context) GetOr(key string, def any) any {
	if v, ok := c.artifacts[key]; ok {
		return v
	}
	return def
}

// Set inserts or overwrites the artifact stored under key.
func (c *Context) Set(key string, value any) {
	c.artifacts[key] = value
}

// Delete removes the artifact stored under key. It returns ErrKeyNotFound
// if key is absent.
func (c *Context) Delete(key string) error {
	if _, ok := c.artifacts[key]; !ok {
		return fmt.Errorf("context: delete %q: %w", key, ErrKeyNotFound)
	}
	delete(c.artifacts, key)
	return nil
}

// Contains reports whether key is currently set.
func (c *Context) Contains(key string) bool {
	_, ok := c.artifacts[key]
	return ok
}

// Keys returns a snapshot of the currently set artifact keys. Because it is
// a snapshot, callers may freely mutate the Context while iterating over
// the returned slice.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.artifacts))
	for k := range c.artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the artifacts map as it exists at the
// moment of the call. Subsequent mutation of the Context does not affect
// the returned map, and mutating the returned map does not affect the
// Context.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.artifacts))
	for k, v := range c.artifacts {
		out[k] = deepcopy.Copy(v)
	}
	return out
}

// ConfigView returns a deep copy of the config map. Steps treat config as
// read-only; the core itself never calls Set on the returned map back into
// the Context, so handing out a copy rather than the live map is sufficient
// to enforce that in practice without a wrapper type.
func (c *Context) ConfigView() map[string]any {
	out := make(map[string]any, len(c.config))
	for k, v := range c.config {
		out[k] = deepcopy.Copy(v)
	}
	return out
}

// Clone returns a new Context whose artifacts and config are deep copies of
// this one. No nested mutable value is aliased between parent and clone:
// mutating slices or maps reached through the clone never affects the
// parent, and vice versa. Loops and parallel fan-out call Clone once per
// child frame so concurrently executing frames never share a Context.
func (c *Context) Clone() *Context {
	clone := &Context{
		artifacts: make(map[string]any, len(c.artifacts)),
		config:    make(map[string]any, len(c.config)),
	}
	for k, v := range c.artifacts {
		clone.artifacts[k] = deepcopy.Copy(v)
	}
	for k, v := range c.config {
		clone.config[k] = deepcopy.Copy(v)
	}
	return clone
}
