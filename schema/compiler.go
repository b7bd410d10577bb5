// Package schema compiles a step's declared output shape into a validator
// and produces a typed carrier value once a payload is checked against it.
// Four shapes are recognized: the bare strings "text" and "files", a JSON
// Schema object (validated with santhosh-tekuri/jsonschema), and a
// single-element list whose one entry is itself a schema, describing a
// homogeneous array.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/caseflow/recipe-executor/model"
)

type Kind string

const (
	KindText   Kind = "text"
	KindFiles  Kind = "files"
	KindObject Kind = "object"
	KindList   Kind = "list"
)

// SchemaError reports a malformed schema declaration or a payload that
// failed validation against a compiled schema.
type SchemaError struct {
	Raw   any
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %v", e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// Compiled is the result of compiling a raw schema declaration. It is safe
// for concurrent Validate calls once built.
type Compiled struct {
	kind   Kind
	object *jsonschema.Schema
	item   *Compiled
}

func (c *Compiled) Kind() Kind { return c.kind }

var resourceSeq int64

// Compile inspects raw (already JSON-decoded: string, map[string]any, or
// []any) and produces a Compiled validator plus typed-carrier factory.
func Compile(raw any) (*Compiled, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "text":
			return &Compiled{kind: KindText}, nil
		case "files":
			return &Compiled{kind: KindFiles}, nil
		default:
			return nil, &SchemaError{Raw: raw, Cause: fmt.Errorf("unrecognized schema keyword %q", v)}
		}

	case []any:
		if len(v) != 1 {
			return nil, &SchemaError{Raw: raw, Cause: fmt.Errorf("list schema must have exactly one item schema, got %d", len(v))}
		}
		item, err := Compile(v[0])
		if err != nil {
			return nil, err
		}
		return &Compiled{kind: KindList, item: item}, nil

	case map[string]any:
		sch, err := compileObjectSchema(v)
		if err != nil {
			return nil, &SchemaError{Raw: raw, Cause: err}
		}
		return &Compiled{kind: KindObject, object: sch}, nil

	default:
		return nil, &SchemaError{Raw: raw, Cause: fmt.Errorf("schema declaration must be a string, object, or one-item list, got %T", raw)}
	}
}

func compileObjectSchema(def map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}

	id := fmt.Sprintf("mem://recipe-executor/schema-%d.json", atomic.AddInt64(&resourceSeq, 1))
	c := jsonschema.NewCompiler()
	if err := c.AddResource(id, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// Validate checks value against the compiled schema and returns the typed
// carrier described in the step's output contract.
func (c *Compiled) Validate(value any) (any, error) {
	switch c.kind {
	case KindText:
		s, ok := value.(string)
		if !ok {
			return nil, &SchemaError{Cause: fmt.Errorf("expected text output, got %T", value)}
		}
		return s, nil

	case KindFiles:
		files, err := asFileSpecs(value)
		if err != nil {
			return nil, &SchemaError{Cause: err}
		}
		return files, nil

	case KindObject:
		native, err := toJSONNative(value)
		if err != nil {
			return nil, &SchemaError{Cause: err}
		}
		if err := c.object.Validate(native); err != nil {
			return nil, &SchemaError{Cause: err}
		}
		if m, ok := native.(map[string]any); ok {
			return m, nil
		}
		return native, nil

	case KindList:
		list, ok := value.([]any)
		if !ok {
			return nil, &SchemaError{Cause: fmt.Errorf("expected list output, got %T", value)}
		}
		out := make([]any, len(list))
		for i, item := range list {
			v, err := c.item.Validate(item)
			if err != nil {
				return nil, &SchemaError{Cause: fmt.Errorf("item %d: %w", i, err)}
			}
			out[i] = v
		}
		return out, nil

	default:
		return nil, &SchemaError{Cause: fmt.Errorf("uncompiled schema")}
	}
}

// asFileSpecs accepts the "files" output shape: either the FileGenerationResult
// wrapper { files: [...], commentary? } the spec describes, or a bare list of
// FileSpec, and normalizes both to []model.FileSpec.
func asFileSpecs(value any) ([]model.FileSpec, error) {
	if files, ok := value.([]model.FileSpec); ok {
		return files, nil
	}
	if result, ok := value.(model.FileGenerationResult); ok {
		return result.Files, nil
	}
	if m, ok := value.(map[string]any); ok {
		filesRaw, ok := m["files"]
		if !ok {
			return nil, fmt.Errorf("expected files output with a %q field, got object without it", "files")
		}
		return decodeFileSpecList(filesRaw)
	}
	return decodeFileSpecList(value)
}

func decodeFileSpecList(value any) ([]model.FileSpec, error) {
	if _, ok := value.([]any); !ok {
		return nil, fmt.Errorf("expected files output, got %T", value)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal files output: %w", err)
	}
	var files []model.FileSpec
	if err := json.Unmarshal(b, &files); err != nil {
		return nil, fmt.Errorf("decode files output: %w", err)
	}
	return files, nil
}

// toJSONNative round-trips value through JSON so that jsonschema always
// sees the plain map[string]any/[]any/float64 shapes it expects, regardless
// of the concrete Go types already present in a step's output.
func toJSONNative(value any) (any, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var native any
	if err := json.Unmarshal(b, &native); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return native, nil
}
