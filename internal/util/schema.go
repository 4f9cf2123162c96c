package util

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// FieldError reports the first field of a decoded object that does not
// satisfy its schema.
type FieldError struct {
	Field  string `json:"field"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// SchemaFor derives a flat JSON object schema from the exported fields of a
// struct. Field names follow the json tag; the optional description and enum
// tags are copied over. Fields that are neither pointers nor omitempty are
// required. Non-struct values yield an empty object schema.
func SchemaFor(v any) map[string]any {
	props := map[string]any{}
	schema := map[string]any{"type": "object", "properties": props}

	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for f := range fieldsOf(t) {
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}

		prop := map[string]any{"type": jsonKind(f.Type)}
		if d := f.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		if e := f.Tag.Get("enum"); e != "" {
			prop["enum"] = strings.Split(e, ",")
		}
		props[name] = prop

		optional := f.Type.Kind() == reflect.Pointer || slices.Contains(strings.Split(opts, ","), "omitempty")
		if !optional {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func fieldsOf(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

// Restrict limits a property to a closed set of string values. It reports
// whether the property exists.
func Restrict(schema map[string]any, field string, values []string) bool {
	props, _ := schema["properties"].(map[string]any)
	prop, ok := props[field].(map[string]any)
	if ok {
		prop["enum"] = slices.Clone(values)
	}
	return ok
}

// Validate checks a decoded JSON object against a schema produced by
// SchemaFor or decoded from JSON: required fields first, then primitive types
// and string enums. Unknown fields are ignored.
func Validate(obj map[string]any, schema map[string]any) error {
	for _, name := range strings1(schema["required"]) {
		if _, ok := obj[name]; !ok {
			return &FieldError{Field: name, Reason: "required field is missing"}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for name, value := range obj {
		prop, ok := props[name].(map[string]any)
		if !ok || value == nil {
			continue
		}
		kind, _ := prop["type"].(string)
		if !matchesKind(value, kind) {
			return &FieldError{Field: name, Value: value, Reason: fmt.Sprintf("expected %s, got %T", kind, value)}
		}
		enum := strings1(prop["enum"])
		if s, _ := value.(string); len(enum) > 0 && !slices.Contains(enum, s) {
			return &FieldError{Field: name, Value: value, Reason: "must be one of " + strings.Join(enum, ", ")}
		}
	}
	return nil
}

// strings1 reads a string list stored either as []string or as decoded []any.
func strings1(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonKind(t.Elem())
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return "string"
}

func matchesKind(v any, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer":
		f, ok := v.(float64)
		return ok && f == float64(int64(f))
	case "number":
		_, ok := v.(float64)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}
