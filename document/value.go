package document

import (
	"encoding/json"
	"reflect"
)

// Kind classifies a document value.
type Kind int

const (
	// Null is a nil or absent value.
	Null Kind = iota
	// Scalar covers strings, numbers and booleans.
	Scalar
	// Sequence is an ordered list of values.
	Sequence
	// Mapping is a string keyed map of values.
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// KindOf reports the document kind of v. Typed Go collections such as
// []string or map[string]int are recognised through reflection.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case map[string]any:
		return Mapping
	case []any:
		return Sequence
	case string, bool, float64, json.Number:
		return Scalar
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return Mapping
		}
		return Scalar
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar
		}
		return Sequence
	default:
		return Scalar
	}
}

// IsCollection reports whether v is a Sequence or a Mapping.
func IsCollection(v any) bool {
	kind := KindOf(v)
	return kind == Sequence || kind == Mapping
}

// Normalize converts v into the canonical document representation: typed
// slices become []any, string keyed maps become map[string]any and Go
// numeric kinds become float64. json.Number is kept as is so integers beyond
// float64 precision stay exact. The input is never mutated.
func Normalize(v any) any {
	return normalizeValue(reflect.ValueOf(v))
}

func normalizeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	if number, ok := v.Interface().(json.Number); ok {
		return number
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return normalizeValue(v.Elem())
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		if v.IsNil() {
			return map[string]any{}
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalizeValue(iter.Value())
		}
		return out
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		if v.IsNil() {
			return []any{}
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = normalizeValue(v.Index(i))
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	default:
		return v.Interface()
	}
}

// Clone returns a deep copy of a normalised document value so callers can
// hold on to snapshots without sharing nested maps or slices.
func Clone(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		if typed == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = Clone(value)
		}
		return out
	case []any:
		if typed == nil {
			return []any(nil)
		}
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = Clone(value)
		}
		return out
	default:
		return v
	}
}

// CloneMap deep copies a mapping document.
func CloneMap(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return Clone(doc).(map[string]any)
}

// EmptyLike returns an empty value of the same collection kind as v, or nil
// when v is not a collection.
func EmptyLike(v any) any {
	switch KindOf(v) {
	case Mapping:
		return map[string]any{}
	case Sequence:
		return []any{}
	default:
		return nil
	}
}

// AsMap returns v as a map[string]any. A nil value yields an empty map.
func AsMap(v any) (map[string]any, bool) {
	if v == nil {
		return map[string]any{}, true
	}
	if m, ok := v.(map[string]any); ok {
		if m == nil {
			return map[string]any{}, true
		}
		return m, true
	}
	if KindOf(v) != Mapping {
		return nil, false
	}
	m, ok := Normalize(v).(map[string]any)
	return m, ok
}

// AsSlice returns v as a []any. A nil value yields an empty slice.
func AsSlice(v any) ([]any, bool) {
	if v == nil {
		return []any{}, true
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	if KindOf(v) != Sequence {
		return nil, false
	}
	s, ok := Normalize(v).([]any)
	return s, ok
}

// Plain returns a copy of v with every json.Number converted to float64, for
// consumers that only understand the basic JSON kinds.
func Plain(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = Plain(value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = Plain(value)
		}
		return out
	default:
		return v
	}
}
