// Package document defines the document value used across scenario building
// and the document stores.
//
// A Document is a plain map of field name to value. Values are the shapes a
// decoder produces for JSON-like data: nil, bool, string, int64, float64,
// []any and map[string]any (or Document). Store backends may additionally
// return their own identifier types (for example a MongoDB ObjectID) which
// are treated as opaque scalars.
package document

import (
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Document is a single stored or to-be-stored record.
type Document map[string]any

// Merge computes base ∪ override where override wins on every field present
// in both. The base is copied first and override entries are written on top,
// so neither input is modified. A nil base behaves like an empty document.
//
// The copy of base is shallow at the top level only: nested values from base
// are deep-copied so that later mutation of the merged document cannot reach
// back into a shared template.
func Merge(base, override Document) Document {
	merged := make(Document, len(base)+len(override))
	for k, v := range base {
		merged[k] = CloneValue(v)
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// Keys returns the field names of d in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CloneValue deep-copies maps and slices. Scalars are returned unchanged.
func CloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]any:
		return map[string]any(Document(val).Clone())
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = CloneValue(elem)
		}
		return out
	default:
		return val
	}
}

// As converts v to a Document when it has a document shape.
// It reports false for scalars, lists and nil.
func As(v any) (Document, bool) {
	switch val := v.(type) {
	case Document:
		return val, true
	case map[string]any:
		return Document(val), true
	default:
		return nil, false
	}
}

// Normalize converts integer and float variants to int64 and float64, any
// slice or array to []any and any string-keyed map to map[string]any,
// recursively. Unsigned values above math.MaxInt64 become float64. Decoders
// disagree on numeric widths (yaml.v3 yields int, bson yields int32) and
// comparisons are done on normalized values.
func Normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return normalizeUint(val)
	case float32:
		return float64(val)
	case Document:
		return map[string]any(NormalizeDocument(val))
	case map[string]any:
		return map[string]any(NormalizeDocument(val))
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = Normalize(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Normalize(elem)
		}
		return out
	default:
		return normalizeKind(val)
	}
}

// normalizeUint keeps values above math.MaxInt64 as float64 so they do not
// wrap to negative int64s.
func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// normalizeKind handles typed containers ([]string, map[string]int), named
// scalar types and pointers by their reflect kind. Values implementing
// fmt.Stringer, such as store identifiers, are returned unchanged, as is
// anything without a document shape (structs, channels, funcs).
func normalizeKind(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.(fmt.Stringer); ok {
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return normalizeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Normalize(iter.Value().Interface())
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	default:
		return v
	}
}

// NormalizeDocument applies Normalize to every field of d.
func NormalizeDocument(d map[string]any) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = Normalize(v)
	}
	return out
}
