package document

import (
	"reflect"
)

// Matches reports whether every field of filter is present in d with an equal
// value (subset match). Extra fields in d are ignored. An empty filter matches
// every document.
func Matches(d, filter Document) bool {
	for key, want := range filter {
		got, ok := d[key]
		if !ok {
			return false
		}
		if !ValuesEqual(want, got) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two values after normalization. Integers and floats
// compare numerically so that 3 (from YAML) equals 3.0 (from JSON). Nested
// documents compare by full equality, not subset.
func ValuesEqual(expected, actual any) bool {
	expected = Normalize(expected)
	actual = Normalize(actual)

	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case float64:
			return float64(exp) == act
		}
		return false
	case float64:
		switch act := actual.(type) {
		case int64:
			return exp == float64(act)
		case float64:
			return exp == act
		}
		return false
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok || len(exp) != len(act) {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !ValuesEqual(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(exp) != len(act) {
			return false
		}
		for i := range exp {
			if !ValuesEqual(exp[i], act[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}
