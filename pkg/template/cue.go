package template

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
)

// newCUEDecoder compiles each file as a standalone CUE instance. Imports are
// not resolved, so a file that imports another package fails to build and is
// skipped like any other evaluation error.
func newCUEDecoder(ctx *cue.Context) decoder {
	return func(filename string, data []byte) (any, error) {
		v := ctx.CompileBytes(data, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}

		field := v.LookupPath(cue.ParsePath(FieldName))
		if !field.Exists() {
			return nil, errNoTemplate
		}
		if err := field.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(err)
		}
		return cueToGo(field)
	}
}

// cueToGo converts a concrete CUE value into document values: structs become
// map[string]any, lists []any, ints int64 and floats float64.
func cueToGo(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for iter.Next() {
			elem, err := cueToGo(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", len(out), err)
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		for iter.Next() {
			label := iter.Selector().Unquoted()
			elem, err := cueToGo(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			out[label] = elem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported CUE kind %v at %s", v.Kind(), v.Path())
	}
}

// formatCUEError keeps the first CUE error with its position, if any.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		pos := positions[0]
		return fmt.Errorf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), first.Error())
	}
	return first
}
