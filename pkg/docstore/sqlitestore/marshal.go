package sqlitestore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/scenarios/pkg/document"
)

// marshalDocument converts a document to canonical JSON TEXT for storage.
// Values outside the JSON model are stored in their string form.
func marshalDocument(doc document.Document) (string, error) {
	data, err := document.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// marshalID converts an _id value to the TEXT key used for uniqueness.
func marshalID(id any) (string, error) {
	data, err := document.MarshalCanonical(id)
	if err != nil {
		return "", fmt.Errorf("marshal _id: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses stored JSON. Numbers are decoded via json.Number
// so that integers come back as int64 without float64 precision loss.
func unmarshalDocument(data string) (document.Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	doc, _ := fromJSON(raw).(map[string]any)
	return document.Document(doc), nil
}

func fromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = fromJSON(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = fromJSON(elem)
		}
		return out
	default:
		return val
	}
}
