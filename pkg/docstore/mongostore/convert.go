package mongostore

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/scenarios/pkg/document"
)

// toBSON converts doc to a bson.D with keys in sorted order at every level.
// MongoDB compares embedded documents field by field in stored order, so
// documents and equality filters built from the same map must agree on it.
func toBSON(doc document.Document) bson.D {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(bson.D, 0, len(keys))
	for _, k := range keys {
		out = append(out, bson.E{Key: k, Value: toBSONValue(doc[k])})
	}
	return out
}

func toBSONValue(v any) any {
	switch val := v.(type) {
	case document.Document:
		return toBSON(val)
	case map[string]any:
		return toBSON(document.Document(val))
	case []any:
		out := make(bson.A, len(val))
		for i, elem := range val {
			out[i] = toBSONValue(elem)
		}
		return out
	default:
		return val
	}
}

func fromBSONMap(m map[string]any) document.Document {
	out := make(document.Document, len(m))
	for k, v := range m {
		out[k] = fromBSONValue(v)
	}
	return out
}

// fromBSONValue maps driver container types onto plain document values.
// Scalars such as ObjectID and DateTime pass through unchanged.
func fromBSONValue(v any) any {
	switch val := v.(type) {
	case primitive.M:
		return map[string]any(fromBSONMap(val))
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = fromBSONValue(e.Value)
		}
		return m
	case primitive.A:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = fromBSONValue(elem)
		}
		return out
	case int32:
		return int64(val)
	default:
		return val
	}
}
