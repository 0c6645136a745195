package verify

import (
	"encoding/json"
	"sort"
)

// Canonicalize rewrites a decoded JSON value into a comparison-stable form:
// list elements are recursively sorted by their serialization key and typed
// string containers unify to the generic decoded shapes, so two documents
// that differ only in ordering or container type compare equal.
func Canonicalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = e
		}
		return Canonicalize(out)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = Canonicalize(e)
		}
		sort.Slice(out, func(i, j int) bool {
			return serializationKey(out[i]) < serializationKey(out[j])
		})
		return out
	case map[string][]string:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = Canonicalize(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = Canonicalize(e)
		}
		return out
	default:
		return v
	}
}

func serializationKey(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
