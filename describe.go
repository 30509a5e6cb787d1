package decisions

import (
	"github.com/goliatone/go-decisions/layering"
)

// FieldDescriptor describes a leaf path and the kind of value it holds.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Describe lists the leaf paths of m with their kinds: mapping (empty
// mappings only), list, string, number, bool or null. Paths are sorted.
func Describe(m Mapping) []FieldDescriptor {
	fields := describeValue(m, "")
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	return fields
}

func describeValue(value any, prefix string) []FieldDescriptor {
	typed, ok := value.(map[string]any)
	if !ok {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: kindName(value)}}
	}
	if len(typed) == 0 {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "mapping"}}
	}
	var fields []FieldDescriptor
	for _, key := range layering.Keys(typed) {
		fields = append(fields, describeValue(typed[key], joinPath(prefix, key))...)
	}
	return fields
}

func kindName(value any) string {
	if value == nil {
		return "null"
	}
	if _, ok := toFloat(value); ok {
		return "number"
	}
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return "unknown"
	}
}
