package layering

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// DefaultMaxDepth bounds the mapping nesting accepted by Merge and Validate.
const DefaultMaxDepth = 32

var (
	// ErrMaxDepth indicates a value nests deeper than the configured limit.
	ErrMaxDepth = errors.New("layering: maximum nesting depth exceeded")
	// ErrUnsupportedValue indicates a value that cannot live in a mapping
	// snapshot (channels, functions, non-string map keys, ...).
	ErrUnsupportedValue = errors.New("layering: unsupported value")
)

// Merge applies patch onto dst in place, in a single pass. Keys holding a
// mapping on both sides are merged recursively; any other patch value
// (scalars, lists, mappings replacing scalars) replaces the destination value
// outright. Patch values are deep copied so dst never aliases patch, and typed
// string-keyed mappings on either side are rewritten as map[string]any.
//
// The walk uses an explicit stack so pathological nesting cannot exhaust the
// goroutine stack; descending past maxDepth returns ErrMaxDepth.
func Merge(dst, patch map[string]any, maxDepth int) error {
	if dst == nil {
		return fmt.Errorf("layering: destination mapping is nil")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type frame struct {
		dst   map[string]any
		patch map[string]any
		depth int
	}

	stack := []frame{{dst: dst, patch: patch, depth: 1}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > maxDepth {
			return fmt.Errorf("%w: limit %d", ErrMaxDepth, maxDepth)
		}
		for key, incoming := range top.patch {
			incomingMap, incomingIsMap := AsMapping(incoming)
			existingMap, existingIsMap := top.dst[key].(map[string]any)
			if !existingIsMap {
				if existingMap, existingIsMap = AsMapping(top.dst[key]); existingIsMap {
					top.dst[key] = existingMap
				}
			}
			if incomingIsMap && existingIsMap && existingMap != nil {
				stack = append(stack, frame{dst: existingMap, patch: incomingMap, depth: top.depth + 1})
				continue
			}
			top.dst[key] = normalizeValue(incoming)
		}
	}
	return nil
}

// Resolve clones base and merges every patch onto the copy in order, so later
// patches win on conflicting leaves. base and patches are left untouched.
func Resolve(base map[string]any, maxDepth int, patches ...map[string]any) (map[string]any, error) {
	out := Normalize(base)
	if out == nil {
		out = map[string]any{}
	}
	for i, patch := range patches {
		if err := Merge(out, patch, maxDepth); err != nil {
			return nil, fmt.Errorf("layering: patch %d: %w", i, err)
		}
	}
	return out, nil
}

// Keys returns the mapping keys sorted alphabetically.
func Keys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of value. Maps, slices, arrays and pointers are
// duplicated recursively; unexported struct fields are left zeroed.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	out, ok := cloned.Interface().(T)
	if !ok {
		return value
	}
	return out
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item := cloneValue(iter.Value())
			if !item.IsValid() {
				item = reflect.Zero(v.Type().Elem())
			}
			clone.SetMapIndex(iter.Key(), item)
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}

// Normalize deep copies m, rewriting every nested mapping keyed by strings
// (map[string]float64, map[K]any with a string kind K, ...) into
// map[string]any so Merge can descend into it.
func Normalize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := normalizeValue(m).(map[string]any)
	return out
}

// AsMapping reports whether value is a mapping keyed by strings and returns it
// as map[string]any. Typed mappings are copied; map[string]any is returned as is.
func AsMapping(value any) (map[string]any, bool) {
	if m, ok := value.(map[string]any); ok {
		return m, m != nil
	}
	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String || v.IsNil() {
		return nil, false
	}
	out, ok := normalizeValue(value).(map[string]any)
	return out, ok
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeValue(item)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	}

	v := indirect(reflect.ValueOf(value))
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		if v.IsNil() {
			return map[string]any(nil)
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalizeValue(iter.Value().Interface())
		}
		return out
	}
	return Clone(value)
}
