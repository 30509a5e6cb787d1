package layering

import (
	"fmt"
	"reflect"
)

// Depth reports how deeply mappings and lists nest inside value. Scalars have
// depth 0, a flat mapping has depth 1.
func Depth(value any) int {
	type item struct {
		value reflect.Value
		depth int
	}

	maxDepth := 0
	stack := []item{{value: reflect.ValueOf(value), depth: 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		v := indirect(top.value)
		if !v.IsValid() {
			continue
		}
		switch v.Kind() {
		case reflect.Map:
			depth := top.depth + 1
			if depth > maxDepth {
				maxDepth = depth
			}
			iter := v.MapRange()
			for iter.Next() {
				stack = append(stack, item{value: iter.Value(), depth: depth})
			}
		case reflect.Slice, reflect.Array:
			depth := top.depth + 1
			if depth > maxDepth {
				maxDepth = depth
			}
			for i := 0; i < v.Len(); i++ {
				stack = append(stack, item{value: v.Index(i), depth: depth})
			}
		}
	}
	return maxDepth
}

// Validate checks that value only holds data a snapshot can carry: mappings
// keyed by strings, lists, strings, booleans, numbers and nil, nested no
// deeper than maxDepth.
func Validate(value any, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	type item struct {
		value reflect.Value
		path  string
		depth int
	}

	stack := []item{{value: reflect.ValueOf(value), path: "", depth: 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > maxDepth {
			return fmt.Errorf("%w: %q exceeds limit %d", ErrMaxDepth, top.path, maxDepth)
		}

		v := indirect(top.value)
		if !v.IsValid() {
			continue
		}
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return fmt.Errorf("%w: %q has non-string keys", ErrUnsupportedValue, top.path)
			}
			iter := v.MapRange()
			for iter.Next() {
				stack = append(stack, item{
					value: iter.Value(),
					path:  joinPath(top.path, iter.Key().String()),
					depth: top.depth + 1,
				})
			}
		case reflect.Slice, reflect.Array:
			for i := 0; i < v.Len(); i++ {
				stack = append(stack, item{
					value: v.Index(i),
					path:  fmt.Sprintf("%s[%d]", top.path, i),
					depth: top.depth + 1,
				})
			}
		case reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
		default:
			return fmt.Errorf("%w: %q holds %s", ErrUnsupportedValue, top.path, v.Type())
		}
	}
	return nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
