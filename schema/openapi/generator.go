// Package openapi describes the effective view of a decision context as an
// OpenAPI document, so consumers can generate clients for it.
package openapi

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/goliatone/go-decisions"
)

// Generator builds OpenAPI documents for effective views.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator.
func NewGenerator(opts ...GeneratorOption) Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Generator{config: cfg}
}

// ForContext documents the effective view of c. KPI document order, when
// known, is published as x-kpi-order on the kpis schema.
func (g Generator) ForContext(c *decisions.Context) (map[string]any, error) {
	if c == nil {
		return nil, decisions.ErrNilContext
	}
	root, err := buildSchema(reflect.ValueOf(c.Effective()), g.config.examples)
	if err != nil {
		return nil, err
	}
	if order := c.Meta().KPIOrder; len(order) > 0 {
		if kpis, ok := properties(root)["kpis"].(map[string]any); ok {
			kpis["x-kpi-order"] = append([]string(nil), order...)
		}
	}
	return g.document(root), nil
}

// Generate documents an arbitrary effective mapping.
func (g Generator) Generate(effective decisions.Mapping) (map[string]any, error) {
	root, err := buildSchema(reflect.ValueOf(effective), g.config.examples)
	if err != nil {
		return nil, err
	}
	return g.document(root), nil
}

func (g Generator) document(root map[string]any) map[string]any {
	cfg := g.config
	info := map[string]any{
		"title":   cfg.info.Title,
		"version": cfg.info.Version,
	}
	if cfg.info.Description != "" {
		info["description"] = cfg.info.Description
	}

	operation := map[string]any{
		"operationId": cfg.operationID,
		"responses": map[string]any{
			"200": map[string]any{
				"description": "OK",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"$ref": "#/components/schemas/" + cfg.component},
					},
				},
			},
		},
	}
	if cfg.summary != "" {
		operation["summary"] = cfg.summary
	}

	return map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    info,
		"paths": map[string]any{
			cfg.path: map[string]any{"get": operation},
		},
		"components": map[string]any{
			"schemas": map[string]any{cfg.component: root},
		},
	}
}

func properties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

func buildSchema(rv reflect.Value, examples bool) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{"nullable": true}, nil
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return map[string]any{"nullable": true}, nil
		}
		return buildSchema(rv.Elem(), examples)
	case reflect.Bool:
		return leaf("boolean", rv.Interface(), examples), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return leaf("integer", rv.Interface(), examples), nil
	case reflect.Float32, reflect.Float64:
		return leaf("number", rv.Interface(), examples), nil
	case reflect.String:
		return leaf("string", rv.Interface(), examples), nil
	case reflect.Map:
		return schemaForMap(rv, examples)
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv, examples)
	default:
		return nil, fmt.Errorf("openapi: value of kind %s unsupported", rv.Kind())
	}
}

func leaf(kind string, value any, examples bool) map[string]any {
	schema := map[string]any{"type": kind}
	if examples {
		schema["example"] = value
	}
	return schema
}

func schemaForMap(rv reflect.Value, examples bool) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}

	keys := rv.MapKeys()
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	sort.Strings(names)

	props := make(map[string]any, len(names))
	for _, name := range names {
		child, err := buildSchema(rv.MapIndex(reflect.ValueOf(name)), examples)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		props[name] = child
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(names) > 0 {
		schema["required"] = names
	}
	return schema, nil
}

func schemaForSlice(rv reflect.Value, examples bool) (map[string]any, error) {
	items := map[string]any{}
	if rv.Len() > 0 {
		first, err := buildSchema(rv.Index(0), examples)
		if err != nil {
			return nil, err
		}
		items = first
		// Example values describe the first item only.
		delete(items, "example")
	}
	schema := map[string]any{
		"type":  "array",
		"items": items,
	}
	if examples {
		schema["example"] = rv.Interface()
	}
	return schema, nil
}
