package openapi

import "strings"

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	path           string
	operationID    string
	summary        string
	component      string
	examples       bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Decision Context",
			Version: "1.0.0",
		},
		path:        "/contexts/{client_id}/effective",
		operationID: "getEffectiveContext",
		component:   "EffectiveContext",
		examples:    true,
	}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the optional description field for the info section.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo configures the OpenAPI info block. Empty strings retain the
// existing values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// WithOperation sets the GET path, operationId and summary the effective
// view is published under. Empty inputs retain the defaults.
func WithOperation(path, operationID, summary string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if path = strings.TrimSpace(path); path != "" {
			cfg.path = path
		}
		if operationID != "" {
			cfg.operationID = operationID
		}
		cfg.summary = summary
	}
}

// WithComponentName names the schema published under components.
func WithComponentName(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.component = name
		}
	}
}

// WithExamples toggles example values on leaf schemas (default: on).
func WithExamples(enabled bool) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.examples = enabled
	}
}
