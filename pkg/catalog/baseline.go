package catalog

import (
	"fmt"

	"github.com/goliatone/go-decisions"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Baseline is a loaded baseline mapping and the order its KPIs were
// written in.
type Baseline struct {
	Data     decisions.Mapping
	KPIOrder []string
}

// LoadBaseline reads a YAML or JSON baseline from path on fsys.
func LoadBaseline(fsys afero.Fs, path string) (Baseline, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return Baseline{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseBaseline(raw)
}

// ParseBaseline is LoadBaseline for an in-memory document.
func ParseBaseline(raw []byte) (Baseline, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return Baseline{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return Baseline{}, fmt.Errorf("%w: baseline must be a mapping", ErrInvalidDocument)
	}
	doc := root.Content[0]

	var data decisions.Mapping
	if err := doc.Decode(&data); err != nil {
		return Baseline{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return Baseline{Data: data, KPIOrder: mappingKeys(valueOf(doc, "kpis"))}, nil
}

func valueOf(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func mappingKeys(node *yaml.Node) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}
