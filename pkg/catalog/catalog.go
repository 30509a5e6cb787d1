// Package catalog loads scenario catalogs and baselines from YAML or JSON
// documents.
package catalog

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-decisions"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument reports a catalog or baseline with the wrong shape.
var ErrInvalidDocument = errors.New("catalog: invalid document")

// Document is the on-disk scenario catalog.
type Document struct {
	Scenarios []Entry `yaml:"scenarios" json:"scenarios"`
}

// Entry is one scenario as written in a catalog file.
type Entry struct {
	ID          string            `yaml:"id" json:"id"`
	Label       string            `yaml:"label" json:"label"`
	Description string            `yaml:"description" json:"description"`
	Changes     decisions.Mapping `yaml:"changes" json:"changes"`
	Meta        EntryMeta         `yaml:"meta" json:"meta"`
}

// EntryMeta carries scenario scope and reversibility.
type EntryMeta struct {
	Scope      []string `yaml:"scope" json:"scope"`
	Reversible *bool    `yaml:"reversible" json:"reversible"`
}

// Scenario converts e into a decisions.Scenario. Scenarios are reversible
// unless the entry says otherwise.
func (e Entry) Scenario() decisions.Scenario {
	reversible := true
	if e.Meta.Reversible != nil {
		reversible = *e.Meta.Reversible
	}
	return decisions.Scenario{
		ID:          e.ID,
		Label:       e.Label,
		Description: e.Description,
		Changes:     e.Changes,
		Scope:       e.Meta.Scope,
		Reversible:  reversible,
	}
}

// LoadScenarios reads a catalog from path on fsys. When evaluator is not nil
// every _expr directive is compiled up front.
func LoadScenarios(fsys afero.Fs, path string, evaluator decisions.Evaluator) (*decisions.StaticRegistry, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return ParseScenarios(raw, evaluator)
}

// ParseScenarios is LoadScenarios for an in-memory document.
func ParseScenarios(raw []byte, evaluator decisions.Evaluator) (*decisions.StaticRegistry, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.Scenarios == nil {
		return nil, fmt.Errorf("%w: missing scenarios list", ErrInvalidDocument)
	}

	registry, err := decisions.NewStaticRegistry()
	if err != nil {
		return nil, err
	}
	for i, entry := range doc.Scenarios {
		if entry.Changes == nil {
			return nil, fmt.Errorf("%w: scenario %d (%s): changes must be a mapping", ErrInvalidDocument, i, entry.ID)
		}
		if evaluator != nil {
			if err := decisions.CompileDirectives(evaluator, entry.Changes); err != nil {
				return nil, fmt.Errorf("catalog: scenario %s: %w", entry.ID, err)
			}
		}
		if err := registry.Register(entry.Scenario()); err != nil {
			return nil, fmt.Errorf("catalog: scenario %d: %w", i, err)
		}
	}
	return registry, nil
}
