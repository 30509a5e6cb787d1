package decisions

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-decisions/layering"
)

// ScenarioOverridePrefix prefixes the override id a scenario is stored under.
const ScenarioOverridePrefix = "scenario_"

// Scenario is a named, pre-defined override payload.
type Scenario struct {
	ID          string  `json:"id" yaml:"id"`
	Label       string  `json:"label" yaml:"label"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Changes     Mapping `json:"changes" yaml:"changes"`
	// Scope lists the KPI or domain areas the scenario touches.
	Scope      []string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Reversible bool     `json:"reversible" yaml:"reversible"`
}

// OverrideID returns the id the scenario's override is stored under.
func (s Scenario) OverrideID() string {
	return ScenarioOverrideID(s.ID)
}

// ScenarioOverrideID returns the override id for scenarioID.
func ScenarioOverrideID(scenarioID string) string {
	return ScenarioOverridePrefix + scenarioID
}

func (s Scenario) clone() Scenario {
	s.Changes = layering.Normalize(s.Changes)
	s.Scope = slices.Clone(s.Scope)
	return s
}

// ScenarioRegistry resolves scenario ids to definitions. Implementations
// must return copies the caller may keep.
type ScenarioRegistry interface {
	Lookup(id string) (Scenario, bool)
}

// ScenarioLister is implemented by registries that can enumerate their
// scenarios.
type ScenarioLister interface {
	List() []Scenario
}

// StaticRegistry is an in-memory ScenarioRegistry preserving registration
// order.
type StaticRegistry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
	order     []string
}

// NewStaticRegistry registers scenarios in order.
func NewStaticRegistry(scenarios ...Scenario) (*StaticRegistry, error) {
	r := &StaticRegistry{scenarios: map[string]Scenario{}}
	for _, s := range scenarios {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a scenario. Ids must be non-empty and unique, and changes a
// mapping.
func (r *StaticRegistry) Register(s Scenario) error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidScenario)
	}
	if s.Changes == nil {
		return fmt.Errorf("%w: %s: changes must be a mapping", ErrInvalidScenario, s.ID)
	}
	if err := layering.Validate(s.Changes, layering.DefaultMaxDepth); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidScenario, s.ID, err)
	}
	if s.Label == "" {
		s.Label = s.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scenarios == nil {
		r.scenarios = map[string]Scenario{}
	}
	if _, exists := r.scenarios[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScenario, s.ID)
	}
	r.scenarios[s.ID] = s.clone()
	r.order = append(r.order, s.ID)
	return nil
}

// Lookup returns a copy of the scenario registered under id.
func (r *StaticRegistry) Lookup(id string) (Scenario, bool) {
	if r == nil {
		return Scenario{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[strings.TrimSpace(id)]
	if !ok {
		return Scenario{}, false
	}
	return s.clone(), true
}

// List returns copies of all scenarios in registration order.
func (r *StaticRegistry) List() []Scenario {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scenario, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.scenarios[id].clone())
	}
	return out
}

// DefaultScenarios returns the built-in scenario catalog.
func DefaultScenarios() *StaticRegistry {
	registry, err := NewStaticRegistry(
		Scenario{
			ID:          "attrition_spike",
			Label:       "Attrition Spike (+25%)",
			Description: "Simulates a sudden increase in employee attrition.",
			Changes: Mapping{
				"kpis": map[string]any{
					"attrition": map[string]any{"value_multiplier": 1.25},
				},
			},
			Scope:      []string{"attrition"},
			Reversible: true,
		},
		Scenario{
			ID:          "sentiment_drop",
			Label:       "Sentiment Drop (-15%)",
			Description: "Models a decline in overall employee sentiment.",
			Changes: Mapping{
				"kpis": map[string]any{
					"engagement": map[string]any{"value_multiplier": 0.85},
				},
			},
			Scope:      []string{"engagement"},
			Reversible: true,
		},
		Scenario{
			ID:          "manager_effectiveness_decline",
			Label:       "Manager Effectiveness Decline",
			Description: "Simulates reduced manager effectiveness across teams.",
			Changes: Mapping{
				"kpis": map[string]any{
					"manager_effectiveness": map[string]any{"value_multiplier": 0.80},
				},
			},
			Scope:      []string{"manager_effectiveness"},
			Reversible: true,
		},
	)
	if err != nil {
		panic(err)
	}
	return registry
}
