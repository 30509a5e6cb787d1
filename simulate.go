package decisions

import (
	"github.com/goliatone/go-decisions/layering"
)

// Simulator projects a scenario onto a copy of an effective view without
// touching the Context it came from.
type Simulator struct {
	source scenarioSource
}

// NewSimulator builds a simulator over registry. It accepts the same
// options as NewScenarioBoundary.
func NewSimulator(registry ScenarioRegistry, opts ...ScenarioOption) *Simulator {
	return &Simulator{source: newScenarioSource(registry, opts)}
}

// Simulate returns c's effective view with scenarioID merged on top.
// Directives are computed against that view. Each call returns a fresh
// mapping; c is never mutated. Unknown ids return an unmodified copy unless
// the simulator is strict.
func (s *Simulator) Simulate(c *Context, scenarioID string) (Mapping, error) {
	if c == nil {
		return nil, ErrNilContext
	}
	return s.simulate(c.Effective(), scenarioID, c.cfg.maxDepth)
}

// SimulateMapping is Simulate for callers holding a bare effective view.
func (s *Simulator) SimulateMapping(effective Mapping, scenarioID string) (Mapping, error) {
	return s.simulate(effective, scenarioID, s.source.cfg.maxDepth)
}

func (s *Simulator) simulate(effective Mapping, scenarioID string, maxDepth int) (Mapping, error) {
	if s == nil {
		return nil, ErrRegistryRequired
	}
	scenario, found, err := s.source.lookup(scenarioID)
	if err != nil {
		return nil, err
	}
	projected := layering.Clone(effective)
	if projected == nil {
		projected = Mapping{}
	}
	if !found {
		return projected, nil
	}

	changes, err := s.source.materialize(scenario, projected)
	if err != nil {
		return nil, err
	}
	if err := layering.Merge(projected, changes, maxDepth); err != nil {
		return nil, err
	}
	return projected, nil
}
