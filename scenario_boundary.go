package decisions

import (
	"github.com/goliatone/go-decisions/pkg/activity"
)

// ScenarioBoundary is the only path through which scenarios reach a
// Context. It keeps at most one scenario override applied: applying a new
// scenario removes the previous one under the same lock.
type ScenarioBoundary struct {
	source scenarioSource
}

// NewScenarioBoundary builds a boundary over registry.
func NewScenarioBoundary(registry ScenarioRegistry, opts ...ScenarioOption) *ScenarioBoundary {
	return &ScenarioBoundary{source: newScenarioSource(registry, opts)}
}

// Apply swaps the active scenario of c for scenarioID. Directives are
// computed against the effective view without any scenario applied. An
// unknown id clears the active scenario unless the boundary is strict, in
// which case ErrScenarioNotFound is returned and c is unchanged. An empty
// actor records DefaultScenarioActor.
func (b *ScenarioBoundary) Apply(c *Context, scenarioID, actor string) error {
	if c == nil {
		return ErrNilContext
	}
	if b == nil {
		return ErrRegistryRequired
	}
	scenario, found, err := b.source.lookup(scenarioID)
	if err != nil {
		return err
	}
	actor = defaultString(actor, DefaultScenarioActor)

	c.mu.Lock()
	events, err := b.applyLocked(c, scenario, found, actor)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emitAll(events)
	return nil
}

func (b *ScenarioBoundary) applyLocked(c *Context, scenario Scenario, found bool, actor string) ([]activity.Event, error) {
	plan, current, base, err := c.planScenarioClearLocked(actor)
	if err != nil {
		return nil, err
	}
	if !found {
		return c.commitLocked(actor, plan...), nil
	}

	changes, err := b.source.materialize(scenario, base)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		b.source.cfg.logger.Info("scenario produced no changes",
			"scenario", scenario.ID, "context_id", c.meta.ContextID)
		return c.commitLocked(actor, plan...), nil
	}

	appended, err := c.planAppendLocked(current, OverrideInput{
		ID:      scenario.OverrideID(),
		Type:    OverrideScenario,
		Label:   scenario.Label,
		Changes: changes,
	}, actor)
	if err != nil {
		return nil, err
	}
	return c.commitLocked(actor, append(plan, appended)...), nil
}

// Clear removes the active scenario from c. It is a no-op when none is
// applied.
func (b *ScenarioBoundary) Clear(c *Context, actor string) error {
	if c == nil {
		return ErrNilContext
	}
	actor = defaultString(actor, DefaultScenarioActor)

	c.mu.Lock()
	plan, _, _, err := c.planScenarioClearLocked(actor)
	var events []activity.Event
	if err == nil {
		events = c.commitLocked(actor, plan...)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emitAll(events)
	return nil
}

// planScenarioClearLocked plans the removal of every scenario override. It
// returns the plan, the override list after it and the effective view after
// it.
func (c *Context) planScenarioClearLocked(actor string) ([]mutation, []Override, Mapping, error) {
	current := c.overrides
	base := c.effective
	var plan []mutation
	for _, o := range c.overrides {
		if o.Type != OverrideScenario {
			continue
		}
		m, _, err := c.planRemovalLocked(current, o.ID, actor)
		if err != nil {
			return nil, nil, nil, err
		}
		plan = append(plan, m)
		current = m.overrides
		base = m.effective
	}
	return plan, current, base, nil
}
