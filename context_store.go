package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-decisions/layering"
	"github.com/goliatone/go-decisions/pkg/activity"
)

// Context is the single source of truth for one client session: an immutable
// baseline, an ordered list of overrides, the effective view derived from
// both, and an append-only history. All methods are safe for concurrent use.
type Context struct {
	mu        sync.Mutex
	meta      Meta
	baseline  Mapping
	overrides []Override
	effective Mapping
	history   []HistoryEntry
	cfg       config
}

// mutation is a planned change. Plans are resolved in full before any of
// them is committed so a failing step leaves the context untouched.
type mutation struct {
	action    string
	override  Override
	overrides []Override
	effective Mapping
	entry     HistoryEntry
}

// Create builds a version 1 context from a baseline. The baseline is deep
// copied, so later edits by the caller do not leak in.
func Create(clientID string, baseline Mapping, source string, opts ...Option) (*Context, error) {
	cfg := applyOptions(opts)
	if baseline == nil {
		return nil, fmt.Errorf("%w: baseline is nil", ErrInvalidBaseline)
	}
	if err := layering.Validate(baseline, cfg.maxDepth); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseline, err)
	}

	source = defaultString(source, DefaultSource)
	now := cfg.now().UTC()
	c := &Context{
		meta: Meta{
			ContextID: cfg.newID(),
			ClientID:  strings.TrimSpace(clientID),
			CreatedAt: now,
			Source:    source,
			Version:   1,
			KPIOrder:  slices.Clone(cfg.kpiOrder),
		},
		baseline:  layering.Normalize(baseline),
		overrides: []Override{},
		effective: layering.Normalize(baseline),
		history: []HistoryEntry{{
			Timestamp: now,
			Actor:     source,
			Action:    ActionCreateContext,
			Summary:   "Context initialised from baseline",
		}},
		cfg: cfg,
	}

	cfg.logger.Debug("context created",
		"client_id", c.meta.ClientID,
		"context_id", c.meta.ContextID,
		"source", source,
	)
	c.emit(activity.BuildContextCreatedEvent(c.eventInput(source, c.history[0], Override{})))
	return c, nil
}

// Effective returns the current effective view. The returned mapping is the
// context's own snapshot: treat it as read-only, or use EffectiveCopy.
func (c *Context) Effective() Mapping {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effective
}

// EffectiveCopy returns a deep copy of the effective view.
func (c *Context) EffectiveCopy() Mapping {
	return layering.Clone(c.Effective())
}

// GetEffective returns the effective view of c, or false when c is nil.
func GetEffective(c *Context) (Mapping, bool) {
	if c == nil {
		return nil, false
	}
	return c.Effective(), true
}

// Meta returns a copy of the context metadata.
func (c *Context) Meta() Meta {
	if c == nil {
		return Meta{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	meta := c.meta
	meta.KPIOrder = slices.Clone(c.meta.KPIOrder)
	return meta
}

// ID returns the context id.
func (c *Context) ID() string { return c.Meta().ContextID }

// ClientID returns the owning client id.
func (c *Context) ClientID() string { return c.Meta().ClientID }

// Version returns the current version.
func (c *Context) Version() int { return c.Meta().Version }

// Baseline returns a deep copy of the baseline.
func (c *Context) Baseline() Mapping {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return layering.Clone(c.baseline)
}

// Overrides returns copies of the applied overrides in application order.
// When types are given only overrides of those types are returned.
func (c *Context) Overrides(types ...OverrideType) []Override {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Override, 0, len(c.overrides))
	for _, o := range c.overrides {
		if len(types) > 0 && !slices.Contains(types, o.Type) {
			continue
		}
		out = append(out, cloneOverride(o))
	}
	return out
}

// History returns a copy of the audit trail.
func (c *Context) History() []HistoryEntry {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// ActiveScenario returns the scenario override, if one is applied.
func (c *Context) ActiveScenario() (Override, bool) {
	if c == nil {
		return Override{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range c.overrides {
		if o.Type == OverrideScenario {
			return cloneOverride(o), true
		}
	}
	return Override{}, false
}

// ApplyOverride validates input, appends it to the override list and
// recomputes the effective view. Version grows by one and one history entry
// is appended. On error the context is unchanged.
func (c *Context) ApplyOverride(input OverrideInput, actor string) (Override, error) {
	if c == nil {
		return Override{}, ErrNilContext
	}
	actor = defaultString(actor, DefaultActor)

	c.mu.Lock()
	m, err := c.planAppendLocked(c.overrides, input, actor)
	var events []activity.Event
	if err == nil {
		events = c.commitLocked(actor, m)
	}
	c.mu.Unlock()
	if err != nil {
		return Override{}, err
	}

	c.emitAll(events)
	return cloneOverride(m.override), nil
}

// RemoveOverride removes the override with id and recomputes the effective
// view. An unknown id returns ErrOverrideNotFound and changes nothing.
func (c *Context) RemoveOverride(id, actor string) error {
	if c == nil {
		return ErrNilContext
	}
	actor = defaultString(actor, DefaultActor)
	id = strings.TrimSpace(id)

	c.mu.Lock()
	m, found, err := c.planRemovalLocked(c.overrides, id, actor)
	var events []activity.Event
	if err == nil && found {
		events = c.commitLocked(actor, m)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrOverrideNotFound, id)
	}

	c.emitAll(events)
	return nil
}

// Clone returns an independent deep copy of the context sharing the same
// options.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Context{
		meta:      c.metaCopyLocked(),
		baseline:  layering.Clone(c.baseline),
		overrides: cloneOverrides(c.overrides),
		effective: layering.Clone(c.effective),
		history:   slices.Clone(c.history),
		cfg:       c.cfg,
	}
}

// Record returns a deep copy of the context in serialisable form.
func (c *Context) Record() ContextRecord {
	if c == nil {
		return ContextRecord{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	history := slices.Clone(c.history)
	if history == nil {
		history = []HistoryEntry{}
	}
	return ContextRecord{
		Meta:      c.metaCopyLocked(),
		Baseline:  layering.Clone(c.baseline),
		Overrides: cloneOverrides(c.overrides),
		Effective: layering.Clone(c.effective),
		History:   history,
	}
}

// FromRecord rebuilds a context from its serialised form. The stored
// effective view is ignored and recomputed from baseline and overrides.
func FromRecord(record ContextRecord, opts ...Option) (*Context, error) {
	cfg := applyOptions(opts)
	if record.Baseline == nil {
		return nil, fmt.Errorf("%w: record has no baseline", ErrInvalidBaseline)
	}
	if err := layering.Validate(record.Baseline, cfg.maxDepth); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseline, err)
	}
	if record.Meta.Version < 1 {
		return nil, fmt.Errorf("decisions: record version %d is invalid", record.Meta.Version)
	}

	seen := make(map[string]struct{}, len(record.Overrides))
	scenarios := 0
	for i, o := range record.Overrides {
		if o.ID == "" {
			return nil, &ValidationError{Field: "id", Reason: fmt.Sprintf("override %d has no id", i)}
		}
		if _, ok := seen[o.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateOverrideID, o.ID)
		}
		seen[o.ID] = struct{}{}
		if !o.Type.Valid() {
			return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown override type %q", o.Type)}
		}
		if o.Type == OverrideScenario {
			scenarios++
		}
	}
	if scenarios > 1 {
		return nil, fmt.Errorf("decisions: record holds %d scenario overrides", scenarios)
	}

	overrides := cloneOverrides(record.Overrides)
	effective, err := resolveEffective(record.Baseline, overrides, cfg.maxDepth)
	if err != nil {
		return nil, err
	}

	meta := record.Meta
	meta.KPIOrder = slices.Clone(record.Meta.KPIOrder)
	if len(meta.KPIOrder) == 0 {
		meta.KPIOrder = slices.Clone(cfg.kpiOrder)
	}
	history := slices.Clone(record.History)
	if history == nil {
		history = []HistoryEntry{}
	}
	return &Context{
		meta:      meta,
		baseline:  layering.Normalize(record.Baseline),
		overrides: overrides,
		effective: effective,
		history:   history,
		cfg:       cfg,
	}, nil
}

// MarshalJSON encodes the context as a ContextRecord.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Record())
}

// UnmarshalJSON decodes a ContextRecord into c using default options.
func (c *Context) UnmarshalJSON(data []byte) error {
	var record ContextRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	restored, err := FromRecord(record)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = restored.meta
	c.baseline = restored.baseline
	c.overrides = restored.overrides
	c.effective = restored.effective
	c.history = restored.history
	c.cfg = restored.cfg
	return nil
}

func (c *Context) planAppendLocked(current []Override, input OverrideInput, actor string) (mutation, error) {
	override, err := c.prepareOverrideLocked(current, input, actor)
	if err != nil {
		return mutation{}, err
	}
	next := make([]Override, len(current), len(current)+1)
	copy(next, current)
	next = append(next, override)

	effective, err := resolveEffective(c.baseline, next, c.cfg.maxDepth)
	if err != nil {
		return mutation{}, err
	}
	return mutation{
		action:    ActionApplyOverride,
		override:  override,
		overrides: next,
		effective: effective,
		entry: HistoryEntry{
			Timestamp: override.Timestamp,
			Actor:     actor,
			Action:    ActionApplyOverride,
			Summary:   "Applied override: " + override.Label,
		},
	}, nil
}

func (c *Context) planRemovalLocked(current []Override, id, actor string) (mutation, bool, error) {
	idx := slices.IndexFunc(current, func(o Override) bool { return o.ID == id })
	if idx < 0 {
		return mutation{}, false, nil
	}
	next := make([]Override, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)

	effective, err := resolveEffective(c.baseline, next, c.cfg.maxDepth)
	if err != nil {
		return mutation{}, true, err
	}
	return mutation{
		action:    ActionRemoveOverride,
		override:  current[idx],
		overrides: next,
		effective: effective,
		entry: HistoryEntry{
			Timestamp: c.cfg.now().UTC(),
			Actor:     actor,
			Action:    ActionRemoveOverride,
			Summary:   "Removed override: " + id,
		},
	}, true, nil
}

func (c *Context) prepareOverrideLocked(current []Override, input OverrideInput, actor string) (Override, error) {
	if input.Changes == nil {
		return Override{}, &ValidationError{Field: "changes", Reason: "must be a mapping"}
	}
	if input.Type == "" {
		return Override{}, &ValidationError{Field: "type", Reason: "is required"}
	}
	if !input.Type.Valid() {
		return Override{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown override type %q", input.Type)}
	}
	if err := layering.Validate(input.Changes, c.cfg.maxDepth); err != nil {
		return Override{}, &ValidationError{Field: "changes", Reason: "is not a well-formed mapping", Err: err}
	}
	for key := range input.Changes {
		if _, ok := c.baseline[key]; !ok {
			return Override{}, fmt.Errorf("%w: %q", ErrUnknownTopLevelKey, key)
		}
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = c.cfg.newID()
	}
	if slices.ContainsFunc(current, func(o Override) bool { return o.ID == id }) {
		return Override{}, fmt.Errorf("%w: %q", ErrDuplicateOverrideID, id)
	}
	if input.Type == OverrideScenario && slices.ContainsFunc(current, func(o Override) bool { return o.Type == OverrideScenario }) {
		return Override{}, &ValidationError{Field: "type", Reason: "a scenario override is already applied"}
	}

	appliesTo := cleanNames(input.AppliesTo)
	if len(appliesTo) == 0 {
		appliesTo = layering.Keys(input.Changes)
	}

	return Override{
		ID:        id,
		Type:      input.Type,
		Label:     defaultString(input.Label, id),
		AppliesTo: appliesTo,
		Changes:   layering.Normalize(input.Changes),
		Actor:     actor,
		Timestamp: c.cfg.now().UTC(),
	}, nil
}

// commitLocked applies planned mutations in order. Each one bumps the
// version and appends its own history entry.
func (c *Context) commitLocked(actor string, mutations ...mutation) []activity.Event {
	events := make([]activity.Event, 0, len(mutations))
	for _, m := range mutations {
		c.overrides = m.overrides
		c.effective = m.effective
		c.meta.Version++
		c.history = append(c.history, m.entry)

		c.cfg.logger.Debug("context mutated",
			"context_id", c.meta.ContextID,
			"action", m.action,
			"override_id", m.override.ID,
			"version", c.meta.Version,
		)

		input := c.eventInput(actor, m.entry, m.override)
		switch m.action {
		case ActionApplyOverride:
			events = append(events, activity.BuildOverrideAppliedEvent(input))
		case ActionRemoveOverride:
			events = append(events, activity.BuildOverrideRemovedEvent(input))
		}
	}
	return events
}

func (c *Context) eventInput(actor string, entry HistoryEntry, o Override) activity.ContextEventInput {
	return activity.ContextEventInput{
		ActorID:      actor,
		ClientID:     c.meta.ClientID,
		ContextID:    c.meta.ContextID,
		Version:      c.meta.Version,
		OverrideID:   o.ID,
		OverrideType: string(o.Type),
		Label:        o.Label,
		Summary:      entry.Summary,
		OccurredAt:   entry.Timestamp,
	}
}

func (c *Context) emit(event activity.Event) {
	c.emitAll([]activity.Event{event})
}

// emitAll must be called without holding c.mu, hooks may read the context.
func (c *Context) emitAll(events []activity.Event) {
	if !c.cfg.emitter.Enabled() {
		return
	}
	for _, event := range events {
		if err := c.cfg.emitter.Emit(context.Background(), event); err != nil {
			c.cfg.logger.Warn("activity emit failed",
				"object_id", event.ObjectID,
				"verb", event.Verb,
				"error", err,
			)
		}
	}
}

func (c *Context) metaCopyLocked() Meta {
	meta := c.meta
	meta.KPIOrder = slices.Clone(c.meta.KPIOrder)
	return meta
}

func cloneOverride(o Override) Override {
	o.AppliesTo = slices.Clone(o.AppliesTo)
	o.Changes = layering.Clone(o.Changes)
	return o
}

func cloneOverrides(src []Override) []Override {
	out := make([]Override, len(src))
	for i, o := range src {
		out[i] = cloneOverride(o)
	}
	return out
}
