package decisions

import "time"

// Mapping is the nested key/value shape shared by baselines, override
// changes and effective views.
type Mapping = map[string]any

// OverrideType classifies an override record.
type OverrideType string

const (
	// OverrideScenario marks the override emitted by the scenario boundary.
	// At most one may be present on a Context.
	OverrideScenario OverrideType = "scenario"
	// OverrideManual marks a user supplied edit.
	OverrideManual OverrideType = "manual"
)

// Valid reports whether t is a known override type.
func (t OverrideType) Valid() bool {
	switch t {
	case OverrideScenario, OverrideManual:
		return true
	default:
		return false
	}
}

// History actions recorded by the context store.
const (
	ActionCreateContext  = "create_context"
	ActionApplyOverride  = "apply_override"
	ActionRemoveOverride = "remove_override"
)

const (
	// DefaultSource is recorded when Create receives an empty source.
	DefaultSource = "wizard"
	// DefaultActor is recorded when a mutation receives an empty actor.
	DefaultActor = "system"
	// DefaultScenarioActor is the actor used by the scenario boundary.
	DefaultScenarioActor = "scenario_engine_v1"
)

// Meta identifies a Context and tracks its version.
type Meta struct {
	ContextID string    `json:"context_id"`
	ClientID  string    `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Version   int       `json:"version"`
	// KPIOrder keeps the document order of baseline KPIs, which Go maps lose.
	KPIOrder []string `json:"kpi_order,omitempty"`
}

// Override is one ordered patch applied on top of the baseline.
type Override struct {
	ID        string       `json:"id"`
	Type      OverrideType `json:"type"`
	Label     string       `json:"label"`
	AppliesTo []string     `json:"applies_to"`
	Changes   Mapping      `json:"changes"`
	Actor     string       `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
}

// OverrideInput is the caller supplied part of an override. The store fills
// in the actor, timestamp and, when missing, the id and applies_to keys.
type OverrideInput struct {
	ID        string
	Type      OverrideType
	Label     string
	AppliesTo []string
	Changes   Mapping
}

// HistoryEntry is one audit record; the history is append-only.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Summary   string    `json:"summary"`
}

// ContextRecord is the serialisable form of a Context.
type ContextRecord struct {
	Meta      Meta           `json:"meta"`
	Baseline  Mapping        `json:"baseline"`
	Overrides []Override     `json:"overrides"`
	Effective Mapping        `json:"effective"`
	History   []HistoryEntry `json:"history"`
}
