package decisions

import (
	"math"
	"slices"
	"sort"

	"github.com/goliatone/go-decisions/layering"
)

// Direction is the sign of a KPI delta.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Signal grades the magnitude of a KPI delta.
type Signal string

const (
	SignalNone     Signal = "none"
	SignalWeak     Signal = "weak"
	SignalModerate Signal = "moderate"
	SignalStrong   Signal = "strong"
)

// Signal thresholds on |delta|.
const (
	ModerateSignalThreshold = 3.0
	StrongSignalThreshold   = 10.0
)

// DeltaRecord compares one KPI between two views.
type DeltaRecord struct {
	KPI       string    `json:"kpi"`
	Baseline  float64   `json:"baseline"`
	Scenario  float64   `json:"scenario"`
	Delta     float64   `json:"delta"`
	Direction Direction `json:"direction"`
	Signal    Signal    `json:"signal"`
}

// DeltaOption configures ComputeDeltas.
type DeltaOption func(*deltaConfig)

type deltaConfig struct {
	order []string
}

// WithDeltaOrder lists KPIs to report first, in the given order. Remaining
// KPIs follow sorted by name.
func WithDeltaOrder(names ...string) DeltaOption {
	return func(cfg *deltaConfig) {
		cfg.order = cleanNames(names)
	}
}

// ComputeDeltas compares the kpis mapping of baseline and scenario. KPIs
// missing on either side, or without a numeric value, are skipped. A KPI
// state is either a mapping with a value key or a bare number. Direction and
// signal are classified on the unrounded difference; only Delta is rounded to
// two decimals.
func ComputeDeltas(baseline, scenario Mapping, opts ...DeltaOption) []DeltaRecord {
	cfg := deltaConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	records := make([]DeltaRecord, 0)
	baseKPIs, _ := layering.AsMapping(baseline["kpis"])
	scenKPIs, _ := layering.AsMapping(scenario["kpis"])
	if len(baseKPIs) == 0 || len(scenKPIs) == 0 {
		return records
	}

	for _, name := range kpiOrder(baseKPIs, cfg.order) {
		scenState, ok := scenKPIs[name]
		if !ok || scenState == nil {
			continue
		}
		base, ok := KPIValue(baseKPIs[name])
		if !ok {
			continue
		}
		scen, ok := KPIValue(scenState)
		if !ok {
			continue
		}
		raw := scen - base
		records = append(records, DeltaRecord{
			KPI:       name,
			Baseline:  base,
			Scenario:  scen,
			Delta:     roundTo(raw, 2),
			Direction: ClassifyDirection(raw),
			Signal:    ClassifySignal(raw),
		})
	}
	return records
}

// ClassifyDirection returns up, down or flat for delta.
func ClassifyDirection(delta float64) Direction {
	switch {
	case delta > 0:
		return DirectionUp
	case delta < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// ClassifySignal grades |delta|: none at zero, weak below 3, moderate below
// 10, strong otherwise.
func ClassifySignal(delta float64) Signal {
	magnitude := math.Abs(delta)
	switch {
	case magnitude >= StrongSignalThreshold:
		return SignalStrong
	case magnitude >= ModerateSignalThreshold:
		return SignalModerate
	case magnitude > 0:
		return SignalWeak
	default:
		return SignalNone
	}
}

// KPIValue extracts the numeric value of a KPI state.
func KPIValue(state any) (float64, bool) {
	if m, ok := layering.AsMapping(state); ok {
		return toFloat(m["value"])
	}
	return toFloat(state)
}

// DeltaSummary condenses a delta report for headline display.
type DeltaSummary struct {
	Up        int          `json:"up"`
	Down      int          `json:"down"`
	Flat      int          `json:"flat"`
	Strongest *DeltaRecord `json:"strongest,omitempty"`
}

// SummarizeDeltas counts records per direction and picks the largest
// absolute mover. Ties keep the earlier record; all-flat reports have no
// strongest mover.
func SummarizeDeltas(records []DeltaRecord) DeltaSummary {
	var summary DeltaSummary
	best := -1
	for i, record := range records {
		switch record.Direction {
		case DirectionUp:
			summary.Up++
		case DirectionDown:
			summary.Down++
		default:
			summary.Flat++
		}
		if record.Delta == 0 {
			continue
		}
		if best < 0 || math.Abs(record.Delta) > math.Abs(records[best].Delta) {
			best = i
		}
	}
	if best >= 0 {
		strongest := records[best]
		summary.Strongest = &strongest
	}
	return summary
}

func kpiOrder(kpis map[string]any, preferred []string) []string {
	out := make([]string, 0, len(kpis))
	for _, name := range preferred {
		if _, ok := kpis[name]; ok {
			out = append(out, name)
		}
	}
	rest := make([]string, 0, len(kpis)-len(out))
	for name := range kpis {
		if !slices.Contains(out, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
