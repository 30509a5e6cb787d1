package decisions

import (
	"fmt"
	"slices"

	"github.com/goliatone/go-decisions/internal/hydrate"
)

// KPI is the typed form of one kpis entry.
type KPI struct {
	Value  float64 `json:"value"`
	Status string  `json:"status,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// Strategy is the typed form of the strategy block.
type Strategy struct {
	Posture     string `json:"posture,omitempty"`
	HorizonDays int    `json:"horizon_days,omitempty"`
}

// View is the typed projection of an effective mapping that presentation
// code reads. Keys it does not declare are ignored.
type View struct {
	Persona  string         `json:"persona,omitempty"`
	Strategy Strategy       `json:"strategy"`
	KPIs     map[string]KPI `json:"kpis,omitempty"`
}

// KPIStatuses lists the accepted KPI status values.
var KPIStatuses = []string{"green", "amber", "red", "low", "moderate", "high"}

var viewDecoder = hydrate.NewDecoder[View](
	hydrate.WithPreHook[View](normalizeViewPayload),
	hydrate.WithPostHook[View](validateViewStatuses),
)

// View decodes the current effective view.
func (c *Context) View() (View, error) {
	if c == nil {
		return View{}, ErrNilContext
	}
	return DecodeView(c.ClientID(), c.Effective())
}

// DecodeView decodes an effective mapping into a View. Bare numeric KPIs
// become {value: n} and a string strategy becomes its posture.
func DecodeView(clientID string, effective Mapping) (View, error) {
	return viewDecoder.Decode(hydrate.Source{ClientID: clientID, Kind: "effective"}, effective)
}

func normalizeViewPayload(_ hydrate.Source, payload map[string]any) (map[string]any, error) {
	if posture, ok := payload["strategy"].(string); ok {
		payload["strategy"] = map[string]any{"posture": posture}
	}
	kpis, ok := payload["kpis"].(map[string]any)
	if !ok {
		return payload, nil
	}
	for name, state := range kpis {
		if _, isMap := state.(map[string]any); isMap {
			continue
		}
		if value, ok := toFloat(state); ok {
			kpis[name] = map[string]any{"value": value}
			continue
		}
		return nil, fmt.Errorf("kpi %q: expected a mapping or number, got %T", name, state)
	}
	return payload, nil
}

func validateViewStatuses(_ hydrate.Source, view *View) error {
	for name, kpi := range view.KPIs {
		if kpi.Status == "" {
			continue
		}
		if !slices.Contains(KPIStatuses, kpi.Status) {
			return fmt.Errorf("%w: kpi %q has status %q", ErrInvalidStatus, name, kpi.Status)
		}
	}
	return nil
}
