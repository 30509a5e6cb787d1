package decisions

import (
	"errors"
	"testing"
)

func TestContextView(t *testing.T) {
	c := mustCreate(t, demoBaseline())
	if err := NewScenarioBoundary(DefaultScenarios()).Apply(c, "attrition_spike", ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	view, err := c.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Persona != "CFO" || view.Strategy.Posture != "cost" || view.Strategy.HorizonDays != 90 {
		t.Fatalf("unexpected view header: %+v", view)
	}
	attrition := view.KPIs["attrition"]
	if attrition.Value != 22.5 || attrition.Status != "amber" {
		t.Fatalf("unexpected attrition: %+v", attrition)
	}
	if len(view.KPIs) != 3 {
		t.Fatalf("expected three kpis, got %d", len(view.KPIs))
	}
}

func TestDecodeViewNormalisesShorthand(t *testing.T) {
	effective := Mapping{
		"strategy": "growth",
		"kpis":     map[string]any{"nps": 31, "attrition": map[string]any{"value": 9.5, "unit": "%"}},
		"extra":    true,
	}

	view, err := DecodeView("orion", effective)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Strategy.Posture != "growth" {
		t.Fatalf("expected posture from string strategy, got %+v", view.Strategy)
	}
	if view.KPIs["nps"].Value != 31 || view.KPIs["attrition"].Unit != "%" {
		t.Fatalf("unexpected kpis: %+v", view.KPIs)
	}
	if effective["strategy"] != "growth" {
		t.Fatalf("decode must not modify its input")
	}
}

func TestDecodeViewRejectsBadPayloads(t *testing.T) {
	if _, err := DecodeView("orion", Mapping{"kpis": map[string]any{"nps": map[string]any{"value": 1.0, "status": "purple"}}}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := DecodeView("orion", Mapping{"kpis": map[string]any{"nps": "high"}}); err == nil {
		t.Fatalf("expected error for non-numeric kpi")
	}
	if _, err := (*Context)(nil).View(); !errors.Is(err, ErrNilContext) {
		t.Fatalf("expected ErrNilContext, got %v", err)
	}
}
