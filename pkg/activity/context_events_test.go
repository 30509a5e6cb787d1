package activity

import (
	"context"
	"testing"
)

func TestBuildOverrideAppliedEventCarriesContextMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := ContextEventInput{
		ActorID:      " analyst ",
		ClientID:     " orion ",
		ContextID:    "ctx-1",
		Version:      2,
		OverrideID:   "scenario_attrition_spike",
		OverrideType: "scenario",
		Label:        "Attrition spike",
		Summary:      "Applied override: Attrition spike",
		Metadata:     meta,
	}

	event := BuildOverrideAppliedEvent(input)

	if event.Verb != VerbOverrideApplied {
		t.Fatalf("expected verb %s got %s", VerbOverrideApplied, event.Verb)
	}
	if event.ObjectType != ObjectOverride || event.ObjectID != "scenario_attrition_spike" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "analyst" || event.ClientID != "orion" || event.ContextID != "ctx-1" || event.Version != 2 {
		t.Fatalf("unexpected context coordinates: %+v", event)
	}
	if event.Summary != "Applied override: Attrition spike" {
		t.Fatalf("unexpected summary %q", event.Summary)
	}
	want := map[string]any{
		"custom":        "value",
		"override_type": "scenario",
		"label":         "Attrition spike",
	}
	for key, value := range want {
		if event.Metadata[key] != value {
			t.Fatalf("metadata %s: expected %v got %v", key, value, event.Metadata[key])
		}
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildContextCreatedEventUsesContextID(t *testing.T) {
	event := BuildContextCreatedEvent(ContextEventInput{ContextID: "ctx-9", Version: 1})
	if event.ObjectType != ObjectContext || event.ObjectID != "ctx-9" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
}

func TestBuildOverrideRemovedEventFallsBackToObjectType(t *testing.T) {
	event := BuildOverrideRemovedEvent(ContextEventInput{})
	if event.ObjectID != ObjectOverride {
		t.Fatalf("expected fallback object id %q, got %q", ObjectOverride, event.ObjectID)
	}
	if event.Metadata != nil {
		t.Fatalf("expected no metadata for empty input, got %+v", event.Metadata)
	}
}

func TestContextEventsFlowThroughHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	events := []Event{
		BuildContextCreatedEvent(ContextEventInput{ContextID: "ctx-1"}),
		BuildOverrideAppliedEvent(ContextEventInput{ContextID: "ctx-1", OverrideID: "o1"}),
		BuildOverrideRemovedEvent(ContextEventInput{ContextID: "ctx-1", OverrideID: "o1"}),
	}
	for _, event := range events {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	verbs := capture.Verbs()
	if len(verbs) != 3 || verbs[0] != VerbContextCreated || verbs[1] != VerbOverrideApplied || verbs[2] != VerbOverrideRemoved {
		t.Fatalf("unexpected verbs: %v", verbs)
	}
}
