package activity

import (
	"maps"
	"strings"
	"time"
)

// Verbs emitted for decision context changes.
const (
	VerbContextCreated  = "context.created"
	VerbOverrideApplied = "context.override.applied"
	VerbOverrideRemoved = "context.override.removed"
)

// Object types referenced by context events.
const (
	ObjectContext  = "decision_context"
	ObjectOverride = "decision_context.override"
)

// ContextEventInput describes the fields shared by context lifecycle events.
type ContextEventInput struct {
	ActorID      string
	Channel      string
	ClientID     string
	ContextID    string
	Version      int
	OverrideID   string
	OverrideType string
	Label        string
	Summary      string
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildContextCreatedEvent constructs the event for a freshly created context.
func BuildContextCreatedEvent(input ContextEventInput) Event {
	return buildContextEvent(VerbContextCreated, ObjectContext, input.ContextID, input)
}

// BuildOverrideAppliedEvent constructs the event for an appended override.
func BuildOverrideAppliedEvent(input ContextEventInput) Event {
	return buildContextEvent(VerbOverrideApplied, ObjectOverride, input.OverrideID, input)
}

// BuildOverrideRemovedEvent constructs the event for a removed override.
func BuildOverrideRemovedEvent(input ContextEventInput) Event {
	return buildContextEvent(VerbOverrideRemoved, ObjectOverride, input.OverrideID, input)
}

// Override details travel in Metadata under override_type and label.
func buildContextEvent(verb, objectType, objectID string, input ContextEventInput) Event {
	metadata := maps.Clone(input.Metadata)
	for key, value := range map[string]string{
		"override_type": input.OverrideType,
		"label":         input.Label,
	} {
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}

	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.ContextID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Normalize(Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		ClientID:   input.ClientID,
		ContextID:  input.ContextID,
		Version:    input.Version,
		ObjectType: objectType,
		ObjectID:   objectID,
		Summary:    input.Summary,
		Channel:    input.Channel,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	})
}
