package usersink

import (
	"context"
	"maps"

	"github.com/goliatone/go-decisions/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards decision context events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and logs it on the sink.
// The client id stands in for the tenant. Identifiers that are not UUIDs map
// to uuid.Nil and are kept in the record data as <name>_ref. Context
// coordinates and the summary are copied into the data as well.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	event = activity.Normalize(event)
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := recordData(event)
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID, "actor", data),
		TenantID:   parseUUID(event.ClientID, "client", data),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
	return h.Sink.Log(ctx, record)
}

func recordData(event activity.Event) map[string]any {
	data := make(map[string]any, len(event.Metadata)+4)
	maps.Copy(data, event.Metadata)
	if event.ClientID != "" {
		data["client_id"] = event.ClientID
	}
	if event.ContextID != "" {
		data["context_id"] = event.ContextID
	}
	if event.Version > 0 {
		data["version"] = event.Version
	}
	if event.Summary != "" {
		data["summary"] = event.Summary
	}
	return data
}

func parseUUID(input, label string, data map[string]any) uuid.UUID {
	if input == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(input); err == nil {
		return id
	}
	data[label+"_ref"] = input
	return uuid.Nil
}
