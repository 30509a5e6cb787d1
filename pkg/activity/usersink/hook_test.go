package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-decisions/pkg/activity"
	"github.com/goliatone/go-decisions/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	clientID := uuid.New()

	event := activity.BuildOverrideAppliedEvent(activity.ContextEventInput{
		ActorID:    actorID.String(),
		Channel:    "decisions",
		ClientID:   clientID.String(),
		ContextID:  "ctx-1",
		OverrideID: "scenario_attrition_spike",
		Version:    2,
		Summary:    "Applied override: Attrition spike",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != clientID {
		t.Fatalf("unexpected identity: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user id, got %s", record.UserID)
	}
	if record.Verb != activity.VerbOverrideApplied || record.ObjectType != activity.ObjectOverride || record.ObjectID != "scenario_attrition_spike" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "decisions" {
		t.Fatalf("expected channel decisions got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["context_id"] != "ctx-1" || record.Data["version"] != 2 || record.Data["summary"] != "Applied override: Attrition spike" {
		t.Fatalf("expected context coordinates in data, got %v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbContextCreated,
		ActorID:    "wizard",
		ObjectType: activity.ObjectContext,
		ObjectID:   "ctx-1",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected nil actor uuid, got %s", record.ActorID)
	}
	if record.Data["actor_ref"] != "wizard" {
		t.Fatalf("expected raw actor in data, got %v", record.Data)
	}
}

func TestHookNotifyKeepsNonUUIDClient(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbContextCreated,
		ClientID:   "orion",
		ContextID:  "ctx-1",
		ObjectType: activity.ObjectContext,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.TenantID != uuid.Nil || record.Data["client_ref"] != "orion" || record.Data["client_id"] != "orion" {
		t.Fatalf("expected raw client kept in data, got %+v", record)
	}
	if record.ObjectID != "ctx-1" {
		t.Fatalf("expected object id to fall back to the context, got %q", record.ObjectID)
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyPropagatesSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbContextCreated,
		ObjectType: activity.ObjectContext,
		ObjectID:   "ctx-1",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestHookNotifyWithoutSinkIsNoop(t *testing.T) {
	hook := usersink.Hook{}
	if err := hook.Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
