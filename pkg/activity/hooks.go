package activity

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// Event is one change to a decision context. The context coordinates
// (client, context id, version) are first class; anything else a producer
// wants to attach goes in Metadata.
type Event struct {
	Verb       string
	ActorID    string
	ClientID   string
	ContextID  string
	Version    int
	ObjectType string
	ObjectID   string
	Summary    string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives events after Normalize.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks notifies every member in order.
type Hooks []Hook

// Enabled reports whether h has any member.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event once and hands it to each hook. A failing hook does
// not stop the rest; all failures come back joined. Events that do not name a
// verb and an object are dropped silently.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = Normalize(event)
	if !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Routable reports whether the event has a verb and a full object reference.
func (e Event) Routable() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// Normalize trims every identifier, copies Metadata and stamps OccurredAt.
// An event with no object id points at its context.
func Normalize(event Event) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.ClientID, &out.ContextID,
		&out.ObjectType, &out.ObjectID, &out.Summary, &out.Channel,
	} {
		*field = strings.TrimSpace(*field)
	}
	if out.ObjectID == "" && out.ObjectType != "" {
		out.ObjectID = out.ContextID
	}
	if out.Version < 0 {
		out.Version = 0
	}
	if len(event.Metadata) == 0 {
		out.Metadata = nil
	} else {
		out.Metadata = maps.Clone(event.Metadata)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	out.OccurredAt = out.OccurredAt.UTC()
	return out
}
