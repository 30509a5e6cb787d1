package activity

import (
	"context"
	"log/slog"
)

// LogHook writes events to a structured logger at info level.
type LogHook struct {
	Logger *slog.Logger
}

// Notify logs the event. It never fails.
func (h LogHook) Notify(ctx context.Context, event Event) error {
	if h.Logger == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []slog.Attr{
		slog.String("verb", event.Verb),
		slog.String("actor_id", event.ActorID),
		slog.String("client_id", event.ClientID),
		slog.String("object_type", event.ObjectType),
		slog.String("object_id", event.ObjectID),
		slog.String("channel", event.Channel),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if event.Version > 0 {
		attrs = append(attrs, slog.Int("version", event.Version))
	}
	if event.Summary != "" {
		attrs = append(attrs, slog.String("summary", event.Summary))
	}
	h.Logger.LogAttrs(ctx, slog.LevelInfo, "activity", attrs...)
	return nil
}
