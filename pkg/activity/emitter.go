package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events that do not carry their own channel.
const DefaultChannel = "decisions"

// Config controls activity emission. It is read from DECISIONS_ACTIVITY_*.
type Config struct {
	Enabled bool   `env:"ENABLED"`
	Channel string `env:"CHANNEL"`
}

// Emitter is what a decision context holds to publish its changes. A nil or
// disabled Emitter swallows every event.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter drops nil hooks from hooks. The result is disabled unless
// cfg.Enabled is set and at least one hook remains.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{channel: strings.TrimSpace(cfg.Channel)}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if !cfg.Enabled {
		return e
	}
	for _, hook := range hooks {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
	return e
}

func (e *Emitter) Enabled() bool {
	return e != nil && e.hooks.Enabled()
}

// Channel is the channel applied to events that name none.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Emit publishes event on the emitter's channel unless it names its own.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
