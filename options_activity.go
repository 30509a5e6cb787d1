package decisions

import "github.com/goliatone/go-decisions/pkg/activity"

// WithActivity routes context lifecycle events to emitter. Emission failures
// are logged and never fail the mutation that produced them.
func WithActivity(emitter *activity.Emitter) Option {
	return func(cfg *config) {
		cfg.emitter = emitter
	}
}

// WithActivityHooks is shorthand for WithActivity with an enabled emitter on
// the default channel. Nil hooks are dropped.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return WithActivity(activity.NewEmitter(activity.Hooks(hooks), activity.Config{Enabled: true}))
}
