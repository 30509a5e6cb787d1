package decisions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Persister saves and restores contexts per client. Load returns (nil, nil)
// when nothing is stored for clientID.
type Persister interface {
	Save(ctx context.Context, c *Context) error
	Load(ctx context.Context, clientID string) (*Context, error)
}

// SessionOption configures Sessions.
type SessionOption func(*sessionsConfig)

type sessionsConfig struct {
	persister Persister
	ctxOpts   []Option
	logger    *slog.Logger
}

// WithPersister saves contexts on Start and Save, and lets Resume fall back
// to stored records.
func WithPersister(p Persister) SessionOption {
	return func(cfg *sessionsConfig) {
		cfg.persister = p
	}
}

// WithContextOptions sets the options passed to Create for new contexts.
func WithContextOptions(opts ...Option) SessionOption {
	return func(cfg *sessionsConfig) {
		cfg.ctxOpts = append(cfg.ctxOpts, opts...)
	}
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(cfg *sessionsConfig) {
		cfg.logger = logger
	}
}

// Sessions holds at most one live Context per client id.
type Sessions struct {
	mu       sync.Mutex
	contexts map[string]*Context
	cfg      sessionsConfig
}

// NewSessions constructs an empty registry.
func NewSessions(opts ...SessionOption) *Sessions {
	cfg := sessionsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = discardLogger()
	}
	return &Sessions{
		contexts: map[string]*Context{},
		cfg:      cfg,
	}
}

// Start creates a new context for clientID, replacing any live one, and
// saves it when a persister is configured.
func (s *Sessions) Start(ctx context.Context, clientID string, baseline Mapping, source string) (*Context, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrClientIDRequired
	}
	c, err := Create(clientID, baseline, source, s.cfg.ctxOpts...)
	if err != nil {
		return nil, err
	}
	if s.cfg.persister != nil {
		if err := s.cfg.persister.Save(ctx, c); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.contexts[clientID] = c
	s.mu.Unlock()

	s.cfg.logger.Info("session started", "client_id", clientID, "context_id", c.ID())
	return c, nil
}

// Get returns the live context for clientID.
func (s *Sessions) Get(clientID string) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contexts[strings.TrimSpace(clientID)]
	return c, ok
}

// Effective returns the effective view of the live context for clientID.
func (s *Sessions) Effective(clientID string) (Mapping, bool) {
	c, ok := s.Get(clientID)
	if !ok {
		return nil, false
	}
	return GetEffective(c)
}

// Resume returns the live context for clientID, loading it from the
// persister when none is live. found is false when neither has it.
func (s *Sessions) Resume(ctx context.Context, clientID string) (*Context, bool, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, false, ErrClientIDRequired
	}
	if c, ok := s.Get(clientID); ok {
		return c, true, nil
	}
	if s.cfg.persister == nil {
		return nil, false, nil
	}
	c, err := s.cfg.persister.Load(ctx, clientID)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have resumed or started the client meanwhile.
	if live, ok := s.contexts[clientID]; ok {
		return live, true, nil
	}
	s.contexts[clientID] = c
	s.cfg.logger.Debug("session resumed", "client_id", clientID, "version", c.Version())
	return c, true, nil
}

// Save persists the live context for clientID. It is a no-op without a
// persister.
func (s *Sessions) Save(ctx context.Context, clientID string) error {
	c, ok := s.Get(clientID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, clientID)
	}
	if s.cfg.persister == nil {
		return nil
	}
	return s.cfg.persister.Save(ctx, c)
}

// Reset drops the live context for clientID. Stored records are kept.
func (s *Sessions) Reset(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, strings.TrimSpace(clientID))
}

// Clients returns the ids with a live context, sorted.
func (s *Sessions) Clients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.contexts))
	for id := range s.contexts {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
