package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-decisions"
	"github.com/goliatone/go-decisions/internal/config"
	"github.com/goliatone/go-decisions/pkg/activity"
	"github.com/goliatone/go-decisions/pkg/catalog"
	"github.com/goliatone/go-decisions/pkg/state"
	"github.com/goliatone/go-decisions/pkg/state/sqlite"
	"github.com/spf13/afero"
)

// App carries the process wide dependencies shared by every command.
type App struct {
	Config config.Config
	Fs     afero.Fs
	Logger *slog.Logger
	// Hooks receive context activity when activity is enabled. A LogHook on
	// Logger is always added.
	Hooks activity.Hooks

	mu        sync.Mutex
	memory    *state.MemoryStore
	persister *state.Persister
	registry  *decisions.StaticRegistry
	evaluator decisions.Evaluator
	closers   []io.Closer
}

// NewApp builds an App. A nil fs uses the OS filesystem and a nil logger
// discards output.
func NewApp(cfg config.Config, fsys afero.Fs, logger *slog.Logger) *App {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &App{Config: cfg, Fs: fsys, Logger: logger}
}

// Close releases stores opened by commands.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	a.persister = nil
	return errors.Join(errs...)
}

// Evaluator returns the directive evaluator for the configured engine.
func (a *App) Evaluator() (decisions.Evaluator, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.evaluatorLocked()
}

func (a *App) evaluatorLocked() (decisions.Evaluator, error) {
	if a.evaluator != nil {
		return a.evaluator, nil
	}
	evaluator, err := decisions.NewEvaluator(a.Config.Engine, decisions.NewProgramCache(), decisions.DirectiveFunctions())
	if err != nil {
		return nil, err
	}
	a.evaluator = evaluator
	return evaluator, nil
}

// Registry returns the scenario catalog: the configured file when set, the
// built-in scenarios otherwise.
func (a *App) Registry() (*decisions.StaticRegistry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.registry != nil {
		return a.registry, nil
	}
	path := strings.TrimSpace(a.Config.Scenarios)
	if path == "" {
		a.registry = decisions.DefaultScenarios()
		return a.registry, nil
	}
	evaluator, err := a.evaluatorLocked()
	if err != nil {
		return nil, err
	}
	registry, err := catalog.LoadScenarios(a.Fs, path, evaluator)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("scenario catalog loaded", "path", path, "scenarios", len(registry.List()))
	a.registry = registry
	return registry, nil
}

// ScenarioOptions returns the options shared by the scenario boundary and
// the simulator.
func (a *App) ScenarioOptions() ([]decisions.ScenarioOption, error) {
	evaluator, err := a.Evaluator()
	if err != nil {
		return nil, err
	}
	return []decisions.ScenarioOption{
		decisions.WithStrictScenarios(a.Config.StrictScenarios),
		decisions.WithScenarioEvaluator(evaluator),
		decisions.WithDirectivePrecision(a.Config.Precision),
		decisions.WithScenarioLogger(a.Logger),
		decisions.WithEvaluatorLogger(decisions.SlogEvaluatorLogger(a.Logger)),
		decisions.WithScenarioMaxDepth(a.Config.MaxDepth),
	}, nil
}

// ContextOptions returns the options contexts are created and restored with.
func (a *App) ContextOptions() []decisions.Option {
	hooks := append(activity.Hooks{activity.LogHook{Logger: a.Logger}}, a.Hooks...)
	return []decisions.Option{
		decisions.WithLogger(a.Logger),
		decisions.WithMaxDepth(a.Config.MaxDepth),
		decisions.WithActivity(activity.NewEmitter(hooks, a.Config.Activity)),
	}
}

// Persister returns the persister for the configured backend. The store is
// opened once per App.
func (a *App) Persister() (*state.Persister, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.persister != nil {
		return a.persister, nil
	}
	store, err := a.openStoreLocked()
	if err != nil {
		return nil, err
	}
	a.persister = state.NewPersister(store, state.WithContextOptions(a.ContextOptions()...))
	return a.persister, nil
}

func (a *App) openStoreLocked() (state.Store, error) {
	switch a.Config.Backend {
	case config.BackendMemory:
		if a.memory == nil {
			a.memory = state.NewMemoryStore()
		}
		return a.memory, nil
	case config.BackendSQLite:
		path := a.Config.SQLitePath
		// The driver opens a real file, so its directory lives on the OS
		// filesystem rather than a.Fs.
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case config.BackendFile, "":
		return state.NewFileStore(a.Fs, a.Config.StateDir), nil
	default:
		return nil, fmt.Errorf("%w: backend %q", config.ErrInvalidConfig, a.Config.Backend)
	}
}

// Sessions returns a session registry backed by the App's persister.
// kpiOrder is recorded on contexts it starts.
func (a *App) Sessions(kpiOrder []string) (*decisions.Sessions, error) {
	persister, err := a.Persister()
	if err != nil {
		return nil, err
	}
	ctxOpts := append(a.ContextOptions(), decisions.WithKPIOrder(kpiOrder...))
	return decisions.NewSessions(
		decisions.WithPersister(persister),
		decisions.WithContextOptions(ctxOpts...),
		decisions.WithSessionLogger(a.Logger),
	), nil
}

// load restores the stored context for clientID.
func (a *App) load(ctx context.Context, clientID string) (*decisions.Context, state.Meta, error) {
	persister, err := a.Persister()
	if err != nil {
		return nil, state.Meta{}, WrapExitError(ExitCommandError, "open store", err)
	}
	c, meta, err := persister.LoadWithMeta(ctx, clientID)
	if err != nil {
		return nil, state.Meta{}, WrapExitError(ExitFailure, "load context", err)
	}
	if c == nil {
		return nil, state.Meta{}, WrapExitError(ExitCommandError, fmt.Sprintf("no context for client %q", clientID), state.ErrNotFound)
	}
	return c, meta, nil
}

// mutate loads, changes and saves the context for clientID.
func (a *App) mutate(ctx context.Context, clientID, etag string, fn state.Mutator) (*decisions.Context, state.Meta, error) {
	persister, err := a.Persister()
	if err != nil {
		return nil, state.Meta{}, WrapExitError(ExitCommandError, "open store", err)
	}
	c, meta, err := persister.Mutate(ctx, clientID, etag, fn)
	switch {
	case err == nil:
		return c, meta, nil
	case errors.Is(err, state.ErrNotFound):
		return nil, meta, WrapExitError(ExitCommandError, fmt.Sprintf("no context for client %q", clientID), err)
	case errors.Is(err, state.ErrETagMismatch):
		return nil, meta, WrapExitError(ExitFailure, "context changed since it was read", err)
	default:
		return nil, meta, err
	}
}

func (a *App) actor(flag, fallback string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if v := strings.TrimSpace(a.Config.Actor); v != "" {
		return v
	}
	return fallback
}
