package state

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-decisions"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-decisions/pkg/state"

// Mutator changes a loaded context before it is saved again.
type Mutator func(*decisions.Context) error

// PersisterOption configures a Persister.
type PersisterOption func(*Persister)

// WithContextOptions sets the options contexts are rebuilt with on load.
func WithContextOptions(opts ...decisions.Option) PersisterOption {
	return func(p *Persister) {
		p.ctxOpts = append(p.ctxOpts, opts...)
	}
}

// WithTracerProvider sets the provider spans are recorded with. The global
// provider is used by default.
func WithTracerProvider(provider trace.TracerProvider) PersisterOption {
	return func(p *Persister) {
		if provider != nil {
			p.tracer = provider.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time recorded as Meta.UpdatedAt.
func WithClock(now func() time.Time) PersisterOption {
	return func(p *Persister) {
		if now != nil {
			p.now = now
		}
	}
}

// Persister adapts a Store to decisions.Persister.
type Persister struct {
	store   Store
	ctxOpts []decisions.Option
	tracer  trace.Tracer
	now     func() time.Time
}

var _ decisions.Persister = (*Persister)(nil)

// NewPersister wraps store.
func NewPersister(store Store, opts ...PersisterOption) *Persister {
	p := &Persister{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p
}

// Save stores the current record of c under its client id.
func (p *Persister) Save(ctx context.Context, c *decisions.Context) error {
	if c == nil {
		return decisions.ErrNilContext
	}
	_, err := p.save(ctx, c.Record(), Meta{})
	return err
}

// Load rebuilds the stored context for clientID. It returns (nil, nil)
// when nothing is stored.
func (p *Persister) Load(ctx context.Context, clientID string) (*decisions.Context, error) {
	c, _, err := p.load(ctx, clientID)
	return c, err
}

// LoadWithMeta is Load returning the stored metadata as well.
func (p *Persister) LoadWithMeta(ctx context.Context, clientID string) (*decisions.Context, Meta, error) {
	return p.load(ctx, clientID)
}

// Mutate loads the context for clientID, applies fn and saves the result.
// A non-empty etag must match the stored record or ErrETagMismatch is
// returned before fn runs.
func (p *Persister) Mutate(ctx context.Context, clientID, etag string, fn Mutator) (*decisions.Context, Meta, error) {
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	c, loaded, err := p.load(ctx, clientID)
	if err != nil {
		return nil, Meta{}, err
	}
	if c == nil {
		return nil, Meta{}, fmt.Errorf("%w: %q", ErrNotFound, clientID)
	}
	if etag != "" && loaded.ETag != "" && etag != loaded.ETag {
		return nil, loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, etag, loaded.ETag)
	}
	if err := fn(c); err != nil {
		return nil, loaded, err
	}
	saved, err := p.save(ctx, c.Record(), Meta{Extra: loaded.Extra})
	if err != nil {
		return nil, loaded, err
	}
	return c, saved, nil
}

func (p *Persister) load(ctx context.Context, clientID string) (*decisions.Context, Meta, error) {
	if p == nil || p.store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	ctx, span := p.tracer.Start(ctx, "state.Load",
		trace.WithAttributes(attribute.String("decisions.client_id", clientID)))
	defer span.End()

	record, meta, ok, err := p.store.Load(ctx, Ref{ClientID: clientID})
	if err != nil {
		recordSpanError(span, err)
		return nil, Meta{}, err
	}
	span.SetAttributes(attribute.Bool("decisions.found", ok))
	if !ok {
		return nil, Meta{}, nil
	}
	c, err := decisions.FromRecord(record, p.ctxOpts...)
	if err != nil {
		err = WrapError("restore", clientID, err)
		recordSpanError(span, err)
		return nil, Meta{}, err
	}
	span.SetAttributes(attribute.Int("decisions.version", meta.Version))
	return c, meta, nil
}

func (p *Persister) save(ctx context.Context, record decisions.ContextRecord, meta Meta) (Meta, error) {
	if p == nil || p.store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	ctx, span := p.tracer.Start(ctx, "state.Save", trace.WithAttributes(
		attribute.String("decisions.client_id", record.Meta.ClientID),
		attribute.String("decisions.context_id", record.Meta.ContextID),
		attribute.Int("decisions.version", record.Meta.Version),
	))
	defer span.End()

	saved, err := p.store.Save(ctx, Ref{ClientID: record.Meta.ClientID}, record, mergeMeta(MetaFor(record, p.now()), meta))
	if err != nil {
		recordSpanError(span, err)
		return Meta{}, err
	}
	return saved, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
