package pricing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/mytheresa/storefront-pricing/metrics"
)

// Source fetches the current promotion list from wherever promotions live.
// Implementations normalize raw records before returning them.
type Source interface {
	Fetch(ctx context.Context) ([]Promotion, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Promotion, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]Promotion, error) {
	return f(ctx)
}

// RefreshingSource is a Source with a cache of its own. Refresh skips that
// cache and rewrites it; Reload uses it so a forced reload is never served a
// cached copy.
type RefreshingSource interface {
	Source
	Refresh(ctx context.Context) ([]Promotion, error)
}

// Repository caches the promotion list for the lifetime of the process.
// The list is replaced wholesale on every successful fetch and never mutated
// in place, so readers can share the slice without copying. Fetches are
// numbered when they start and a result older than what is already applied
// is dropped, so a slow first load cannot overwrite a newer reload.
type Repository struct {
	source Source
	logger zerolog.Logger
	tracer trace.Tracer
	clock  Clock

	group    singleflight.Group
	inflight atomic.Int32
	started  atomic.Uint64

	mu          sync.RWMutex
	promotions  []Promotion
	applied     uint64
	appliedList uint64
	loaded      bool
	err         error
	loadedAt    time.Time
}

type RepositoryOption func(*Repository)

func WithLogger(logger zerolog.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

func WithTracer(tracer trace.Tracer) RepositoryOption {
	return func(r *Repository) { r.tracer = tracer }
}

func WithClock(clock Clock) RepositoryOption {
	return func(r *Repository) { r.clock = clock }
}

func NewRepository(source Source, opts ...RepositoryOption) *Repository {
	r := &Repository{
		source: source,
		logger: zerolog.Nop(),
		tracer: otel.Tracer("github.com/mytheresa/storefront-pricing/pricing"),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the promotion list unless a fetch already completed. Callers
// racing on the first load share a single fetch. A failed fetch leaves an
// empty list behind and returns the error as a notice; it is not retried by
// Load, only by Reload.
func (r *Repository) Load(ctx context.Context) error {
	if r.IsLoaded() {
		return nil
	}
	_, err, _ := r.group.Do("load", func() (interface{}, error) {
		if r.IsLoaded() {
			return nil, nil
		}
		return nil, r.fetch(context.WithoutCancel(ctx), "load")
	})
	return err
}

// Reload always fetches, bypassing the source's own cache when it has one.
// On failure the previously cached list stays in place.
func (r *Repository) Reload(ctx context.Context) error {
	_, err, _ := r.group.Do("reload", func() (interface{}, error) {
		return nil, r.fetch(context.WithoutCancel(ctx), "reload")
	})
	return err
}

// Run reloads the list every interval until ctx is done.
func (r *Repository) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Reload(ctx)
		}
	}
}

func (r *Repository) fetch(ctx context.Context, op string) error {
	gen := r.started.Add(1)
	ctx, span := r.tracer.Start(ctx, "pricing.Repository."+op)
	defer span.End()

	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	start := time.Now()
	var (
		promotions []Promotion
		err        error
	)
	if rs, ok := r.source.(RefreshingSource); ok && op == "reload" {
		promotions, err = rs.Refresh(ctx)
	} else {
		promotions, err = r.source.Fetch(ctx)
	}
	metrics.ObservePromotionLoad(time.Since(start), err)

	r.mu.Lock()
	defer r.mu.Unlock()

	// A failure is superseded by any newer outcome, a list only by a newer list.
	if (err != nil && gen < r.applied) || (err == nil && gen < r.appliedList) {
		span.SetAttributes(attribute.Bool("promotions.superseded", true))
		r.logger.Debug().Str("op", op).Uint64("fetch", gen).Uint64("applied", r.applied).
			Msg("dropping promotion fetch overtaken by a newer one")
		return nil
	}
	if gen > r.applied {
		r.applied = gen
		r.err = err
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !r.loaded {
			r.promotions = []Promotion{}
		}
		r.loaded = true
		r.logger.Warn().Err(err).Str("op", op).Int("cached", len(r.promotions)).
			Msg("promotion fetch failed, keeping cached promotions")
		return err
	}

	next := make([]Promotion, len(promotions))
	copy(next, promotions)
	r.promotions = next
	r.appliedList = gen
	r.loaded = true
	r.loadedAt = r.clock.Now()
	metrics.SetCachedPromotions(len(next))
	span.SetAttributes(attribute.Int("promotions.count", len(next)))
	r.logger.Info().Str("op", op).Int("promotions", len(next)).Msg("promotions loaded")
	return nil
}

// Get returns a copy of the cached list. It is nil until the first load completes.
func (r *Repository) Get() []Promotion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.promotions == nil {
		return nil
	}
	out := make([]Promotion, len(r.promotions))
	copy(out, r.promotions)
	return out
}

// snapshot hands out the shared slice; callers must not modify it.
func (r *Repository) snapshot() []Promotion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.promotions
}

func (r *Repository) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Loading reports whether any fetch is in flight.
func (r *Repository) Loading() bool {
	return r.inflight.Load() > 0
}

// Err is the error of the most recent fetch, nil if it succeeded.
func (r *Repository) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// LoadedAt is the time of the last successful fetch.
func (r *Repository) LoadedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadedAt
}
