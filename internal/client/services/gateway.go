// Package services holds the storage gateway: the single entry point through
// which the rest of weeklog reads and writes weeks.
//
// Reads are served from the local cache when a fresh entry exists and from
// the remote store otherwise. Writes go to the remote store inside a
// read-modify-write transaction guarded by an optimistic timestamp check;
// when the remote store cannot be reached the week is written to the cache
// instead, and only when that also fails is the save reported as failed.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/auth"
	"github.com/dmitrijs2005/weeklog/internal/client/cache"
	"github.com/dmitrijs2005/weeklog/internal/client/codec"
	"github.com/dmitrijs2005/weeklog/internal/client/metrics"
	"github.com/dmitrijs2005/weeklog/internal/client/models"
	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/dmitrijs2005/weeklog/internal/remote"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/weeklog/internal/client/services"

// DefaultConflictTolerance absorbs timestamp rounding between the remote
// store and the copy the caller last saw.
const DefaultConflictTolerance = time.Second

// Outcome is how a save ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDegraded Outcome = "degraded"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailed   Outcome = "failed"
)

type Gateway struct {
	cache     cache.Store
	remote    remote.Store
	identity  auth.IdentityProvider
	codec     *codec.Codec
	log       logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	tolerance time.Duration
	now       func() time.Time
}

type Option func(*Gateway)

func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gateway) { g.tracer = tp.Tracer(tracerName) }
}

func WithConflictTolerance(d time.Duration) Option {
	return func(g *Gateway) { g.tolerance = d }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway wires a gateway around its stores and identity provider.
func NewGateway(c cache.Store, r remote.Store, id auth.IdentityProvider, opts ...Option) *Gateway {
	g := &Gateway{
		cache:     c,
		remote:    r,
		identity:  id,
		log:       logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		tolerance: DefaultConflictTolerance,
		now:       time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.codec = codec.New(g.log)
	return g
}

// ClearAllCache wipes the local cache. Call it whenever the signed-in
// identity changes so one owner never sees another's cached weeks.
func (g *Gateway) ClearAllCache(ctx context.Context) error {
	if err := g.cache.Clear(ctx); err != nil {
		g.log.Error(ctx, "cache clear failed", "err", err)
		return err
	}
	g.log.Info(ctx, "cache cleared")
	return nil
}

// ListCachedWeeks returns whatever the cache holds for the current owner.
// It is a best-effort view, not a complete export.
func (g *Gateway) ListCachedWeeks(ctx context.Context) []models.WeekRecord {
	if _, _, cacheErr := g.caller(ctx); cacheErr != nil {
		return []models.WeekRecord{}
	}
	return g.cache.ListAll(ctx)
}

// RemoteStatus reports whether the remote store is reachable.
func (g *Gateway) RemoteStatus(ctx context.Context) error {
	return g.remote.Ping(ctx)
}

// caller resolves the current owner and binds the cache to it, dropping
// weeks cached for anyone else. idErr reports a failed identity
// resolution; without an identity the cache is used as it stands. cacheErr
// is set when the cache could not be bound, and the cache must then be left
// alone.
func (g *Gateway) caller(ctx context.Context) (owner string, idErr, cacheErr error) {
	idErr = guard(func() error {
		id, err := g.identity.ResolveCallerID(ctx)
		owner = id
		return err
	})
	if idErr != nil {
		return "", idErr, nil
	}

	cacheErr = guard(func() error {
		cleared, err := g.cache.BindOwner(ctx, owner)
		if err != nil {
			return err
		}
		if cleared {
			g.log.Info(ctx, "identity changed, cached weeks dropped", "owner", owner)
		}
		return nil
	})
	if cacheErr != nil {
		g.log.Warn(ctx, "cache not bound to owner, bypassing it", "owner", owner, "err", cacheErr)
	}
	return owner, nil, cacheErr
}

// guard turns a panic inside fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic: %v", r)
		}
	}()
	return fn()
}
