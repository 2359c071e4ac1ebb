package cache

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// ComputeFunc produces the value to cache on a miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Store is the get-or-compute primitive adapters consume: return the cached
// value for key if present and unexpired, otherwise compute it, keep it until
// expiry and return it.
type Store interface {
	Remember(ctx context.Context, key string, expiry time.Time, compute ComputeFunc) ([]byte, error)
}

// Backend is the raw key/value storage behind a Cache.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, expiry time.Time) error
}

// Cache implements Store over a Backend. Concurrent misses for one key are
// coalesced so compute runs once per process.
type Cache struct {
	backend Backend
	group   singleflight.Group
	tracer  trace.Tracer
	logger  *logging.Logger
	metrics *metrics.ProviderMetrics
	now     func() time.Time
}

var _ Store = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

func WithLogger(logger *logging.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.ProviderMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Cache) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithClock overrides the time source used to skip already expired writes.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Cache {
	if backend == nil {
		panic("cache: backend cannot be nil")
	}
	c := &Cache{
		backend: backend,
		tracer:  otel.Tracer("telemedicine.internal.cache"),
		logger:  logging.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the underlying storage.
func (c *Cache) Backend() Backend {
	return c.backend
}

// Remember returns the cached value or computes and stores it. Compute errors
// are returned and never cached. Backend failures degrade to computing.
func (c *Cache) Remember(ctx context.Context, key string, expiry time.Time, compute ComputeFunc) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "cache.remember", trace.WithAttributes(
		attribute.String("cache.store", c.backend.Name()),
		attribute.String("cache.key", key),
	))
	defer span.End()

	if !expiry.After(c.now()) {
		c.metrics.ObserveCacheLookup(c.backend.Name(), "bypass")
		return compute(ctx)
	}

	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("cache read failed", "store", c.backend.Name(), "key", key, "error", err)
	}
	if ok {
		c.metrics.ObserveCacheLookup(c.backend.Name(), "hit")
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return value, nil
	}
	c.metrics.ObserveCacheLookup(c.backend.Name(), "miss")
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := c.group.Do(key, func() (any, error) {
		computed, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Set(ctx, key, computed, expiry); err != nil {
			span.RecordError(err)
			c.logger.Warn("cache write failed", "store", c.backend.Name(), "key", key, "error", err)
		}
		return computed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) String() string {
	return fmt.Sprintf("cache(%s)", c.backend.Name())
}
