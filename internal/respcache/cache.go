package respcache

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Evaluator returns the current decision for a cached error.
type Evaluator func(taxonomy.Error) bool

// ComputeFunc produces a fresh entry. Its error is never cached.
type ComputeFunc func(ctx context.Context) (Entry, error)

// Options configure a Cache.
type Options struct {
	TTL    time.Duration
	Logger *zap.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Cache deduplicates concurrent computes per key.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	group   singleflight.Group
}

// New wraps backend.
func New(backend Backend, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{backend: backend, ttl: opts.TTL, now: opts.Now, logger: opts.Logger.Named("respcache")}
}

// GetOrCompute returns the cached entry for key when it is fresh and every
// snapshot still evaluates to its recorded decision; otherwise it computes,
// stores and returns a new entry. The bool reports a hit.
func (c *Cache) GetOrCompute(ctx context.Context, key string, evaluate Evaluator, compute ComputeFunc) (Entry, bool, error) {
	if e, ok := c.lookup(ctx, key, evaluate); ok {
		return e, true, nil
	}
	type outcome struct {
		entry Entry
		hit   bool
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.lookup(ctx, key, evaluate); ok {
			return outcome{entry: e, hit: true}, nil
		}
		e, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		now := c.now()
		e.CreatedAt = now
		e.ExpiresAt = now.Add(c.ttl)
		if err := c.backend.Set(ctx, key, e); err != nil {
			c.logger.Warn("cache store failed", zap.String("cache_key", key), zap.Error(err))
		}
		return outcome{entry: e}, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	o := v.(outcome)
	return o.entry, o.hit, nil
}

func (c *Cache) lookup(ctx context.Context, key string, evaluate Evaluator) (Entry, bool) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache lookup failed", zap.String("cache_key", key), zap.Error(err))
		return Entry{}, false
	}
	if !ok || e.Expired(c.now()) {
		return Entry{}, false
	}
	for _, s := range e.Results {
		if evaluate != nil && evaluate(s.Error) != s.Sanitized {
			c.logger.Debug("cached decision changed", zap.String("cache_key", key), zap.String("slug", taxonomy.Slug(s.Error)))
			return Entry{}, false
		}
	}
	return e, true
}
