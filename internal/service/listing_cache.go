package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studybot/pkg/errors"
)

// ListingStore is the key-value backend behind the listing cache.
type ListingStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ListingCache memoises event listings between writes. Event mutations drop
// every cached listing; the TTL bounds how long a just-started event lingers.
//
// A ListingCache without a store, and a nil *ListingCache, behave as an
// always-missing cache.
type ListingCache struct {
	store   ListingStore
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewListingCache wraps store. store may be nil to disable caching.
func NewListingCache(store ListingStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingCache{store: store, ttl: ttl, metrics: metrics, logger: logger}
}

// Enabled reports whether lookups can hit.
func (c *ListingCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get loads the listing stored under key into dest. Backend failures are
// logged and surface as a miss.
func (c *ListingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := c.store.Get(ctx, key, dest)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		c.metrics.RecordCacheLookup(true, false, elapsed)
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		c.metrics.RecordCacheLookup(false, false, elapsed)
		return false, nil
	default:
		c.metrics.RecordCacheLookup(false, true, elapsed)
		c.logger.Warn("listing cache read failed", zap.String("key", key), zap.Error(err))
		return false, nil
	}
}

// Set stores a listing. A non-positive ttl uses the cache default.
func (c *ListingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	start := time.Now()
	err := c.store.Set(ctx, key, value, ttl)
	c.metrics.ObserveCacheOp("set", time.Since(start))
	if err != nil {
		c.logger.Warn("listing cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every listing matching pattern.
func (c *ListingCache) Invalidate(ctx context.Context, pattern string) error {
	if !c.Enabled() {
		return nil
	}
	start := time.Now()
	err := c.store.DeleteByPattern(ctx, pattern)
	c.metrics.ObserveCacheOp("invalidate", time.Since(start))
	return err
}
