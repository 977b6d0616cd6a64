// Package statscache memoizes expensive aggregate queries with a fixed
// time-to-live.
//
// Each Cache wraps exactly one producer function and holds at most one value.
// Expiry is lazy: nothing refreshes in the background, a read at or after
// computedAt+TTL recomputes. Concurrent reads that miss share a single
// producer call through singleflight, so a slow aggregate query runs once no
// matter how many callers are waiting for it.
//
// Entry lifecycle:
//
//	Empty --Get--> Computing --ok--> Fresh --TTL elapsed, Get--> Computing --ok--> Fresh
//
// A failed computation leaves the entry as it was (Empty, or the previous
// stale value) and the error is returned to every waiter. The next Get
// retries. Invalidate during a computation discards its result: the waiters
// already joined still receive it, but it is never stored. There is no
// producer timeout: a hanging producer blocks all waiters of that cache, and
// only that cache.
package statscache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed value stays fresh.
const DefaultTTL = time.Hour

// Producer computes the value a Cache memoizes.
type Producer[T any] func(ctx context.Context) (T, error)

// entry is the cached value and the time it was computed.
type entry[T any] struct {
	value      T
	computedAt time.Time
}

// Cache is a single-value TTL memoization of one producer.
//
// Thread-safety: all methods are safe for concurrent use. Each Cache has its
// own lock and singleflight group, so independent caches never block each
// other.
type Cache[T any] struct {
	name     string
	producer Producer[T]
	ttl      time.Duration
	clock    clockwork.Clock
	metrics  *Metrics
	logger   *slog.Logger

	mu    sync.RWMutex
	entry *entry[T]
	gen   uint64 // bumped by Invalidate
	group singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	refreshes atomic.Uint64
	failures  atomic.Uint64
}

// New creates a cache named name around producer. The name labels logs and
// metrics.
func New[T any](name string, producer Producer[T], opts ...Option) *Cache[T] {
	cfg := config{
		ttl:   DefaultTTL,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Cache[T]{
		name:     name,
		producer: producer,
		ttl:      cfg.ttl,
		clock:    cfg.clock,
		metrics:  cfg.metrics,
		logger:   cfg.logger.With("metric", name),
	}
}

// Name returns the metric name the cache was created with.
func (c *Cache[T]) Name() string {
	return c.name
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value while it is fresh, and otherwise recomputes
// it. Concurrent callers that find the entry empty or expired share one
// producer call and all observe its result or its error.
//
// The producer runs with a context detached from the caller's cancellation,
// so one waiter giving up does not fail the others.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	if v, ok := c.fresh(); ok {
		c.hits.Add(1)
		c.metrics.observeRequest(c.name, true)
		return v, nil
	}
	c.misses.Add(1)
	c.metrics.observeRequest(c.name, false)

	res, err, shared := c.group.Do(c.name, func() (any, error) {
		// Another flight may have finished between our check and Do.
		if v, ok := c.fresh(); ok {
			return v, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		c.logger.Debug("joined in-flight refresh")
	}
	v, _ := res.(T)
	return v, nil
}

// Invalidate drops the cached value. The next Get recomputes, even while
// an older computation is still running.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.gen++
	c.mu.Unlock()
	c.group.Forget(c.name)
}

// ComputedAt returns when the current value was computed, and false if the
// cache has never been filled.
func (c *Cache[T]) ComputedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return time.Time{}, false
	}
	return c.entry.computedAt, true
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Refreshes: c.refreshes.Load(),
		Failures:  c.failures.Load(),
	}
}

// fresh returns the cached value if there is one and now < computedAt+TTL.
func (c *Cache[T]) fresh() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil || !c.clock.Now().Before(c.entry.computedAt.Add(c.ttl)) {
		var zero T
		return zero, false
	}
	return c.entry.value, true
}

// refresh runs the producer and stores its value. Only called from inside
// the singleflight group.
func (c *Cache[T]) refresh(ctx context.Context) (T, error) {
	start := c.clock.Now()
	c.logger.Debug("refreshing cached statistic")

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	v, err := c.producer(context.WithoutCancel(ctx))
	elapsed := c.clock.Since(start)
	if err != nil {
		c.failures.Add(1)
		c.metrics.observeRefresh(c.name, false, elapsed)
		c.logger.Warn("refresh failed, keeping previous entry", "error", err, "duration", elapsed)
		var zero T
		return zero, fmt.Errorf("refresh %s: %w", c.name, err)
	}

	c.mu.Lock()
	stale := c.gen != gen
	if !stale {
		c.entry = &entry[T]{value: v, computedAt: c.clock.Now()}
	}
	c.mu.Unlock()
	if stale {
		c.logger.Debug("discarding refresh started before invalidation", "duration", elapsed)
	}

	c.refreshes.Add(1)
	c.metrics.observeRefresh(c.name, true, elapsed)
	c.logger.Debug("refresh complete", "duration", elapsed)
	return v, nil
}
