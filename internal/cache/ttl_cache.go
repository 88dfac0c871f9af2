package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultTTL is applied by Set.
	DefaultTTL = 15 * time.Second
	// DefaultSweepInterval is how often SweepRoutine runs when given a non-positive interval.
	DefaultSweepInterval = 300 * time.Second
)

// Observer receives cache events. internal/metrics implements it to export
// hit/miss counters and entry gauges to Prometheus.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheEntries(n int)
	CacheSwept(n int)
}

// Stats is a point-in-time snapshot used by health and info endpoints.
type Stats struct {
	Entries int    `json:"entry_count"`
	Hits    uint64 `json:"hit_count"`
	Misses  uint64 `json:"miss_count"`
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an expiring key/value store safe for concurrent use.
//
// Expiry is enforced on read: Get never returns an entry whose deadline has
// passed, whether or not a sweep has run. Sweep only bounds memory.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	defaultTTL time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64

	now      func() time.Time
	observer Observer
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
}

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver registers an Observer notified on hits, misses and sweeps.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New creates a TTLCache. A non-positive defaultTTL falls back to DefaultTTL.
func New[K comparable, V any](defaultTTL time.Duration, opts ...Option) *TTLCache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &TTLCache[K, V]{
		entries:    make(map[K]entry[V]),
		defaultTTL: defaultTTL,
		now:        o.now,
		observer:   o.observer,
	}
}

// DefaultTTL returns the TTL used by Set.
func (c *TTLCache[K, V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the value stored under key. An expired entry is removed and
// reported as absent.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !now.Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	n := len(c.entries)
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		if c.observer != nil {
			c.observer.CacheMiss()
			c.observer.CacheEntries(n)
		}
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit()
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, replacing any previous entry. The
// expiry is measured from this call. A non-positive ttl uses the default.
func (c *TTLCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
	n := len(c.entries)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheEntries(n)
	}
}

// Delete removes key. It reports whether an entry was present.
func (c *TTLCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheEntries(n)
	}
	return ok
}

// DeleteFunc removes every entry whose key matches pred and returns how many were removed.
func (c *TTLCache[K, V]) DeleteFunc(pred func(K) bool) int {
	c.mu.Lock()
	removed := 0
	for k := range c.entries {
		if pred(k) {
			delete(c.entries, k)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheEntries(n)
	}
	return removed
}

// Clear drops all entries and returns how many were removed. Counters are kept.
func (c *TTLCache[K, V]) Clear() int {
	return c.DeleteFunc(func(K) bool { return true })
}

// Sweep removes every entry whose deadline has passed and returns the count.
func (c *TTLCache[K, V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CacheSwept(removed)
		c.observer.CacheEntries(n)
	}
	return removed
}

// Stats returns the current entry count and hit/miss counters. Expired
// entries that have not been swept yet are included in Entries.
func (c *TTLCache[K, V]) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// SweepRoutine runs Sweep every interval until ctx is cancelled.
//
// ctx: Context owning the routine; cancel it on shutdown.
// interval: Time between sweeps. Non-positive values use DefaultSweepInterval.
// logger: Receives a debug line per sweep that removed something. May be nil.
func (c *TTLCache[K, V]) SweepRoutine(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := c.Sweep()
			if logger != nil && removed > 0 {
				logger.Debug("swept expired cache entries", "removed", removed, "remaining", c.Stats().Entries)
			}
		case <-ctx.Done():
			if logger != nil {
				logger.Info("Stopping cache sweep routine")
			}
			return
		}
	}
}
