// Package cache memoizes signal fetches per argument key with a fixed TTL.
package cache

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/suivideflotte/fleet-intel/app/metrics"
	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
	group   *Group
}

type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithGroup registers the cache so that Group.ClearAll reaches it.
func WithGroup(g *Group) Option {
	return func(o *options) {
		o.group = g
	}
}

// Cache stores one value per key until its TTL elapses. There is no size bound
// and no eviction besides expiry and Clear. Concurrent misses on the same key
// share a single fetch.
type Cache[V any] struct {
	name    string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	mu         sync.Mutex
	entries    map[string]entry[V]
	generation uint64

	flight singleflight.Group
}

func New[V any](name string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		name:    name,
		ttl:     ttl,
		now:     o.now,
		metrics: o.metrics,
		entries: make(map[string]entry[V]),
	}

	if o.group != nil {
		o.group.Register(c)
	}

	return c
}

func (c *Cache[V]) Name() string {
	return c.name
}

func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value for key, calling fetch and storing its result
// when the key is absent or expired.
func (c *Cache[V]) Get(key string, fetch func() V) V {
	c.mu.Lock()
	if value, ok := c.lookupLocked(key); ok {
		c.mu.Unlock()
		c.metrics.ObserveCacheLookup(c.name, true)
		return value
	}
	generation := c.generation
	c.mu.Unlock()

	c.metrics.ObserveCacheLookup(c.name, false)

	// The generation is part of the flight key so that callers arriving after
	// a Clear never join a fetch started before it.
	flightKey := fmt.Sprintf("%d|%s", generation, key)
	result, _, shared := c.flight.Do(flightKey, func() (any, error) {
		c.mu.Lock()
		if value, ok := c.lookupLocked(key); ok {
			c.mu.Unlock()
			return value, nil
		}
		c.mu.Unlock()

		value := fetch()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == generation {
			c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
		}
		return value, nil
	})

	if shared {
		slog.Debug("Cache fetch shared", "cache", c.name, "key", key)
	}

	return result.(V)
}

// Peek returns the cached value without fetching.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key)
}

// Clear drops every entry. Fetches in flight at the time of the call do not
// store their results.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
	c.generation++
}

// Len counts entries, including expired ones not yet replaced.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) lookupLocked(key string) (V, bool) {
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}
