package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures a cache.
type Config struct {
	// Name identifies this cache for metrics/logging.
	Name string
	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means entries do not expire.
	DefaultTTL time.Duration
	// MaxSize bounds the number of entries. Zero means unbounded.
	MaxSize int
	// ResetTTLOnGet renews an entry's expiration on every read (sliding
	// expiration).
	ResetTTLOnGet bool
	// PrioritizeRecentlyUsed selects LRU eviction instead of FIFO.
	PrioritizeRecentlyUsed bool
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

type entry[V any] struct {
	value     V
	ttl       time.Duration
	expiresAt time.Time // zero means no expiration
	// insertedSeq and accessSeq order entries for eviction. Sequence
	// numbers avoid clock-resolution ties between close operations.
	insertedSeq uint64
	accessSeq   uint64
	accessedAt  time.Time
}

type inflight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Cache memoizes idempotent read results with TTL and capacity bounds.
type Cache[V any] struct {
	config Config

	mu      sync.Mutex
	entries map[string]*entry[V]
	calls   map[string]*inflight[V]
	seq     uint64
	hits    uint64
	misses  uint64

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New creates a cache.
func New[V any](config Config) *Cache[V] {
	return &Cache[V]{
		config:  config,
		entries: make(map[string]*entry[V]),
		calls:   make(map[string]*inflight[V]),
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// get is the lock-held body of Get, shared with GetOrCompute.
func (c *Cache[V]) get(key string) (V, bool) {
	var zero V

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	now := c.now()
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}

	c.seq++
	e.accessSeq = c.seq
	e.accessedAt = now
	if c.config.ResetTTLOnGet && e.ttl > 0 {
		e.expiresAt = now.Add(e.ttl)
	}

	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.config.DefaultTTL)
}

// SetTTL stores value under key with an explicit TTL. Zero means no
// expiration.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value, ttl)
}

// set is the lock-held body of SetTTL, shared with GetOrCompute.
func (c *Cache[V]) set(key string, value V, ttl time.Duration) {
	now := c.now()

	if _, exists := c.entries[key]; !exists && c.config.MaxSize > 0 && len(c.entries) >= c.config.MaxSize {
		c.evictOne()
	}

	c.seq++
	e := &entry[V]{
		value:       value,
		ttl:         ttl,
		insertedSeq: c.seq,
		accessSeq:   c.seq,
		accessedAt:  now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.entries[key] = e
}

// evictOne removes exactly one entry: the least-recently-used when
// PrioritizeRecentlyUsed, otherwise the oldest by insertion. Ties fall back
// to insertion order. Callers hold mu.
func (c *Cache[V]) evictOne() {
	var victim string
	var victimRank uint64
	var victimInserted uint64
	first := true

	for key, e := range c.entries {
		rank := e.insertedSeq
		if c.config.PrioritizeRecentlyUsed {
			rank = e.accessSeq
		}
		if first || rank < victimRank || (rank == victimRank && e.insertedSeq < victimInserted) {
			victim = key
			victimRank = rank
			victimInserted = e.insertedSeq
			first = false
		}
	}

	if !first {
		delete(c.entries, victim)
	}
}

// Has reports whether key is present and unexpired, without touching access
// order or counters.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries and resets the counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.hits = 0
	c.misses = 0
}

// Len returns the number of stored entries, including any not yet lazily
// expired.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache effectiveness counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:    len(c.entries),
		MaxSize: c.config.MaxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// GetOrCompute returns the cached value for key, or computes and stores it.
// Concurrent callers missing on the same key share one computation; the
// losers block until the winner finishes or their context is cancelled.
// Failed computations are not cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	return c.GetOrComputeTTL(ctx, key, c.config.DefaultTTL, fn)
}

// GetOrComputeTTL is GetOrCompute with an explicit TTL for the stored value.
func (c *Cache[V]) GetOrComputeTTL(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (V, error)) (V, error) {
	var zero V

	c.mu.Lock()
	if v, ok := c.get(key); ok {
		c.mu.Unlock()
		return v, nil
	}

	if call, ok := c.calls[key]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.val, call.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	call := &inflight[V]{done: make(chan struct{})}
	c.calls[key] = call
	c.mu.Unlock()

	val, err := fn(ctx)

	c.mu.Lock()
	if err == nil {
		c.set(key, val, ttl)
	}
	delete(c.calls, key)
	c.mu.Unlock()

	call.val = val
	call.err = err
	close(call.done)

	return val, err
}
