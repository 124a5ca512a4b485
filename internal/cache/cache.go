// Package cache implements the bounded, time-expiring scan verdict cache.
// Entries are keyed by normalized URL and persisted after every mutation so
// the cache survives restarts of the background context.
// Supports both local file and Redis persistence backends.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"linkguard/internal/core"
)

const (
	// DefaultTTL is how long a cached verdict stays valid for reads.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxEntries bounds the cache size; oldest entries are evicted
	// when the bound is exceeded.
	DefaultMaxEntries = 100

	// DefaultSweepAge is the age threshold for the daily cleanup sweep.
	DefaultSweepAge = 7 * 24 * time.Hour
)

// Entry is one cached verdict.
type Entry struct {
	Result    core.Result `json:"result"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store persists cache snapshots across restarts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load retrieves the persisted snapshot.
	// Returns nil, nil if no snapshot exists yet.
	Load(ctx context.Context) (map[string]Entry, error)

	// Save stores the snapshot.
	Save(ctx context.Context, entries map[string]Entry) error

	// Close releases any resources held by the store.
	Close() error
}

// Options configures a Cache.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Store      Store            // optional; nil disables persistence
	Now        func() time.Time // optional clock override for tests
}

// Cache is the in-memory scan verdict cache owned by the background context.
// All methods are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
	store      Store
	now        func() time.Time
}

// New creates a Cache with the given options.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		entries:    make(map[string]Entry),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		store:      opts.Store,
		now:        opts.Now,
	}
}

// Restore loads the persisted snapshot into memory. Called once at startup.
// A storage failure is logged and treated as an empty cache.
func (c *Cache) Restore(ctx context.Context) {
	if c.store == nil {
		return
	}
	snapshot, err := c.store.Load(ctx)
	if err != nil {
		slog.Warn("failed to restore scan cache, starting empty", "error", err)
		return
	}
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	c.entries = snapshot
	c.mu.Unlock()
	slog.Info("scan cache restored", "entries", len(snapshot))
}

// Get looks up the verdict for a URL. Returns a miss if the entry is absent
// or expired. Expired entries are not deleted on read; only the sweep and
// size-bounded eviction remove entries.
func (c *Cache) Get(rawURL string) (core.Result, bool) {
	key := core.NormalizeURL(rawURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return core.Result{}, false
	}
	if c.now().Sub(entry.Timestamp) >= c.ttl {
		return core.Result{}, false
	}
	return entry.Result, true
}

// Put stores a verdict, overwriting any prior entry for the same key.
// If the cache then exceeds its bound, the oldest entries are evicted until
// the bound holds again. The snapshot is persisted after the update.
func (c *Cache) Put(ctx context.Context, rawURL string, result core.Result) {
	key := core.NormalizeURL(rawURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Result: result, Timestamp: c.now()}
	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
	c.persistLocked(ctx)
}

// Sweep removes all entries older than maxAge. Invoked once daily.
// Returns the number of entries removed.
func (c *Cache) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if !entry.Timestamp.After(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked(ctx)
	}
	c.mu.Unlock()

	if removed > 0 {
		slog.Info("scan cache swept", "removed", removed, "max_age", maxAge)
	}
	return removed
}

// Clear drops every entry and persists the empty snapshot.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.persistLocked(ctx)
}

// Len returns the current entry count, including expired-but-unswept entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close releases the persistence backend.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// evictOldestLocked removes the entry with the smallest timestamp.
// Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.Timestamp.Before(oldest) {
			oldestKey = key
			oldest = entry.Timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// persistLocked writes the current entries to the backing store. Running
// under c.mu keeps snapshots reaching the store in mutation order, so the
// persisted state is always the newest one. A storage failure is logged and
// otherwise ignored so a cache outage never breaks the scan flow.
// Caller must hold c.mu.
func (c *Cache) persistLocked(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, c.entries); err != nil {
		slog.Warn("failed to persist scan cache", "error", err, "entries", len(c.entries))
	}
}
