package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/courier/internal/metrics"
)

const (
	DefaultStaleTime = 5 * time.Minute
	DefaultCacheTime = 10 * time.Minute
)

// Key is a composite cache key such as {"orders", branchID, date}. Keys are
// compared by value: two keys with equal elements address the same entry.
type Key []any

// String returns the canonical form used for lookups.
func (k Key) String() string {
	encoded, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%#v", []any(k))
	}
	return string(encoded)
}

func (k Key) head() string {
	if len(k) == 0 {
		return ""
	}
	return Key{k[0]}.String()
}

// Policy sets the two time horizons of an entry. Zero values use the defaults.
type Policy struct {
	StaleTime time.Duration
	CacheTime time.Duration
}

func (p Policy) normalized() Policy {
	if p.StaleTime <= 0 {
		p.StaleTime = DefaultStaleTime
	}
	if p.CacheTime <= 0 {
		p.CacheTime = DefaultCacheTime
	}
	if p.CacheTime < p.StaleTime {
		p.CacheTime = p.StaleTime
	}
	return p
}

// Entry is what Get hands back for a live key.
type Entry struct {
	Data      any
	IsStale   bool
	FetchedAt time.Time
}

type entry struct {
	data      any
	head      string
	fetchedAt time.Time
	staleAt   time.Time
	expiresAt time.Time
}

// Cache is a key/value store where every entry is fresh until staleAt,
// stale-but-usable until expiresAt, and gone afterwards. Expired entries are
// evicted lazily on read. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	clock    clockwork.Clock
	recorder metrics.Recorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Cache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		clock:    clockwork.NewRealClock(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key, or false when it is missing or expired.
func (c *Cache) Get(key Key) (Entry, bool) {
	e, result := c.lookup(key)
	c.recorder.IncCacheLookup(result)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

func (c *Cache) lookup(key Key) (*Entry, string) {
	k := key.String()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[k]
	if !ok {
		return nil, metrics.LookupMiss
	}
	if !now.Before(ent.expiresAt) {
		delete(c.entries, k)
		return nil, metrics.LookupExpired
	}
	stale := !now.Before(ent.staleAt)
	result := metrics.LookupFresh
	if stale {
		result = metrics.LookupStale
	}
	return &Entry{Data: ent.data, IsStale: stale, FetchedAt: ent.fetchedAt}, result
}

// Set stores data under key, restarting both horizons from now.
func (c *Cache) Set(key Key, data any, policy Policy) {
	policy = policy.normalized()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = &entry{
		data:      data,
		head:      key.head(),
		fetchedAt: now,
		staleAt:   now.Add(policy.StaleTime),
		expiresAt: now.Add(policy.CacheTime),
	}
}

// Invalidate marks the entry stale without removing it, so it can still serve
// as fallback data until it expires.
func (c *Cache) Invalidate(key Key) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key.String()]; ok {
		markStale(ent, now)
	}
}

// InvalidatePrefix marks stale every entry whose first key element equals first.
func (c *Cache) InvalidatePrefix(first any) {
	head := Key{first}.String()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ent := range c.entries {
		if ent.head == head {
			markStale(ent, now)
		}
	}
}

func markStale(ent *entry, now time.Time) {
	if ent.staleAt.After(now) {
		ent.staleAt = now
	}
	if ent.fetchedAt.After(ent.staleAt) {
		ent.staleAt = ent.fetchedAt
	}
}

// Remove deletes the entry for key.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
}

// Clear deletes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len reports the number of stored entries, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
