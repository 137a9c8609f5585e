// Package cache provides a count-bounded LRU cache with byte accounting and
// the two specializations stripes keeps in memory: raw year data and rendered
// tiles. The two caches evict independently; a resize invalidates pixels, not
// data.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of an LRU.
type Stats struct {
	NumItems   int
	TotalBytes int64
	TotalKB    float64
	Labels     []string // most recently used first
	Hits       uint64
	Misses     uint64
	Evictions  uint64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	size      int64
	label     string
	expiresAt time.Time // zero means no expiry
	hits      uint64
}

// LRU is a cache bounded by entry count. Access order is refreshed by both
// Get and Set; the least recently accessed entry is evicted first. Byte sizes
// are tracked for reporting only and never drive eviction.
//
// All methods are safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu         sync.Mutex
	maxItems   int
	order      *list.List // front = most recently used
	items      map[K]*list.Element
	totalBytes int64

	hits, misses, evictions uint64

	now     func() time.Time
	onEvict func(key K, label string)
}

// Option configures an LRU.
type Option[K comparable, V any] func(*LRU[K, V])

// WithClock overrides time.Now for expiry checks.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *LRU[K, V]) { c.now = now }
}

// WithEvictCallback is invoked, outside the lock, for each capacity eviction.
func WithEvictCallback[K comparable, V any](fn func(key K, label string)) Option[K, V] {
	return func(c *LRU[K, V]) { c.onEvict = fn }
}

// NewLRU creates a cache holding at most maxItems entries. maxItems < 1 is
// treated as 1.
func NewLRU[K comparable, V any](maxItems int, opts ...Option[K, V]) *LRU[K, V] {
	if maxItems < 1 {
		maxItems = 1
	}
	c := &LRU[K, V]{
		maxItems: maxItems,
		order:    list.New(),
		items:    make(map[K]*list.Element),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key. Expired entries are removed and reported as
// missing.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(el)
		c.misses++
		return zero, false
	}
	e.hits++
	c.hits++
	c.order.MoveToFront(el)
	return e.value, true
}

// Set inserts or replaces key, then evicts least recently used entries until
// the count bound holds. A zero expiresAt means the entry never expires.
func (c *LRU[K, V]) Set(key K, value V, sizeBytes int64, label string, expiresAt time.Time) {
	var evicted []*entry[K, V]

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.totalBytes -= e.size
		e.value, e.size, e.label, e.expiresAt = value, sizeBytes, label, expiresAt
		c.totalBytes += sizeBytes
		c.order.MoveToFront(el)
	} else {
		e := &entry[K, V]{key: key, value: value, size: sizeBytes, label: label, expiresAt: expiresAt}
		c.items[key] = c.order.PushFront(e)
		c.totalBytes += sizeBytes
	}
	for c.order.Len() > c.maxItems {
		el := c.order.Back()
		evicted = append(evicted, el.Value.(*entry[K, V]))
		c.removeElement(el)
		c.evictions++
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e.key, e.label)
		}
	}
}

// Has reports whether a live entry exists for key without refreshing its
// access order.
func (c *LRU[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	if c.expired(el.Value.(*entry[K, V])) {
		c.removeElement(el)
		return false
	}
	return true
}

// Delete removes key if present.
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok {
		c.removeElement(el)
	}
	return ok
}

// Clear drops every entry. Hit and miss counters are kept.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element)
	c.totalBytes = 0
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// EntryHits returns the per-entry hit counter for key.
func (c *LRU[K, V]) EntryHits(key K) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[K, V]).hits
	}
	return 0
}

// Stats returns a snapshot of counts, bytes and labels.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	labels := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		labels = append(labels, el.Value.(*entry[K, V]).label)
	}
	return Stats{
		NumItems:   c.order.Len(),
		TotalBytes: c.totalBytes,
		TotalKB:    float64(c.totalBytes) / 1024,
		Labels:     labels,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

func (c *LRU[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// removeElement must be called with mu held.
func (c *LRU[K, V]) removeElement(el *list.Element) {
	e := el.Value.(*entry[K, V])
	c.order.Remove(el)
	delete(c.items, e.key)
	c.totalBytes -= e.size
}
