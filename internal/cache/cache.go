// Package cache provides the content-addressed result cache for the
// detection pipeline.
//
// Keys are hashes of the raw input bytes, so byte-identical re-submissions
// (mobile clients retrying uploads) resolve without re-running the cascade.
// Entries expire by TTL; when the cache is full the least recently used
// entry is evicted first.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a TTL + LRU bounded map. It is safe for concurrent use.
type Cache[V any] struct {
	ttl      time.Duration
	capacity int
	onEvict  func(key string)

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used

	// test seam
	now func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithEvictionHook registers a callback invoked (outside hot paths but under
// the cache lock) whenever an entry is evicted by capacity or expiry.
func WithEvictionHook[V any](fn func(key string)) Option[V] {
	return func(c *Cache[V]) { c.onEvict = fn }
}

// New creates a cache holding at most capacity entries for at most ttl each.
func New[V any](capacity int, ttl time.Duration, opts ...Option[V]) *Cache[V] {
	if capacity <= 0 {
		capacity = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key, if present and unexpired. A hit
// refreshes the entry's recency.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[V]) //nolint:forcetypeassert // list holds only *entry[V]
	if c.now().After(ent.expiresAt) {
		c.removeLocked(el, ent.key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// Put stores value under key, overwriting any previous entry for the same
// key. The entry expires after the cache TTL.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry[V]) //nolint:forcetypeassert // list holds only *entry[V]
		ent.value = value
		ent.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expires})
	c.entries[key] = el

	for len(c.entries) > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		ent := oldest.Value.(*entry[V]) //nolint:forcetypeassert // list holds only *entry[V]
		c.removeLocked(oldest, ent.key)
	}
}

// Len reports the number of entries currently stored, including entries that
// have expired but not yet been touched.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops all entries without firing the eviction hook.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Cache[V]) removeLocked(el *list.Element, key string) {
	c.order.Remove(el)
	delete(c.entries, key)
	if c.onEvict != nil {
		c.onEvict(key)
	}
}
