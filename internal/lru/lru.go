package lru

import (
	"container/list"
	"sync"
	"time"
)

// EvictCallback is used to get a callback when a cache entry is evicted
type EvictCallback[K comparable, V any] func(key K, value V)

// LRU is a thread-safe least recently used cache whose entries may also
// expire after a fixed ttl. Expired entries are dropped when touched or
// listed; there is no background goroutine.
type LRU[K comparable, V any] struct {
	size    int
	ttl     time.Duration
	onEvict EvictCallback[K, V]
	now     func() time.Time

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // front is most recent
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// NewLRU returns a new cache holding at most size entries; size <= 0
// means unbounded. ttl <= 0 disables expiry.
func NewLRU[K comparable, V any](size int, onEvict EvictCallback[K, V], ttl time.Duration) *LRU[K, V] {
	return &LRU[K, V]{
		size:    size,
		ttl:     ttl,
		onEvict: onEvict,
		now:     time.Now,
		items:   make(map[K]*list.Element),
		order:   list.New(),
	}
}

func (c *LRU[K, V]) expired(e *entry[K, V]) bool {
	return c.ttl > 0 && !c.now().Before(e.expiresAt)
}

// Add adds a value to the cache, returning true if an eviction occurred.
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value, e.expiresAt = value, expiresAt
		c.order.MoveToFront(el)
		return false
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	if c.size > 0 && c.order.Len() > c.size {
		c.removeElement(c.order.Back())
		return true
	}
	return false
}

// Get looks up a key's value and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return value, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.removeElement(el)
		return value, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Peek returns a key's value without updating its recency.
func (c *LRU[K, V]) Peek(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		if e := el.Value.(*entry[K, V]); !c.expired(e) {
			return e.value, true
		}
	}
	return value, false
}

// Remove removes the provided key from the cache.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
		return true
	}
	return false
}

// Purge clears the cache completely.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.order.Len() > 0 {
		c.removeElement(c.order.Back())
	}
}

// Keys returns the live keys, oldest first.
func (c *LRU[K, V]) Keys() []K {
	var keys []K
	c.each(func(e *entry[K, V]) { keys = append(keys, e.key) })
	return keys
}

// Values returns the live values, oldest first.
func (c *LRU[K, V]) Values() []V {
	var values []V
	c.each(func(e *entry[K, V]) { values = append(values, e.value) })
	return values
}

// Len returns the number of live entries.
func (c *LRU[K, V]) Len() int {
	n := 0
	c.each(func(*entry[K, V]) { n++ })
	return n
}

// each visits live entries oldest first, dropping expired ones.
func (c *LRU[K, V]) each(fn func(*entry[K, V])) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if e := el.Value.(*entry[K, V]); c.expired(e) {
			c.removeElement(el)
		} else {
			fn(e)
		}
		el = prev
	}
}

func (c *LRU[K, V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K, V])
	delete(c.items, e.key)
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
