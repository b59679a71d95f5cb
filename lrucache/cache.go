/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned when a cache is constructed with a non-positive capacity.
var ErrInvalidCapacity = errors.New("capacity must be greater than 0")

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache represents a bounded key-value store with LRU eviction and Prometheus metrics.
// The front of the internal list is the least recently used entry, the back is the most recently used one.
type LRUCache[K comparable, V any] struct {
	capacity int

	mu      sync.Mutex
	lruList *list.List
	cache   map[K]*list.Element // map of cache entries, value is a lruList element

	metricsCollector MetricsCollector
}

// New creates a new LRUCache with the provided capacity and metrics collector.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func New[K comparable, V any](capacity int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &LRUCache[K, V]{
		capacity:         capacity,
		lruList:          list.New(),
		cache:            make(map[K]*list.Element, capacity),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
// A hit promotes the key to the most recently used position, a miss leaves the ordering untouched.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, hit := c.cache[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToBack(elem)
	c.metricsCollector.IncHits()
	return elem.Value.(*cacheEntry[K, V]).value, true
}

// Put stores a value under the provided key and makes the key the most recently used one.
// If the key is new and the cache is full, the least recently used entry is evicted first.
// It reports whether an eviction happened.
func (c *LRUCache[K, V]) Put(key K, value V) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		elem.Value.(*cacheEntry[K, V]).value = value
		c.lruList.MoveToBack(elem)
		return false
	}

	if len(c.cache) >= c.capacity {
		if c.removeOldest() != nil {
			evicted = true
			c.metricsCollector.AddEvictions(1)
		}
	}
	c.cache[key] = c.lruList.PushBack(&cacheEntry[K, V]{key: key, value: value})
	c.metricsCollector.SetAmount(len(c.cache))
	return evicted
}

// Peek returns a value from the cache by the provided key without updating its recency.
func (c *LRUCache[K, V]) Peek(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, hit := c.cache[key]; hit {
		return elem.Value.(*cacheEntry[K, V]).value, true
	}
	return value, false
}

// Keys returns resident keys ordered from the least to the most recently used.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.cache))
	for elem := c.lruList.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*cacheEntry[K, V]).key)
	}
	return keys
}

// Range calls fn for every resident entry, from the least to the most recently used,
// until fn returns false.
// It iterates over a point-in-time copy, so fn may call other cache methods.
// Iteration does not count as a use and never changes the ordering.
func (c *LRUCache[K, V]) Range(fn func(key K, value V) bool) {
	c.mu.Lock()
	entries := make([]cacheEntry[K, V], 0, len(c.cache))
	for elem := c.lruList.Front(); elem != nil; elem = elem.Next() {
		entries = append(entries, *elem.Value.(*cacheEntry[K, V]))
	}
	c.mu.Unlock()

	for i := range entries {
		if !fn(entries[i].key, entries[i].value) {
			return
		}
	}
}

// Len returns the number of items in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Cap returns the maximum number of items the cache may hold.
func (c *LRUCache[K, V]) Cap() int {
	return c.capacity
}

func (c *LRUCache[K, V]) removeOldest() *cacheEntry[K, V] {
	elem := c.lruList.Front()
	if elem == nil {
		return nil
	}
	c.lruList.Remove(elem)
	entry := elem.Value.(*cacheEntry[K, V])
	delete(c.cache, entry.key)
	return entry
}
