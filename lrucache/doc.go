/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides a bounded in-memory key-value store with LRU eviction and Prometheus metrics.
//
// Both Get (on hit) and Put count as a use of a key. A failed Get is not a use.
// When Put adds a new key to a full cache, exactly one entry, the least recently used one, is evicted.
// There is no explicit removal: entries leave the cache only through eviction.
package lrucache
