/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"strconv"
	"testing"
)

func BenchmarkLRUCache_Get(b *testing.B) {
	cache, err := New[string, string](3, nil)
	if err != nil {
		b.Fatal(err)
	}
	cache.Put("B", "value_b")
	cache.Put("C", "value_c")
	cache.Put("D", "value_d")

	for _, key := range []string{"B", "C", "D", "missing"} {
		b.Run(key, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				cache.Get(key)
			}
		})
	}
}

func BenchmarkLRUCache_Put(b *testing.B) {
	cache, err := New[int, string](1024, NewPrometheusMetrics())
	if err != nil {
		b.Fatal(err)
	}
	values := make([]string, 4096)
	for i := range values {
		values[i] = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := i % len(values)
		cache.Put(key, values[key])
	}
}
