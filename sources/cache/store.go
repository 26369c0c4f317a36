package cache

import (
	"sync"
	"time"
)

// Store is a bounded key/value cache with TTL checked at read time.
// When the capacity is exceeded the oldest half of the entries is dropped
// in one sweep, insertion order, not strict LRU. A zero TTL disables
// expiry. Shared by the classifier verdict cache and the in-memory tier of
// the translation cache.
type Store[V any] struct {
	mu       sync.Mutex
	entries  map[string]record[V]
	order    []string
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type record[V any] struct {
	value     V
	createdAt time.Time
}

func NewStore[V any](capacity int, ttl time.Duration) *Store[V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store[V]{
		entries:  make(map[string]record[V]),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (x *Store[V]) WithClock(now func() time.Time) *Store[V] {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.now = now
	return x
}

func (x *Store[V]) Get(key string) (V, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var zero V
	rec, ok := x.entries[key]
	if !ok {
		return zero, false
	}
	if x.ttl > 0 && x.now().Sub(rec.createdAt) > x.ttl {
		return zero, false
	}
	return rec.value, true
}

func (x *Store[V]) Set(key string, value V) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.entries[key]; !exists {
		x.order = append(x.order, key)
	}
	x.entries[key] = record[V]{value: value, createdAt: x.now()}

	if len(x.order) > x.capacity {
		x.evictOldestHalf()
	}
}

func (x *Store[V]) evictOldestHalf() {
	cut := len(x.order) / 2
	for _, key := range x.order[:cut] {
		delete(x.entries, key)
	}
	x.order = append([]string{}, x.order[cut:]...)
}

func (x *Store[V]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

func (x *Store[V]) Remove(key string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, exists := x.entries[key]; !exists {
		return
	}
	delete(x.entries, key)
	for i, k := range x.order {
		if k == key {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
}

func (x *Store[V]) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = make(map[string]record[V])
	x.order = nil
}
