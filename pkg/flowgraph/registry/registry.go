package registry

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sync"
)

// Registry is a concurrency-safe map from keys to values, tuned for
// read-heavy use (extractor lookup, per-thread memory).
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{entries: make(map[K]V)}
}

// Register adds or replaces a value.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// RegisterAll registers value under every key.
func (r *Registry[K, V]) RegisterAll(keys []K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.entries[k] = value
	}
}

// Get returns the value for key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (r *Registry[K, V]) Delete(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Update replaces the value for key with fn(current, exists) atomically.
// fn runs under the write lock and must not call back into the registry.
func (r *Registry[K, V]) Update(key K, fn func(current V, exists bool) V) V {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.entries[key]
	next := fn(cur, ok)
	r.entries[key] = next
	return next
}

// GetOrCreate returns the value for key, calling factory at most once per
// key to create it.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	if v, ok := r.Get(key); ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.entries[key]; ok {
		return v
	}
	v := factory()
	r.entries[key] = v
	return v
}

// All iterates over a snapshot, so callers may mutate the registry while
// ranging.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	snapshot := maps.Clone(r.entries)
	r.mu.RUnlock()
	return maps.All(snapshot)
}

// Keys returns every key in unspecified order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Collect(maps.Keys(r.entries))
}

// SortedKeys returns the keys of an ordered-key registry in ascending order.
func SortedKeys[K cmp.Ordered, V any](r *Registry[K, V]) []K {
	keys := r.Keys()
	slices.Sort(keys)
	return keys
}
