// Package registry provides a concurrency-safe, deterministically ordered
// key-value store used as the backing container for the prompt, resource and
// tool managers. All mutation goes through Upsert/Remove/Update so that a
// reader can never observe a half-applied write, and List always returns
// entries in lexicographic key order.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get, Remove and Update when the key is absent.
var ErrNotFound = errors.New("registry: not found")

// Entry pairs a key with its stored value in List output.
type Entry[V any] struct {
	Key   string
	Value V
}

// Registry is a mutex-guarded map with stable list ordering. The zero value
// is ready to use.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// New constructs an empty Registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{entries: make(map[string]V)}
}

// Len returns the number of stored entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns a snapshot of all entries sorted by key. The snapshot is a
// copy; concurrent mutations do not affect it.
func (r *Registry[V]) List() []Entry[V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entry[V], 0, len(keys))
	for _, k := range keys {
		out = append(out, Entry[V]{Key: k, Value: r.entries[k]})
	}
	return out
}

// Get returns the value stored under key, or ErrNotFound.
func (r *Registry[V]) Get(key string) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return v, nil
}

// Upsert stores value under key, creating or replacing. It always succeeds
// and is idempotent: applying the same upsert twice yields the same state.
func (r *Registry[V]) Upsert(key string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]V)
	}
	r.entries[key] = value
}

// Remove deletes key and returns the prior value, or ErrNotFound if absent.
func (r *Registry[V]) Remove(key string) (V, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	delete(r.entries, key)
	return v, nil
}

// Update replaces the value stored under key, failing with ErrNotFound if the
// key is absent. The existence check and the replacement happen under one
// critical section, so an Update racing a Remove can never resurrect a
// deleted entry.
func (r *Registry[V]) Update(key string, value V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	r.entries[key] = value
	return nil
}
