// Package storage defines a small TTL-aware key-value store used as a
// datacache for tool handlers, with optional per-user namespacing.
package storage

import (
	"context"
	"time"
)

// Storage is a flat key-value store with per-key expiry.
type Storage interface {
	// Get retrieves the item stored under key. It returns nil when the key
	// does not exist or has expired. Errors are reserved for backend
	// failures.
	Get(ctx context.Context, key string) (*Item, error)

	// Set stores data under key. A ttl <= 0 stores the item without
	// expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the item stored under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Item is a stored piece of data with expiry metadata.
type Item struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil means no expiry
}

// IsExpired reports whether the item's expiry has passed.
func (it *Item) IsExpired() bool {
	return it.ExpiresAt != nil && time.Now().After(*it.ExpiresAt)
}

// ForUser returns a view of s whose keys are scoped to the given user.
// Views share the backend; closing a view is a no-op, the owner of s
// remains responsible for closing it.
func ForUser(s Storage, userID string) Storage {
	return &namespaced{backend: s, prefix: "user:" + userID + ":"}
}

type namespaced struct {
	backend Storage
	prefix  string
}

func (n *namespaced) Get(ctx context.Context, key string) (*Item, error) {
	return n.backend.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return n.backend.Set(ctx, n.prefix+key, data, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.backend.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Close() error { return nil }
