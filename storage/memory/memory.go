// Package memory provides an in-process implementation of the storage
// interface backed by a map with periodic expiry sweeps.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/toolgate/mcp-server-go/storage"
)

const sweepInterval = time.Minute

// Storage implements storage.Storage in process memory.
type Storage struct {
	mu    sync.RWMutex
	items map[string]*storage.Item

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates an in-memory store and starts its expiry sweeper. Call Close
// to stop the sweeper.
func New() *Storage {
	s := &Storage{
		items: make(map[string]*storage.Item),
		stop:  make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, nil
	}
	return item, nil
}

func (s *Storage) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	now := time.Now()
	item := &storage.Item{
		Data:      make([]byte, len(data)),
		CreatedAt: now,
	}
	copy(item.Data, data)
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		item.ExpiresAt = &expiresAt
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Close stops the background sweeper.
func (s *Storage) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// sweep periodically removes expired items so the map does not grow
// unbounded between reads.
func (s *Storage) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			for key, item := range s.items {
				if item.IsExpired() {
					delete(s.items, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
