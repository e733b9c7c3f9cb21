// Package redis provides a Redis-backed implementation of the storage
// interface. Expiry is delegated to Redis key TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toolgate/mcp-server-go/storage"
)

// Config contains configuration options for the Redis storage.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is prepended to every Redis key. Default: "mcp:cache:".
	KeyPrefix string
}

// Storage implements storage.Storage using Redis.
type Storage struct {
	client    *redis.Client
	keyPrefix string
}

// storedItem is the JSON envelope persisted in Redis. The envelope carries
// timestamps so Get can reconstruct a storage.Item.
type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a Redis-backed store.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "mcp:cache:"
	}
	return &Storage{client: config.Client, keyPrefix: config.KeyPrefix}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (*storage.Item, error) {
	redisKey := s.keyPrefix + key
	result := s.client.Get(ctx, redisKey)
	if err := result.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get key %s: %w", redisKey, err)
	}

	var item storedItem
	if err := json.Unmarshal([]byte(result.Val()), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored data: %w", err)
	}

	out := &storage.Item{
		Data:      item.Data,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}
	// Redis TTL normally handles expiry; guard against clock skew between
	// writer and Redis.
	if out.IsExpired() {
		s.client.Del(ctx, redisKey)
		return nil, nil
	}
	return out, nil
}

func (s *Storage) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	redisKey := s.keyPrefix + key

	now := time.Now()
	item := storedItem{Data: data, CreatedAt: now}
	var redisTTL time.Duration
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		item.ExpiresAt = &expiresAt
		redisTTL = ttl
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal stored data: %w", err)
	}
	if err := s.client.Set(ctx, redisKey, payload, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", redisKey, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	redisKey := s.keyPrefix + key
	if err := s.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *Storage) Close() error {
	return s.client.Close()
}
