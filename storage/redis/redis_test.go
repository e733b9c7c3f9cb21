package redis

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
		DB:   2,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.FlushDB(context.Background()) })

	s, err := New(Config{Client: client, KeyPrefix: "test:"})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	return s
}

func TestRedisRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	item, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item == nil || !bytes.Equal(item.Data, []byte("v")) {
		t.Fatalf("round trip: %+v", item)
	}
	if item.ExpiresAt != nil {
		t.Fatalf("ttl 0 must not set an expiry")
	}
}

func TestRedisMissingKey(t *testing.T) {
	s := newTestStorage(t)

	item, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("missing key must yield nil, got %+v", item)
	}
}

func TestRedisTTLExpiry(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	item, err := s.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("expired key must yield nil, got %+v", item)
	}
}

func TestRedisDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if item, _ := s.Get(ctx, "k"); item != nil {
		t.Fatalf("deleted key must yield nil")
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key must not error: %v", err)
	}
}

func TestRedisRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("nil client must be rejected")
	}
}
