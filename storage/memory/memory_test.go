package memory

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestSetGetRoundTrip(t *testing.T) {
	s := New()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("value"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	item, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item == nil || !bytes.Equal(item.Data, []byte("value")) {
		t.Fatalf("item: %+v", item)
	}
	if item.ExpiresAt != nil {
		t.Fatalf("zero ttl must mean no expiry")
	}
}

func TestGetMissing(t *testing.T) {
	s := New()
	defer func() { _ = s.Close() }()

	item, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("want nil for missing key, got %+v", item)
	}
}

func TestExpiry(t *testing.T) {
	s := New()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	item, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("expired item must read as missing, got %+v", item)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if item, _ := s.Get(ctx, "k"); item != nil {
		t.Fatalf("deleted key still present")
	}
	// Deleting a missing key is not an error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestSetCopiesData(t *testing.T) {
	s := New()
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	buf := []byte("original")
	if err := s.Set(ctx, "k", buf, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	copy(buf, "mutated!")

	item, _ := s.Get(ctx, "k")
	if string(item.Data) != "original" {
		t.Fatalf("stored data aliased caller buffer: %q", item.Data)
	}
}
