package storage_test

import (
	"context"
	"testing"

	"github.com/toolgate/mcp-server-go/storage"
	"github.com/toolgate/mcp-server-go/storage/memory"
)

func TestForUserIsolatesKeys(t *testing.T) {
	backend := memory.New()
	defer backend.Close()
	ctx := context.Background()

	alice := storage.ForUser(backend, "alice")
	bob := storage.ForUser(backend, "bob")

	if err := alice.Set(ctx, "greeting", []byte("hi alice"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	item, err := bob.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item != nil {
		t.Fatalf("bob must not see alice's keys, got %q", item.Data)
	}

	item, err = alice.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item == nil || string(item.Data) != "hi alice" {
		t.Fatalf("alice round trip: %+v", item)
	}

	if err := bob.Delete(ctx, "greeting"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if item, _ := alice.Get(ctx, "greeting"); item == nil {
		t.Fatalf("delete in one namespace must not touch another")
	}
}

func TestForUserCloseLeavesBackendOpen(t *testing.T) {
	backend := memory.New()
	defer backend.Close()
	ctx := context.Background()

	view := storage.ForUser(backend, "alice")
	if err := view.Close(); err != nil {
		t.Fatalf("close view: %v", err)
	}
	if err := backend.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("backend must stay usable after a view closes: %v", err)
	}
}
