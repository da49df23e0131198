package kv

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	store, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	runStoreContract(t, store)
}

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := store.Set(ctx, "cart", `{"items":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "cart_backup_2026-01-01", "a"); err != nil {
		t.Fatalf("set backup: %v", err)
	}
	if err := store.Set(ctx, "cart_backup_2026-01-02", "b"); err != nil {
		t.Fatalf("set backup: %v", err)
	}
	if err := store.Set(ctx, "other", "x"); err != nil {
		t.Fatalf("set other: %v", err)
	}

	got, err := store.Get(ctx, "cart")
	if err != nil || got != `{"items":[]}` {
		t.Fatalf("get cart = %q, %v", got, err)
	}

	// Overwrite is last-writer-wins.
	if err := store.Set(ctx, "cart", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := store.Get(ctx, "cart"); got != "v2" {
		t.Fatalf("overwrite not applied, got %q", got)
	}

	keys, err := store.Keys(ctx, "cart_backup_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "cart_backup_2026-01-01" || keys[1] != "cart_backup_2026-01-02" {
		t.Fatalf("unexpected backup keys %v", keys)
	}

	if err := store.Del(ctx, "cart", "cart_backup_2026-01-01"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := store.Get(ctx, "cart"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted key to be gone, got %v", err)
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
