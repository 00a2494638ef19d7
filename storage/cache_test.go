package storage

import (
	"context"
	"errors"
	"testing"
)

func TestStoreImplementsBackendContract(t *testing.T) {
	exerciseBackend(t, newTestStore(t))
}

func TestStorePruneOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustSet(t, store, "chat", "chatMessages:old", []byte("[]"))
	if _, err := store.db.Exec(
		`UPDATE cache_entries SET updated_at = 1 WHERE cache_key = ?`,
		"chatMessages:old",
	); err != nil {
		t.Fatalf("age entry: %v", err)
	}
	mustSet(t, store, "chat", "chatMessages:new", []byte("[]"))

	removed, err := store.PruneOlderThan(ctx, "chat", 1000)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}

	keys, err := store.Keys(ctx, "chat")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "chatMessages:new" {
		t.Fatalf("unexpected keys after prune: %v", keys)
	}

	if _, err := store.PruneOlderThan(ctx, "chat", 0); err == nil {
		t.Fatalf("expected zero cutoff to be rejected")
	}
}

func TestStoreSetNilValue(t *testing.T) {
	store := newTestStore(t)

	mustSet(t, store, "chat", "empty", nil)
	value, ok, err := store.Get(context.Background(), "chat", "empty")
	if err != nil || !ok {
		t.Fatalf("expected empty entry, got ok=%v err=%v", ok, err)
	}
	if len(value) != 0 {
		t.Fatalf("expected empty value, got %q", value)
	}
}

func TestStoreClosed(t *testing.T) {
	store, _, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	ctx := context.Background()
	if _, _, err := store.Get(ctx, "chat", "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get: expected ErrClosed, got %v", err)
	}
	if err := store.Set(ctx, "chat", "k", []byte("v")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set: expected ErrClosed, got %v", err)
	}
	if err := store.Remove(ctx, "chat", "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Remove: expected ErrClosed, got %v", err)
	}
	if _, err := store.Keys(ctx, "chat"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Keys: expected ErrClosed, got %v", err)
	}
	if _, err := store.PruneOlderThan(ctx, "chat", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("PruneOlderThan: expected ErrClosed, got %v", err)
	}
	if _, _, err := store.GetLocal(ctx, "focus"); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetLocal: expected ErrClosed, got %v", err)
	}
	if err := store.SetLocal(ctx, "focus", "{}"); !errors.Is(err, ErrClosed) {
		t.Fatalf("SetLocal: expected ErrClosed, got %v", err)
	}
}
