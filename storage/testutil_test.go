package storage

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dataDir := t.TempDir()
	store, _, err := Open(dataDir)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test store: %v", err)
		}
	})

	return store
}

func newTestPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()

	store, _, err := OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("open test pebble store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close test pebble store: %v", err)
		}
	})

	return store
}

// exerciseBackend runs the shared Backend contract against b.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := b.Get(ctx, "chat", "missing"); err != nil || ok {
		t.Fatalf("expected miss for missing key, got ok=%v err=%v", ok, err)
	}

	mustSet(t, b, "chat", "chatConversations", []byte(`[{"uuid":"a"}]`))
	mustSet(t, b, "chat", "chatMessages:b", []byte(`[]`))
	mustSet(t, b, "chat", "chatMessages:a", []byte(`[1]`))
	mustSet(t, b, "other", "chatMessages:z", []byte(`x`))

	value, ok, err := b.Get(ctx, "chat", "chatMessages:a")
	if err != nil || !ok {
		t.Fatalf("get chatMessages:a: ok=%v err=%v", ok, err)
	}
	if string(value) != "[1]" {
		t.Fatalf("unexpected value %q", value)
	}

	mustSet(t, b, "chat", "chatMessages:a", []byte(`[2]`))
	value, _, _ = b.Get(ctx, "chat", "chatMessages:a")
	if string(value) != "[2]" {
		t.Fatalf("expected overwritten value, got %q", value)
	}

	keys, err := b.Keys(ctx, "chat")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	want := []string{"chatConversations", "chatMessages:a", "chatMessages:b"}
	if len(keys) != len(want) {
		t.Fatalf("expected keys %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected keys %v, got %v", want, keys)
		}
	}

	if err := b.Remove(ctx, "chat", "chatMessages:b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := b.Remove(ctx, "chat", "chatMessages:b"); err != nil {
		t.Fatalf("remove missing key should succeed: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "chat", "chatMessages:b"); ok {
		t.Fatalf("expected removed key to be gone")
	}
	if _, ok, _ := b.Get(ctx, "other", "chatMessages:z"); !ok {
		t.Fatalf("expected other namespace to be untouched")
	}

	if _, ok, err := b.GetLocal(ctx, "chatLastFocusTimestamp"); err != nil || ok {
		t.Fatalf("expected local miss, got ok=%v err=%v", ok, err)
	}
	if err := b.SetLocal(ctx, "chatLastFocusTimestamp", `{"a":1}`); err != nil {
		t.Fatalf("set local: %v", err)
	}
	local, ok, err := b.GetLocal(ctx, "chatLastFocusTimestamp")
	if err != nil || !ok || local != `{"a":1}` {
		t.Fatalf("unexpected local value %q ok=%v err=%v", local, ok, err)
	}

	keys, _ = b.Keys(ctx, "chat")
	for _, key := range keys {
		if key == "chatLastFocusTimestamp" {
			t.Fatalf("local state must not appear in namespace keys")
		}
	}

	if err := b.Set(ctx, "", "k", nil); err == nil {
		t.Fatalf("expected empty namespace to be rejected")
	}
	if _, _, err := b.Get(ctx, "chat", ""); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func mustSet(t *testing.T, b Backend, namespace, key string, value []byte) {
	t.Helper()

	if err := b.Set(context.Background(), namespace, key, value); err != nil {
		t.Fatalf("set %s/%s: %v", namespace, key, err)
	}
}
