package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestMemoryBackendRoundtrip(t *testing.T) {
	b := NewMemoryBackend(8)
	ctx := context.Background()

	if err := b.Set(ctx, "k1", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := b.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected hit for k1")
	}
	if !bytes.Equal(value, []byte("hello")) {
		t.Errorf("Expected %q, got %q", "hello", value)
	}
}

func TestMemoryBackendMiss(t *testing.T) {
	b := NewMemoryBackend(8)

	_, ok, err := b.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected miss for absent key")
	}
}

func TestMemoryBackendZeroTTLExpiresImmediately(t *testing.T) {
	b := NewMemoryBackend(8)
	ctx := context.Background()

	if err := b.Set(ctx, "k1", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, ok, err := b.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected zero-TTL entry to be already expired")
	}
}

func TestMemoryBackendExpiry(t *testing.T) {
	b := NewMemoryBackend(8)
	ctx := context.Background()

	if err := b.Set(ctx, "k1", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	_, ok, err := b.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected entry to have expired")
	}
	if b.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, have %d entries", b.Len())
	}
}

func TestMemoryBackendEvictsNearestExpiry(t *testing.T) {
	b := NewMemoryBackend(2)
	ctx := context.Background()

	if err := b.Set(ctx, "long", []byte("l"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "short", []byte("s"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "new", []byte("n"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if b.Len() != 2 {
		t.Fatalf("Expected 2 entries after eviction, have %d", b.Len())
	}
	if _, ok, _ := b.Get(ctx, "short"); ok {
		t.Error("Expected nearest-expiry entry to be evicted")
	}
	if _, ok, _ := b.Get(ctx, "long"); !ok {
		t.Error("Expected long-lived entry to survive eviction")
	}
	if _, ok, _ := b.Get(ctx, "new"); !ok {
		t.Error("Expected newly written entry to be present")
	}
}

func TestMemoryBackendEvictionTieBreak(t *testing.T) {
	b := NewMemoryBackend(2)
	ctx := context.Background()

	// Same expiry on both entries: the smaller key loses.
	if err := b.Set(ctx, "bbb", []byte("b"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "aaa", []byte("a"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	b.mu.Lock()
	expiry := b.entries["bbb"].expiresAt
	entry := b.entries["aaa"]
	entry.expiresAt = expiry
	b.entries["aaa"] = entry
	b.mu.Unlock()

	if err := b.Set(ctx, "ccc", []byte("c"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok, _ := b.Get(ctx, "aaa"); ok {
		t.Error("Expected smallest key to be evicted on expiry tie")
	}
	if _, ok, _ := b.Get(ctx, "bbb"); !ok {
		t.Error("Expected larger key to survive expiry tie")
	}
}

func TestMemoryBackendOverwriteDoesNotEvict(t *testing.T) {
	b := NewMemoryBackend(2)
	ctx := context.Background()

	if err := b.Set(ctx, "k1", []byte("v1"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "k2", []byte("v2"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := b.Set(ctx, "k1", []byte("v1b"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if b.Len() != 2 {
		t.Errorf("Expected overwrite to keep 2 entries, have %d", b.Len())
	}
	value, ok, _ := b.Get(ctx, "k1")
	if !ok || !bytes.Equal(value, []byte("v1b")) {
		t.Errorf("Expected overwritten value, got %q (hit=%v)", value, ok)
	}
}

func TestMemoryBackendReturnsCopies(t *testing.T) {
	b := NewMemoryBackend(4)
	ctx := context.Background()

	original := []byte("immutable")
	if err := b.Set(ctx, "k1", original, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	original[0] = 'X'

	value, ok, _ := b.Get(ctx, "k1")
	if !ok {
		t.Fatal("Expected hit")
	}
	if !bytes.Equal(value, []byte("immutable")) {
		t.Errorf("Stored value aliased caller buffer: %q", value)
	}

	value[0] = 'Y'
	again, _, _ := b.Get(ctx, "k1")
	if !bytes.Equal(again, []byte("immutable")) {
		t.Errorf("Returned value aliased stored buffer: %q", again)
	}
}
