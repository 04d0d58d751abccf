package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_GetSetClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "conn-1", "pods"); err != nil || ok {
		t.Fatalf("expected no token, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "conn-1", "pods", "12345"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	token, ok, err := store.Get(ctx, "conn-1", "pods")
	if err != nil || !ok {
		t.Fatalf("Get() failed: ok=%v err=%v", ok, err)
	}
	if token != "12345" {
		t.Errorf("expected token 12345, got %s", token)
	}

	if err := store.Clear(ctx, "conn-1", "pods"); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "conn-1", "pods"); ok {
		t.Error("token still present after Clear()")
	}
}

func TestMemoryStore_KindsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "conn-1", "pods", "100")
	store.Set(ctx, "conn-1", "deployments", "200")
	store.Clear(ctx, "conn-1", "pods")

	if _, ok, _ := store.Get(ctx, "conn-1", "pods"); ok {
		t.Error("pods token should be cleared")
	}
	token, ok, _ := store.Get(ctx, "conn-1", "deployments")
	if !ok || token != "200" {
		t.Errorf("deployments token affected by pods clear: ok=%v token=%s", ok, token)
	}
}

func TestMemoryStore_ConnectionsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "conn-1", "pods", "100")
	store.Set(ctx, "conn-2", "pods", "900")

	token, _, _ := store.Get(ctx, "conn-1", "pods")
	if token != "100" {
		t.Errorf("expected 100, got %s", token)
	}
}

func TestMemoryStore_ConcurrentWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := fmt.Sprintf("kind-%d", i)
			store.Set(ctx, "conn-1", kind, "1")
			store.Get(ctx, "conn-1", kind)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		if _, ok, _ := store.Get(ctx, "conn-1", fmt.Sprintf("kind-%d", i)); !ok {
			t.Errorf("missing token for kind-%d", i)
		}
	}
}
