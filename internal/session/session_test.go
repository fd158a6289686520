package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryStore_TakeWithoutPut(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	url, ok, err := store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if ok {
		t.Error("Take without a prior Put should report no record")
	}
	if url != "" {
		t.Errorf("Expected empty url, got %q", url)
	}
}

func TestMemoryStore_PutThenTake(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, 1, "https://example.com/watch?v=abc"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	url, ok, err := store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a record after Put")
	}
	if url != "https://example.com/watch?v=abc" {
		t.Errorf("Unexpected url: %q", url)
	}

	// Exactly-once consumption: a second Take finds nothing.
	_, ok, err = store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Second Take failed: %v", err)
	}
	if ok {
		t.Error("Second Take should report no record")
	}
}

func TestMemoryStore_LastLinkWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, 1, "https://example.com/first"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, 1, "https://example.com/second"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	url, ok, err := store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a record")
	}
	if url != "https://example.com/second" {
		t.Errorf("Expected last link to win, got %q", url)
	}

	if store.Len() != 0 {
		t.Errorf("Expected empty store after Take, got %d records", store.Len())
	}
}

func TestMemoryStore_UsersAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, 1, "https://example.com/one"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, 2, "https://example.com/two"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	url, ok, _ := store.Take(ctx, 2)
	if !ok || url != "https://example.com/two" {
		t.Errorf("User 2 got %q (ok=%v)", url, ok)
	}

	url, ok, _ = store.Take(ctx, 1)
	if !ok || url != "https://example.com/one" {
		t.Errorf("User 1 got %q (ok=%v)", url, ok)
	}
}

func TestMemoryStore_ConcurrentTakeExactlyOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const iterations = 100
	const takers = 8

	for i := 0; i < iterations; i++ {
		if err := store.Put(ctx, 7, "https://example.com/race"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		var consumed int64
		var wg sync.WaitGroup
		for j := 0; j < takers; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, _ := store.Take(ctx, 7); ok {
					atomic.AddInt64(&consumed, 1)
				}
			}()
		}
		wg.Wait()

		if consumed != 1 {
			t.Fatalf("Iteration %d: expected exactly one consumer, got %d", i, consumed)
		}
	}
}
