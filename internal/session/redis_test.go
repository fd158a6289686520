package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to parse miniredis port: %v", err)
	}

	store, err := NewRedisStore(mr.Host(), port, "", 0, ttl)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create redis store: %v", err)
	}

	return store, mr
}

func TestRedisStore_PutThenTake(t *testing.T) {
	store, mr := setupRedisStore(t, 30*time.Minute)
	defer mr.Close()
	defer store.Close()

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

	// Exactly-once consumption via GETDEL.
	_, ok, err = store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Second Take failed: %v", err)
	}
	if ok {
		t.Error("Second Take should report no record")
	}
}

func TestRedisStore_TakeWithoutPut(t *testing.T) {
	store, mr := setupRedisStore(t, 30*time.Minute)
	defer mr.Close()
	defer store.Close()

	_, ok, err := store.Take(context.Background(), 99)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if ok {
		t.Error("Take without a prior Put should report no record")
	}
}

func TestRedisStore_LastLinkWins(t *testing.T) {
	store, mr := setupRedisStore(t, 30*time.Minute)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, 1, "https://example.com/first"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, 1, "https://example.com/second"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	url, ok, _ := store.Take(ctx, 1)
	if !ok || url != "https://example.com/second" {
		t.Errorf("Expected last link to win, got %q (ok=%v)", url, ok)
	}
}

func TestRedisStore_AbandonedRecordExpires(t *testing.T) {
	store, mr := setupRedisStore(t, time.Minute)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	if err := store.Put(ctx, 1, "https://example.com/abandoned"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Take(ctx, 1)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if ok {
		t.Error("Record should have expired")
	}
}
