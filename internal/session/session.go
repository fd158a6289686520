package session

import (
	"context"
	"sync"
	"time"
)

// Store holds the most recently submitted link per user between link
// submission and format selection. Put overwrites any prior unconsumed
// record for the user (last link wins). Take atomically reads and clears,
// so no two concurrent callers can both consume a single Put.
type Store interface {
	Put(ctx context.Context, userID int64, url string) error
	Take(ctx context.Context, userID int64) (string, bool, error)
}

type record struct {
	url       string
	createdAt time.Time
}

// MemoryStore is the in-process Store. Records live until consumed or
// overwritten; there is no background expiry.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]record
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]record)}
}

// Put stores the pending URL for the user, replacing any existing record.
func (s *MemoryStore) Put(_ context.Context, userID int64, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = record{url: url, createdAt: time.Now()}
	return nil
}

// Take consumes and clears the pending URL for the user. The second return
// value is false when no record exists.
func (s *MemoryStore) Take(_ context.Context, userID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return "", false, nil
	}
	delete(s.records, userID)
	return rec.url, true, nil
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
