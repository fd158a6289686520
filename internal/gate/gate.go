package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of simultaneously running download jobs
// process-wide. Acquire blocks until a slot frees up or the context is
// cancelled; callers must pair every successful Acquire with a deferred
// Release so slots survive error and cancellation paths. Admission order
// under contention is whatever the scheduler provides.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
}

// New creates a gate admitting at most capacity concurrent holders.
func New(capacity int) *Gate {
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire claims one slot, blocking until a slot is free. It returns the
// context's error if the wait is cancelled or times out first.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire claims one slot without blocking.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release returns one slot.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Capacity reports the configured slot count.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}
