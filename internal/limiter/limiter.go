package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of simultaneous outbound operations. Media
// downloads and comment fetches all pass through one shared instance, so
// the connection count stays fixed no matter how many items a page holds.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
}

func New(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

func (l *Limiter) Capacity() int { return l.capacity }

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a slot taken by Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn under a slot, releasing it on every exit path.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
