package ratelimit_test

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/quota-gate-go/internal/ratelimit"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
}

func newFakeClock() *fakeClock {
	start := time.UnixMilli(1_700_000_000_000)

	return &fakeClock{start: start, now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// SetOffset moves the clock to start+d.
func (c *fakeClock) SetOffset(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.start.Add(d)
}

// spyStore records every batch and delegates to next.
type spyStore struct {
	mu      sync.Mutex
	next    ratelimit.WindowStore
	batches []ratelimit.Batch
}

func (s *spyStore) ExecBatch(ctx context.Context, batch *ratelimit.Batch) ([]int64, error) {
	s.mu.Lock()
	s.batches = append(s.batches, *batch)
	s.mu.Unlock()

	return s.next.ExecBatch(ctx, batch)
}

func (s *spyStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// stubStore returns canned results.
type stubStore struct {
	res   []int64
	err   error
	calls int
}

func (s *stubStore) ExecBatch(_ context.Context, _ *ratelimit.Batch) ([]int64, error) {
	s.calls++

	return s.res, s.err
}

func (s *stubStore) Ping(_ context.Context) error {
	return s.err
}

// blockingStore waits for the context to end.
type blockingStore struct{}

func (blockingStore) ExecBatch(ctx context.Context, _ *ratelimit.Batch) ([]int64, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

func (blockingStore) Ping(_ context.Context) error {
	return nil
}
