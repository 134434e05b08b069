package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"go.uber.org/zap"
)

// windowEntry is the event log of one key. Its mutex serializes batches on
// that key only.
type windowEntry struct {
	mu        sync.Mutex
	events    map[string]int64 // member -> score
	expiresAt time.Time
	dead      bool
}

// MemoryWindowStore is an in-process implementation of ratelimit.WindowStore.
// Batches on different keys never share a lock.
type MemoryWindowStore struct {
	entries sync.Map // key -> *windowEntry
	now     func() time.Time
	logger  *zap.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMemoryWindowStore creates a new in-memory window store.
// A nil clock uses time.Now.
func NewMemoryWindowStore(clock ratelimit.Clock, logger *zap.Logger) *MemoryWindowStore {
	now := time.Now
	if clock != nil {
		now = clock.Now
	}

	return &MemoryWindowStore{now: now, logger: logger}
}

// lock returns the live entry for key with its mutex held.
func (s *MemoryWindowStore) lock(key string) *windowEntry {
	for {
		v, _ := s.entries.LoadOrStore(key, &windowEntry{events: make(map[string]int64)})
		e := v.(*windowEntry)

		e.mu.Lock()

		if !e.dead {
			return e
		}

		// Evicted between load and lock; retry with a fresh entry.
		e.mu.Unlock()
	}
}

func (s *MemoryWindowStore) ExecBatch(ctx context.Context, batch *ratelimit.Batch) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ratelimit.ErrStoreUnavailable, err)
	}

	for _, op := range batch.Ops {
		if op.Kind < ratelimit.OpPrune || op.Kind > ratelimit.OpExpire {
			return nil, fmt.Errorf("%w: unsupported op %s", ratelimit.ErrStoreUnavailable, op.Kind)
		}
	}

	e := s.lock(batch.Key)
	defer e.mu.Unlock()

	now := s.now()
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		clear(e.events)
		e.expiresAt = time.Time{}
	}

	res := make([]int64, 0, len(batch.Ops))

	for _, op := range batch.Ops {
		switch op.Kind {
		case ratelimit.OpPrune:
			var removed int64

			for member, score := range e.events {
				if score <= op.Score {
					delete(e.events, member)
					removed++
				}
			}

			res = append(res, removed)
		case ratelimit.OpCount:
			res = append(res, int64(len(e.events)))
		case ratelimit.OpInsert:
			_, exists := e.events[op.Member]
			e.events[op.Member] = op.Score

			res = append(res, boolToInt(!exists))
		case ratelimit.OpExpire:
			if len(e.events) == 0 {
				res = append(res, 0)

				continue
			}

			e.expiresAt = now.Add(op.TTL)

			res = append(res, 1)
		}
	}

	return res, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryWindowStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of keys currently held, expired or not.
func (s *MemoryWindowStore) Len() int {
	n := 0

	s.entries.Range(func(_, _ any) bool {
		n++

		return true
	})

	return n
}

// EvictExpired drops every key whose TTL has passed or that holds no events.
func (s *MemoryWindowStore) EvictExpired() int {
	now := s.now()
	evicted := 0

	s.entries.Range(func(k, v any) bool {
		e := v.(*windowEntry)

		e.mu.Lock()
		defer e.mu.Unlock()

		expired := !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
		if expired || len(e.events) == 0 {
			e.dead = true
			s.entries.Delete(k)
			evicted++
		}

		return true
	})

	return evicted
}

// Start runs EvictExpired every interval until ctx is done or Shutdown is called.
func (s *MemoryWindowStore) Start(ctx context.Context, interval time.Duration) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.janitor(ctx, interval)
}

func (s *MemoryWindowStore) janitor(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictExpired(); n > 0 {
				s.logger.Debug("evicted idle rate limit keys", zap.Int("count", n))
			}
		}
	}
}

// Shutdown stops the janitor started by Start.
func (s *MemoryWindowStore) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	return nil
}

// Compile-time check.
var _ ratelimit.WindowStore = (*MemoryWindowStore)(nil)
