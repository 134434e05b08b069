package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidClient is returned when a decision is requested for an empty client identity.
var ErrInvalidClient = errors.New("client identity is empty")

// Limiter decides whether a client has exhausted a policy.
type Limiter interface {
	// IsLimited records the attempt and reports whether it must be rejected.
	IsLimited(ctx context.Context, client string, policy Policy) (limited bool, err error)
}

// SlidingWindowLimiter implements rate limiting using a sliding window log kept
// in a WindowStore. It holds no per-key state; every decision is a single
// atomic batch against the store.
type SlidingWindowLimiter struct {
	store        WindowStore
	clock        *MonotonicClock
	nextID       IDGenerator
	storeTimeout time.Duration
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock sets the time source. The limiter wraps it so readings never go backwards.
func WithClock(c Clock) Option {
	return func(l *SlidingWindowLimiter) {
		l.clock = NewMonotonicClock(c)
	}
}

// WithIDGenerator sets the tiebreaker generator for event members.
func WithIDGenerator(gen IDGenerator) Option {
	return func(l *SlidingWindowLimiter) {
		l.nextID = gen
	}
}

// WithStoreTimeout bounds each batch. Zero means only the caller's context applies.
func WithStoreTimeout(d time.Duration) Option {
	return func(l *SlidingWindowLimiter) {
		l.storeTimeout = d
	}
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(store WindowStore, opts ...Option) (*SlidingWindowLimiter, error) {
	l := &SlidingWindowLimiter{
		store: store,
		clock: NewMonotonicClock(nil),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.nextID == nil {
		gen, err := NewIDGenerator()
		if err != nil {
			return nil, fmt.Errorf("create id generator: %w", err)
		}

		l.nextID = gen
	}

	return l, nil
}

// Decide is IsLimited with the policy given as raw parameters.
// Invalid parameters return ErrInvalidPolicy without touching the store.
func (l *SlidingWindowLimiter) Decide(
	ctx context.Context, client, endpoint string, maxRequests int64, window time.Duration,
) (bool, error) {
	policy, err := NewPolicy(endpoint, maxRequests, window)
	if err != nil {
		return false, err
	}

	return l.IsLimited(ctx, client, policy)
}

// IsLimited prunes the client's log to the trailing window, counts what is
// left, records this attempt and refreshes the key TTL in one batch.
// The attempt is recorded even when it is rejected.
func (l *SlidingWindowLimiter) IsLimited(ctx context.Context, client string, policy Policy) (bool, error) {
	if client == "" {
		return false, ErrInvalidClient
	}

	if policy.IsZero() {
		return false, fmt.Errorf("%w: zero policy", ErrInvalidPolicy)
	}

	nowMs := l.clock.NowMilli()
	windowStart := nowMs - policy.Window().Milliseconds()

	batch := NewBatch(Key(policy.Endpoint(), client)).
		Prune(windowStart).
		Count().
		Insert(eventMember(nowMs, l.nextID()), nowMs).
		Expire(policy.Window())

	if l.storeTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, l.storeTimeout)
		defer cancel()
	}

	res, err := l.store.ExecBatch(ctx, batch)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return false, err
		}

		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if len(res) != len(batch.Ops) {
		return false, fmt.Errorf("%w: expected %d results, got %d", ErrStoreUnavailable, len(batch.Ops), len(res))
	}

	return res[1] >= policy.Max(), nil
}
