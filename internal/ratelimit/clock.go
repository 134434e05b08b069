package ratelimit

import (
	"sync/atomic"
	"time"
)

// Clock supplies the current time to the limiter.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// MonotonicClock never reports a millisecond reading lower than one it has
// already returned, even if the wall clock steps backwards.
type MonotonicClock struct {
	source Clock
	last   atomic.Int64
}

// NewMonotonicClock wraps source. A nil source uses time.Now.
func NewMonotonicClock(source Clock) *MonotonicClock {
	if source == nil {
		source = ClockFunc(time.Now)
	}

	return &MonotonicClock{source: source}
}

// NowMilli returns the current Unix time in milliseconds, clamped to be non-decreasing.
func (c *MonotonicClock) NowMilli() int64 {
	for {
		prev := c.last.Load()
		now := c.source.Now().UnixMilli()

		if now <= prev {
			return prev
		}

		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}
