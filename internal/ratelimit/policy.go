package ratelimit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPolicy is returned when a policy is constructed with unusable parameters.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")

// MetadataKey is the key used to attach a Policy to operation metadata.
const MetadataKey = "rateLimit"

// Policy limits one protected action to Max attempts per Window.
// A Policy is immutable after construction and safe to share.
type Policy struct {
	endpoint string
	max      int64
	window   time.Duration
}

// NewPolicy validates the parameters and returns a Policy for the endpoint.
func NewPolicy(endpoint string, maxRequests int64, window time.Duration) (Policy, error) {
	switch {
	case endpoint == "":
		return Policy{}, fmt.Errorf("%w: endpoint is empty", ErrInvalidPolicy)
	case strings.Contains(endpoint, keySeparator):
		return Policy{}, fmt.Errorf("%w: endpoint %q contains %q", ErrInvalidPolicy, endpoint, keySeparator)
	case maxRequests <= 0:
		return Policy{}, fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidPolicy, maxRequests)
	case window < time.Millisecond:
		return Policy{}, fmt.Errorf("%w: window must be at least 1ms, got %s", ErrInvalidPolicy, window)
	case window%time.Millisecond != 0:
		// Scores are whole milliseconds; the prune threshold and the key
		// expiry must describe the same window.
		return Policy{}, fmt.Errorf("%w: window must be a whole number of milliseconds, got %s", ErrInvalidPolicy, window)
	}

	return Policy{
		endpoint: endpoint,
		max:      maxRequests,
		window:   window,
	}, nil
}

// MustPolicy is like NewPolicy but panics on error. Use it for startup constants only.
func MustPolicy(endpoint string, maxRequests int64, window time.Duration) Policy {
	p, err := NewPolicy(endpoint, maxRequests, window)
	if err != nil {
		panic(err)
	}

	return p
}

func (p Policy) Endpoint() string      { return p.endpoint }
func (p Policy) Max() int64            { return p.max }
func (p Policy) Window() time.Duration { return p.window }

// IsZero reports whether p was never constructed.
func (p Policy) IsZero() bool {
	return p.endpoint == ""
}

func (p Policy) String() string {
	return fmt.Sprintf("%s: %d per %s", p.endpoint, p.max, p.window)
}
