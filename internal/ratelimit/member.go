package ratelimit

import (
	"strconv"

	"github.com/jaevor/go-nanoid"
)

// IDGenerator returns a random token used to break ties between events
// recorded in the same millisecond.
type IDGenerator func() string

const tiebreakerLength = 12

// NewIDGenerator returns a nanoid-backed tiebreaker generator.
func NewIDGenerator() (IDGenerator, error) {
	gen, err := nanoid.Standard(tiebreakerLength)
	if err != nil {
		return nil, err
	}

	return IDGenerator(gen), nil
}

// eventMember builds the sorted set member for an attempt at nowMs.
// The score carries the timestamp; the member only has to be unique.
func eventMember(nowMs int64, tiebreaker string) string {
	return strconv.FormatInt(nowMs, 10) + "-" + tiebreaker
}
