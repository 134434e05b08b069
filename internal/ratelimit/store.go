package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable is returned when the window store cannot execute a batch.
// Callers must treat it as "limiter unavailable", never as admit or reject.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// OpKind identifies a single operation inside a Batch.
type OpKind int

const (
	// OpPrune removes every entry whose score is <= Score.
	OpPrune OpKind = iota
	// OpCount returns the number of entries left under the key.
	OpCount
	// OpInsert adds Member with Score.
	OpInsert
	// OpExpire sets the key to expire after TTL.
	OpExpire
)

func (k OpKind) String() string {
	switch k {
	case OpPrune:
		return "prune"
	case OpCount:
		return "count"
	case OpInsert:
		return "insert"
	case OpExpire:
		return "expire"
	default:
		return "unknown"
	}
}

// Op is one step of a Batch.
type Op struct {
	Kind   OpKind
	Member string
	Score  int64
	TTL    time.Duration
}

// Batch is an ordered list of operations against a single key.
type Batch struct {
	Key string
	Ops []Op
}

// NewBatch starts a batch for key.
func NewBatch(key string) *Batch {
	return &Batch{Key: key}
}

// Prune queues removal of entries scored at or below maxScore.
func (b *Batch) Prune(maxScore int64) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpPrune, Score: maxScore})

	return b
}

// Count queues a cardinality read.
func (b *Batch) Count() *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpCount})

	return b
}

// Insert queues insertion of member at score.
func (b *Batch) Insert(member string, score int64) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpInsert, Member: member, Score: score})

	return b
}

// Expire queues a TTL refresh for the key.
func (b *Batch) Expire(ttl time.Duration) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpExpire, TTL: ttl})

	return b
}

// WindowStore holds the per-key event logs used by the limiter.
type WindowStore interface {
	// ExecBatch applies every op of the batch atomically with respect to other
	// batches on the same key and returns one result per op, in order.
	// Prune and Insert report affected entries, Count reports the cardinality
	// and Expire reports 1 if the TTL was set.
	ExecBatch(ctx context.Context, batch *Batch) ([]int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
