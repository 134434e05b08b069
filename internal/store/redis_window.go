package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
)

// RedisWindowStore keeps event logs in Redis sorted sets and runs each batch
// inside MULTI/EXEC.
type RedisWindowStore struct {
	client redis.UniversalClient
}

// NewRedisWindowStore creates a Redis-backed window store.
func NewRedisWindowStore(client redis.UniversalClient) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (r *RedisWindowStore) ExecBatch(ctx context.Context, batch *ratelimit.Batch) ([]int64, error) {
	cmds := make([]func() int64, 0, len(batch.Ops))

	// MULTI/EXEC: either the whole batch is applied or none of it is.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range batch.Ops {
			switch op.Kind {
			case ratelimit.OpPrune:
				cmd := pipe.ZRemRangeByScore(ctx, batch.Key, "-inf", strconv.FormatInt(op.Score, 10))
				cmds = append(cmds, cmd.Val)
			case ratelimit.OpCount:
				cmd := pipe.ZCard(ctx, batch.Key)
				cmds = append(cmds, cmd.Val)
			case ratelimit.OpInsert:
				cmd := pipe.ZAdd(ctx, batch.Key, redis.Z{Score: float64(op.Score), Member: op.Member})
				cmds = append(cmds, cmd.Val)
			case ratelimit.OpExpire:
				cmd := pipe.PExpire(ctx, batch.Key, op.TTL)
				cmds = append(cmds, func() int64 { return boolToInt(cmd.Val()) })
			default:
				return fmt.Errorf("unsupported op %s", op.Kind)
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ratelimit.ErrStoreUnavailable, err)
	}

	res := make([]int64, len(cmds))
	for i, val := range cmds {
		res[i] = val()
	}

	return res, nil
}

// Ping checks Redis connectivity.
func (r *RedisWindowStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

// Compile-time check.
var _ ratelimit.WindowStore = (*RedisWindowStore)(nil)
