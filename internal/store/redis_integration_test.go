//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"github.com/serroba/quota-gate-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisWindowStoreIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	s := store.NewRedisWindowStore(client)

	t.Run("limits and expires against a real server", func(t *testing.T) {
		policy := ratelimit.MustPolicy("integration", 2, 500*time.Millisecond)
		key := ratelimit.Key(policy.Endpoint(), "10.0.0.1")

		// Cleanup
		client.Del(ctx, key)
		defer client.Del(ctx, key)

		limiter, err := ratelimit.NewSlidingWindowLimiter(s)
		require.NoError(t, err)

		for range 2 {
			limited, err := limiter.IsLimited(ctx, "10.0.0.1", policy)
			require.NoError(t, err)
			assert.False(t, limited)
		}

		limited, err := limiter.IsLimited(ctx, "10.0.0.1", policy)
		require.NoError(t, err)
		assert.True(t, limited)

		ttl, err := client.PTTL(ctx, key).Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 500*time.Millisecond)

		time.Sleep(600 * time.Millisecond)

		exists, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Zero(t, exists, "idle key should have expired")
	})
}
