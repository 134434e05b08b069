package container

import (
	"context"
	"time"

	"github.com/samber/do"
	"github.com/serroba/quota-gate-go/internal/handlers"
	"github.com/serroba/quota-gate-go/internal/metrics"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"github.com/serroba/quota-gate-go/internal/store"
	"go.uber.org/zap"
)

const janitorInterval = time.Second

// WindowStorePackage provides the window store selected by Options.Store.
func WindowStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.MemoryWindowStore, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		s := store.NewMemoryWindowStore(nil, logger)
		s.Start(context.Background(), janitorInterval)

		return s, nil
	})

	do.Provide(i, func(i *do.Injector) (ratelimit.WindowStore, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Store == StoreMemory {
			return do.MustInvoke[*store.MemoryWindowStore](i), nil
		}

		conn := do.MustInvoke[*RedisConn](i)

		return store.NewRedisWindowStore(conn.Client), nil
	})
}

// RateLimitPackage provides metrics, the policies and the sliding window limiter.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})

	do.ProvideValue(i, handlers.DefaultPolicies())

	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		ws := do.MustInvoke[ratelimit.WindowStore](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		return ratelimit.NewSlidingWindowLimiter(
			metrics.InstrumentStore(ws, m),
			ratelimit.WithStoreTimeout(opts.StoreTimeout()),
		)
	})
}
