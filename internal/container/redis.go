package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// RedisConn owns the shared Redis client so the injector can close it.
type RedisConn struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (c *RedisConn) Shutdown() error {
	return c.Client.Close()
}

// RedisPackage provides the pooled Redis client.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisConn, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisConn{
			Client: redis.NewClient(&redis.Options{
				Addr: opts.RedisAddr,
			}),
		}, nil
	})
}
