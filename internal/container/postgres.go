package container

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do"
	"github.com/serroba/quota-gate-go/internal/audit"
	auditstore "github.com/serroba/quota-gate-go/internal/audit/store"
	"go.uber.org/zap"
)

// PostgresPackage provides the audit store: PostgreSQL when a DSN is
// configured, otherwise a store that only logs events.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (audit.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PostgresDSN == "" {
			logger.Info("no postgres dsn configured, quota events will only be logged")

			return auditstore.NewNoop(logger), nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}

		pg := auditstore.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()

			return nil, err
		}

		return pg, nil
	})
}
