package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/quota-gate-go/internal/audit"
)

const schema = `
	CREATE TABLE IF NOT EXISTS quota_events (
		id           UUID PRIMARY KEY,
		endpoint     TEXT        NOT NULL,
		client_ip    TEXT        NOT NULL,
		outcome      TEXT        NOT NULL,
		max_requests BIGINT      NOT NULL,
		window_ms    BIGINT      NOT NULL,
		fail_open    BOOLEAN     NOT NULL DEFAULT FALSE,
		occurred_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS quota_events_endpoint_client_idx
		ON quota_events (endpoint, client_ip, occurred_at);
`

// Postgres is a PostgreSQL implementation of audit.Store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new PostgreSQL-backed audit store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the quota_events table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)

	return err
}

func (p *Postgres) SaveQuotaEvent(ctx context.Context, event *audit.QuotaEvent) error {
	query := `
		INSERT INTO quota_events
			(id, endpoint, client_ip, outcome, max_requests, window_ms, fail_open, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.Endpoint,
		event.ClientIP,
		string(event.Outcome),
		event.MaxRequests,
		event.WindowMS,
		event.FailOpen,
		event.OccurredAt,
	)

	return err
}

// Shutdown closes the connection pool.
func (p *Postgres) Shutdown() error {
	p.pool.Close()

	return nil
}

// Compile-time check.
var _ audit.Store = (*Postgres)(nil)
