package store

import (
	"context"

	"github.com/serroba/quota-gate-go/internal/audit"
	"go.uber.org/zap"
)

// Noop is a no-op implementation of audit.Store that logs events.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates a new no-op audit store.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveQuotaEvent(_ context.Context, event *audit.QuotaEvent) error {
	n.logger.Info("quota event received",
		zap.String("id", event.ID),
		zap.String("endpoint", event.Endpoint),
		zap.String("clientIp", event.ClientIP),
		zap.String("outcome", string(event.Outcome)),
		zap.Int64("maxRequests", event.MaxRequests),
		zap.Int64("windowMs", event.WindowMS),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

// Compile-time check.
var _ audit.Store = (*Noop)(nil)
