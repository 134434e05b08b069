package audit

import "context"

// Store defines the interface for persisting quota events.
type Store interface {
	SaveQuotaEvent(ctx context.Context, event *QuotaEvent) error
}
