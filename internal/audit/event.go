// Package audit records rate limit rejections and limiter outages so they can
// be reviewed outside the request path.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
)

// TopicQuota is the stream that carries QuotaEvents.
const TopicQuota = "ratelimit.quota"

// Outcome describes why a QuotaEvent was emitted.
type Outcome string

const (
	// OutcomeRejected means the client exhausted the policy.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnavailable means the window store could not be reached.
	OutcomeUnavailable Outcome = "unavailable"
)

// QuotaEvent is emitted by the gate when a request does not go through the
// limiter cleanly.
type QuotaEvent struct {
	ID          string    `json:"id"`
	Endpoint    string    `json:"endpoint"`
	ClientIP    string    `json:"clientIp"`
	Outcome     Outcome   `json:"outcome"`
	MaxRequests int64     `json:"maxRequests"`
	WindowMS    int64     `json:"windowMs"`
	FailOpen    bool      `json:"failOpen,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewQuotaEvent builds an event for client under policy.
func NewQuotaEvent(policy ratelimit.Policy, clientIP string, outcome Outcome, at time.Time) *QuotaEvent {
	return &QuotaEvent{
		ID:          uuid.NewString(),
		Endpoint:    policy.Endpoint(),
		ClientIP:    clientIP,
		Outcome:     outcome,
		MaxRequests: policy.Max(),
		WindowMS:    policy.Window().Milliseconds(),
		OccurredAt:  at.UTC(),
	}
}
