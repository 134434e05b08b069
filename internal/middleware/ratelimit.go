package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/quota-gate-go/internal/audit"
	"github.com/serroba/quota-gate-go/internal/messaging"
	"github.com/serroba/quota-gate-go/internal/metrics"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	msgTooManyRequests    = "too many requests, retry later"
	msgLimiterUnavailable = "rate limiter unavailable"
)

// GateConfig configures the RateLimiter middleware.
type GateConfig struct {
	// FailOpen lets requests through when the window store is unavailable.
	// The default rejects them with 503. The choice applies to every endpoint.
	FailOpen bool

	// TrustProxyHeaders resolves the client from X-Forwarded-For / X-Real-IP
	// when RequestMeta has not already done so.
	TrustProxyHeaders bool

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// PublishQuota receives rejections and outages. Optional. It runs on the
	// request path and must not block; messaging.AsyncPublisher.Publish only
	// enqueues.
	PublishQuota messaging.Publish[audit.QuotaEvent]

	// Now stamps audit events. Defaults to time.Now.
	Now func() time.Time
}

// RateLimiter returns a Huma middleware that gates every operation carrying a
// ratelimit.Policy in its metadata. Operations without a policy pass through.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	cfg GateConfig,
) func(ctx huma.Context, next func(huma.Context)) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	g := &gate{api: api, limiter: limiter, cfg: cfg}

	return g.handle
}

type gate struct {
	api     huma.API
	limiter ratelimit.Limiter
	cfg     GateConfig
}

func (g *gate) handle(ctx huma.Context, next func(huma.Context)) {
	policy, ok := ratelimit.PolicyFor(ctx.Operation())
	if !ok {
		next(ctx)

		return
	}

	client := clientIP(ctx, g.cfg.TrustProxyHeaders)
	if client == "" {
		_ = huma.WriteErr(g.api, ctx, http.StatusBadRequest, "client address unavailable")

		return
	}

	limited, err := g.limiter.IsLimited(ctx.Context(), client, policy)
	if err != nil {
		g.handleError(ctx, policy, client, err, next)

		return
	}

	if limited {
		g.handleLimited(ctx, policy, client)

		return
	}

	g.incDecision(policy, metrics.DecisionAdmitted)

	next(ctx)
}

func (g *gate) handleLimited(ctx huma.Context, policy ratelimit.Policy, client string) {
	g.incDecision(policy, metrics.DecisionRejected)

	g.cfg.Logger.Warn("rate limit exceeded",
		zap.String("endpoint", policy.Endpoint()),
		zap.String("client_ip", client),
		zap.Int64("max", policy.Max()),
		zap.Duration("window", policy.Window()),
	)

	g.publish(ctx, audit.NewQuotaEvent(policy, client, audit.OutcomeRejected, g.cfg.Now()))

	ctx.SetHeader("Retry-After", strconv.FormatInt(retryAfterSeconds(policy.Window()), 10))
	_ = huma.WriteErr(g.api, ctx, http.StatusTooManyRequests, msgTooManyRequests)
}

func (g *gate) handleError(
	ctx huma.Context,
	policy ratelimit.Policy,
	client string,
	err error,
	next func(huma.Context),
) {
	if !errors.Is(err, ratelimit.ErrStoreUnavailable) {
		g.cfg.Logger.Error("rate limit check failed",
			zap.String("endpoint", policy.Endpoint()),
			zap.Error(err),
		)
		_ = huma.WriteErr(g.api, ctx, http.StatusInternalServerError, "internal server error")

		return
	}

	event := audit.NewQuotaEvent(policy, client, audit.OutcomeUnavailable, g.cfg.Now())
	event.FailOpen = g.cfg.FailOpen

	g.publish(ctx, event)

	if g.cfg.FailOpen {
		g.incDecision(policy, metrics.DecisionFailOpen)
		g.cfg.Logger.Warn("rate limiter unavailable, failing open",
			zap.String("endpoint", policy.Endpoint()),
			zap.String("client_ip", client),
			zap.Error(err),
		)

		next(ctx)

		return
	}

	g.incDecision(policy, metrics.DecisionUnavailable)
	g.cfg.Logger.Error("rate limiter unavailable",
		zap.String("endpoint", policy.Endpoint()),
		zap.String("client_ip", client),
		zap.Error(err),
	)

	_ = huma.WriteErr(g.api, ctx, http.StatusServiceUnavailable, msgLimiterUnavailable)
}

func (g *gate) incDecision(policy ratelimit.Policy, decision string) {
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.IncDecision(policy.Endpoint(), decision)
	}
}

// publish never affects the decision. An error here means the event was not
// queued; it is logged and counted.
func (g *gate) publish(ctx huma.Context, event *audit.QuotaEvent) {
	if g.cfg.PublishQuota == nil {
		return
	}

	if err := g.cfg.PublishQuota(ctx.Context(), event); err != nil {
		g.cfg.Logger.Error("failed to publish quota event",
			zap.String("endpoint", event.Endpoint),
			zap.String("outcome", string(event.Outcome)),
			zap.Error(err),
		)

		if g.cfg.Metrics != nil {
			g.cfg.Metrics.IncPublishFailure()
		}
	}
}

// retryAfterSeconds rounds the window up to whole seconds, minimum 1.
func retryAfterSeconds(window time.Duration) int64 {
	secs := int64(math.Ceil(window.Seconds()))
	if secs < 1 {
		return 1
	}

	return secs
}
