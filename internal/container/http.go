package container

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/quota-gate-go/internal/audit"
	"github.com/serroba/quota-gate-go/internal/handlers"
	"github.com/serroba/quota-gate-go/internal/health"
	"github.com/serroba/quota-gate-go/internal/messaging"
	"github.com/serroba/quota-gate-go/internal/metrics"
	"github.com/serroba/quota-gate-go/internal/middleware"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with the rate limit gate
// installed ahead of every route.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		m := do.MustInvoke[*metrics.Metrics](i)

		router := chi.NewMux()
		router.Method(http.MethodGet, "/metrics", m.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[ratelimit.Limiter](i)
		ws := do.MustInvoke[ratelimit.WindowStore](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		policies := do.MustInvoke[handlers.Policies](i)
		publish := do.MustInvoke[messaging.Publish[audit.QuotaEvent]](i)

		api := humachi.New(router, huma.DefaultConfig("Quota Gate", "1.0.0"))

		// Middleware must be installed before routes are registered.
		api.UseMiddleware(middleware.RequestMeta(api, opts.TrustProxyHeaders))
		api.UseMiddleware(middleware.RateLimiter(api, limiter, middleware.GateConfig{
			FailOpen:          opts.FailOpen,
			TrustProxyHeaders: opts.TrustProxyHeaders,
			Logger:            logger,
			Metrics:           m,
			PublishQuota:      publish,
		}))

		handlers.RegisterRoutes(api, handlers.NewCodeHandler(logger), policies)
		health.RegisterRoutes(api, health.NewHandler(ws, opts.Store))

		return api, nil
	})
}
