package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/quota-gate-go/internal/container"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"go.uber.org/zap"
)

const startupPingTimeout = 5 * time.Second

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.WindowStorePackage(injector)
	container.RateLimitPackage(injector)
	container.PublisherGroupPackage(injector)
	container.HTTPPackage(injector)
}

// checkStore pings the window store once at startup. Fail-closed services
// refuse to start without a reachable store.
func checkStore(injector *do.Injector, options *container.Options, logger *zap.Logger) {
	ws := do.MustInvoke[ratelimit.WindowStore](injector)

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()

	err := ws.Ping(ctx)
	if err == nil {
		logger.Info("window store reachable", zap.String("store", options.Store))

		return
	}

	if options.FailOpen {
		logger.Warn("window store unreachable, requests will be admitted until it recovers",
			zap.String("store", options.Store), zap.Error(err))

		return
	}

	logger.Fatal("window store unreachable", zap.String("store", options.Store), zap.Error(err))
}

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		if err := options.Validate(); err != nil {
			logger.Fatal("invalid options", zap.Error(err))
		}

		var server *http.Server

		hooks.OnStart(func() {
			checkStore(injector, options, logger)

			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger middleware and route registration
			_ = do.MustInvoke[huma.API](injector)

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("store", options.Store),
				zap.Bool("failOpen", options.FailOpen),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
			_ = logger.Sync()
		})
	})

	cli.Run()
}
