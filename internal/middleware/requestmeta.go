package middleware

import (
	"context"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

type clientIPKey struct{}

// ContextWithClientIP stores the resolved client identity in ctx.
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the identity stored by RequestMeta, if any.
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey{}).(string); ok {
		return v
	}

	return ""
}

// RequestMeta is a middleware that resolves the client identity once and adds
// it to the request context. Forwarding headers are honored only when
// trustProxy is set.
func RequestMeta(_ huma.API, trustProxy bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		ip := extractClientIP(ctx, trustProxy)
		ctx = huma.WithContext(ctx, ContextWithClientIP(ctx.Context(), ip))

		next(ctx)
	}
}

func clientIP(ctx huma.Context, trustProxy bool) string {
	if ip := ClientIPFromContext(ctx.Context()); ip != "" {
		return ip
	}

	return extractClientIP(ctx, trustProxy)
}

func extractClientIP(ctx huma.Context, trustProxy bool) string {
	if trustProxy {
		// Check X-Forwarded-For first (may contain multiple IPs)
		if xff := ctx.Header("X-Forwarded-For"); xff != "" {
			// Take the first IP (original client)
			if idx := strings.Index(xff, ","); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}

			return strings.TrimSpace(xff)
		}

		if xri := ctx.Header("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	// Fall back to the connection's remote address
	addr := ctx.RemoteAddr()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
