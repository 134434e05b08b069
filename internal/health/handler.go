package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Checker defines the interface for checking service health.
// ratelimit.WindowStore satisfies it.
type Checker interface {
	Ping(ctx context.Context) error
}

// Handler handles health check operations.
type Handler struct {
	store   Checker
	backend string
}

// NewHandler creates a new health handler for the window store named backend.
func NewHandler(store Checker, backend string) *Handler {
	return &Handler{store: store, backend: backend}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status  string `json:"status"`
		Store   string `json:"store"`
		Backend string `json:"backend"`
	}
}

// Check performs a health check of the application and its window store.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Backend = h.backend

	if err := h.store.Ping(ctx); err != nil {
		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Store = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
