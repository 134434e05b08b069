package handlers

import (
	"context"
	"time"

	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Endpoint identities used as rate limit policy names.
const (
	EndpointSQLCode    = "sql_code"
	EndpointPythonCode = "python_code"
)

// Policies holds the rate limit policy of every protected action.
type Policies struct {
	SQLCode    ratelimit.Policy
	PythonCode ratelimit.Policy
}

// DefaultPolicies returns the startup policies: 5 SQL submissions per 5
// seconds and 3 Python submissions per 10 seconds.
func DefaultPolicies() Policies {
	return Policies{
		SQLCode:    ratelimit.MustPolicy(EndpointSQLCode, 5, 5*time.Second),
		PythonCode: ratelimit.MustPolicy(EndpointPythonCode, 3, 10*time.Second),
	}
}

// CodeHandler accepts code submissions. Rate limiting happens before it is called.
type CodeHandler struct {
	logger *zap.Logger
}

// NewCodeHandler creates a new code submission handler.
func NewCodeHandler(logger *zap.Logger) *CodeHandler {
	return &CodeHandler{logger: logger}
}

func (h *CodeHandler) SubmitSQLCode(_ context.Context, req *SubmitCodeRequest) (*SubmitCodeResponse, error) {
	return h.accept(EndpointSQLCode, req), nil
}

func (h *CodeHandler) SubmitPythonCode(_ context.Context, req *SubmitCodeRequest) (*SubmitCodeResponse, error) {
	return h.accept(EndpointPythonCode, req), nil
}

func (h *CodeHandler) accept(endpoint string, req *SubmitCodeRequest) *SubmitCodeResponse {
	h.logger.Debug("code submitted",
		zap.String("endpoint", endpoint),
		zap.Int("size", len(req.Body.Code)),
	)

	resp := &SubmitCodeResponse{}
	resp.Body.OK = true

	return resp
}
