package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the protected code submission routes, each gated by
// its own rate limit policy.
func RegisterRoutes(api huma.API, h *CodeHandler, policies Policies) {
	// POST /sql_code - 5 per 5 seconds by default
	huma.Register(api, huma.Operation{
		OperationID: "submit-sql-code",
		Method:      http.MethodPost,
		Path:        "/sql_code",
		Summary:     "Submit SQL code",
		Description: "Accepts a SQL snippet. Rate limited per client address.",
		Tags:        []string{"Code"},
		Errors:      []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
		Metadata:    policies.SQLCode.Metadata(),
	}, h.SubmitSQLCode)

	// POST /python_code - 3 per 10 seconds by default
	huma.Register(api, huma.Operation{
		OperationID: "submit-python-code",
		Method:      http.MethodPost,
		Path:        "/python_code",
		Summary:     "Submit Python code",
		Description: "Accepts a Python snippet. Rate limited per client address.",
		Tags:        []string{"Code"},
		Errors:      []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
		Metadata:    policies.PythonCode.Metadata(),
	}, h.SubmitPythonCode)
}
