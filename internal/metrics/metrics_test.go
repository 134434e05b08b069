package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/quota-gate-go/internal/metrics"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err error
}

func (s *stubStore) ExecBatch(_ context.Context, batch *ratelimit.Batch) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}

	return make([]int64, len(batch.Ops)), nil
}

func (s *stubStore) Ping(_ context.Context) error { return s.err }

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.IncDecision("sql_code", metrics.DecisionRejected)
	m.IncPublishFailure()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `ratelimit_decisions_total{decision="rejected",endpoint="sql_code"} 1`)
	assert.Contains(t, body, "ratelimit_audit_publish_failures_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_IncDecision(t *testing.T) {
	m := metrics.New()

	m.IncDecision("sql_code", metrics.DecisionAdmitted)
	m.IncDecision("sql_code", metrics.DecisionAdmitted)
	m.IncDecision("python_code", metrics.DecisionUnavailable)

	count, err := testutil.GatherAndCount(m.Registry(), "ratelimit_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per endpoint/decision pair")
}

func TestInstrumentStore(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{name: "success", err: nil, result: "ok"},
		{name: "timeout", err: fmt.Errorf("%w: %w", ratelimit.ErrStoreUnavailable, context.DeadlineExceeded), result: "timeout"},
		{name: "error", err: errors.New("connection refused"), result: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			s := metrics.InstrumentStore(&stubStore{err: tt.err}, m)

			batch := ratelimit.NewBatch("key").Count()
			res, err := s.ExecBatch(context.Background(), batch)

			if tt.err != nil {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, res, 1)
			}

			families, err := m.Registry().Gather()
			require.NoError(t, err)

			var found bool

			for _, mf := range families {
				if mf.GetName() != "ratelimit_store_batch_duration_seconds" {
					continue
				}

				for _, metric := range mf.GetMetric() {
					for _, label := range metric.GetLabel() {
						if label.GetName() == "result" && label.GetValue() == tt.result {
							found = true
							assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
						}
					}
				}
			}

			assert.True(t, found, "expected a %q observation", tt.result)
		})
	}

	t.Run("ping passes through", func(t *testing.T) {
		s := metrics.InstrumentStore(&stubStore{}, metrics.New())

		assert.NoError(t, s.Ping(context.Background()))
	})
}
