// Package metrics exposes Prometheus counters for limiter decisions and the
// latency of window store batches.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/quota-gate-go/internal/ratelimit"
)

// Decision labels.
const (
	DecisionAdmitted    = "admitted"
	DecisionRejected    = "rejected"
	DecisionUnavailable = "unavailable"
	DecisionFailOpen    = "fail_open"
)

// Metrics holds the registry and collectors for the service.
type Metrics struct {
	reg          *prometheus.Registry
	handler      http.Handler
	decisions    *prometheus.CounterVec
	batchLatency *prometheus.HistogramVec
	publishFails prometheus.Counter
}

// New returns a fresh registry with Go/process collectors and limiter metrics.
// Labels are restricted to endpoint identities and fixed outcomes; client
// identities are never used as labels.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint and outcome",
		}, []string{"endpoint", "decision"}),
		batchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimit_store_batch_duration_seconds",
			Help:    "Latency of window store batches by result",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"result"}),
		publishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_audit_publish_failures_total",
			Help: "Quota events that could not be published",
		}),
	}
	reg.MustRegister(m.decisions, m.batchLatency, m.publishFails)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) IncDecision(endpoint, decision string) {
	m.decisions.WithLabelValues(endpoint, decision).Inc()
}

func (m *Metrics) IncPublishFailure() {
	m.publishFails.Inc()
}

func (m *Metrics) observeBatch(d time.Duration, err error) {
	result := "ok"

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	}

	m.batchLatency.WithLabelValues(result).Observe(d.Seconds())
}

// InstrumentedStore decorates a WindowStore with batch latency metrics.
type InstrumentedStore struct {
	next    ratelimit.WindowStore
	metrics *Metrics
}

// InstrumentStore wraps next so every batch is timed.
func InstrumentStore(next ratelimit.WindowStore, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: m}
}

func (s *InstrumentedStore) ExecBatch(ctx context.Context, batch *ratelimit.Batch) ([]int64, error) {
	start := time.Now()
	res, err := s.next.ExecBatch(ctx, batch)
	s.metrics.observeBatch(time.Since(start), err)

	return res, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Compile-time check.
var _ ratelimit.WindowStore = (*InstrumentedStore)(nil)
