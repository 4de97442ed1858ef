package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type prometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

func newPrometheusMetrics(reg prometheus.Registerer, namespace string) *prometheusMetrics {
	labels := []string{"operation", "component"}
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Number of operation attempts.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_successes_total",
			Help:      "Number of operations that completed successfully.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Number of operations that failed.",
		}, labels),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	reg.MustRegister(m.attempts, m.successes, m.failures, m.durations)
	return m
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, component string) {
	m.attempts.WithLabelValues(operation, component).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, component string) {
	m.successes.WithLabelValues(operation, component).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, component string) {
	m.failures.WithLabelValues(operation, component).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, component string, duration time.Duration) {
	m.durations.WithLabelValues(operation, component).Observe(duration.Seconds())
}

// NoOpMetrics satisfies Metrics without recording anything. Used in tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
