// Package middleware provides cross-cutting observability for waterwork
// executions: a Prometheus metrics observer and an OpenTelemetry tracing
// observer. The engine itself stays dependency-free; observers attach via
// engine.WithObserver.
package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cascata/waterworks/ports"
)

var _ ports.ExecObserver = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the ExecObserver interface with Prometheus
// collectors, providing real-time monitoring of execution counts, latency,
// and per-tank hot spots.
type PrometheusMetrics struct {
	executions       *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
	tankLatency      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a metrics observer and registers its
// collectors with reg (the default registerer when nil).
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waterwork_executions_total",
				Help: "Total number of pour/pump executions by outcome.",
			},
			[]string{"graph", "direction", "status"},
		),
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waterwork_execution_duration_seconds",
				Help:    "End-to-end duration of pour/pump executions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"graph", "direction"},
		),
		tankLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waterwork_tank_duration_seconds",
				Help:    "Duration of individual tank evaluations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"graph", "tank", "direction"},
		),
	}
}

// ExecutionStarted implements the ExecObserver interface. Metrics are
// recorded on completion, so the context passes through unchanged.
func (pm *PrometheusMetrics) ExecutionStarted(ctx context.Context, _ string, _ ports.Direction) context.Context {
	return ctx
}

// TankExecuted implements the ExecObserver interface by recording the
// tank's evaluation duration.
func (pm *PrometheusMetrics) TankExecuted(
	_ context.Context, graph, tank string, dir ports.Direction, elapsed time.Duration, _ error,
) {
	pm.tankLatency.WithLabelValues(graph, tank, dir.String()).Observe(elapsed.Seconds())
}

// ExecutionFinished implements the ExecObserver interface by recording the
// execution's duration and outcome.
func (pm *PrometheusMetrics) ExecutionFinished(
	_ context.Context, graph string, dir ports.Direction, elapsed time.Duration, err error,
) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	pm.executions.WithLabelValues(graph, dir.String(), status).Inc()
	pm.executionLatency.WithLabelValues(graph, dir.String()).Observe(elapsed.Seconds())
}
