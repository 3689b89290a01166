// Package middleware provides cross-cutting concerns for the tournament
// engines: metrics, tracing and per-round operation guards.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/go-tabroom/internal/ports"
)

// Metric names the service reports through the collector.
const (
	MetricOperations       = "operations_total"
	MetricDrawFlags        = "draw_flags_total"
	MetricPairings         = "pairings"
	MetricBreakingTeams    = "breaking_teams"
	MetricAllocationScore  = "allocation_objective"
	MetricAdjShortfall     = "adjudicator_shortfall"
	MetricInvalidPanels    = "invalid_panels"
	MetricOperationRejects = "operation_rejected_total"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks engine latency, outcomes and the headline numbers of each run.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	drawFlags        *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
	valueHistogram   *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	pm := &PrometheusMetrics{
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tabroom",
				Name:      "operation_duration_seconds",
				Help:      "Execution time of draw, allocation and break operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "tournament"},
		),
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tabroom",
				Name:      "operations_total",
				Help:      "Total number of engine operations by outcome.",
			},
			[]string{"operation", "status", "tournament"},
		),
		drawFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tabroom",
				Name:      "draw_flags_total",
				Help:      "Draw flags raised on generated pairings.",
			},
			[]string{"flag", "tournament"},
		),
		stateGauges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "tabroom",
				Name:      "state",
				Help:      "Latest headline values of engine runs.",
			},
			[]string{"metric", "tournament"},
		),
		valueHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tabroom",
				Name:      "values",
				Help:      "Distributions of engine outputs such as allocation objectives.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"metric", "tournament"},
		),
	}

	collectors := map[string]prometheus.Collector{
		"operation_duration_seconds": pm.operationLatency,
		"operations_total":           pm.operationCounter,
		"draw_flags_total":           pm.drawFlags,
		"state":                      pm.stateGauges,
		"values":                     pm.valueHistogram,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, ports.NewMetricsError(name, "Register", err)
		}
	}
	return pm, nil
}

func tournamentLabel(labels map[string]string) string {
	if t := labels["tournament"]; t != "" {
		return t
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, tournamentLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	tournament := tournamentLabel(labels)
	switch metric {
	case MetricDrawFlags:
		pm.drawFlags.WithLabelValues(labels["flag"], tournament).Add(value)
	case MetricOperations:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(labels["operation"], status, tournament).Add(value)
	case MetricOperationRejects:
		pm.operationCounter.WithLabelValues(labels["operation"], "rejected", tournament).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success", tournament).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.stateGauges.WithLabelValues(metric, tournamentLabel(labels)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.valueHistogram.WithLabelValues(metric, tournamentLabel(labels)).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
