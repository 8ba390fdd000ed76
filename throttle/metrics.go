/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelRule    = "rule"
	metricsLabelOutcome = "outcome"
)

// Outcome describes what happened with a call that hit a rate limit.
type Outcome string

// Outcomes of throttled calls.
const (
	OutcomeDelayed  Outcome = "delayed"
	OutcomeRejected Outcome = "rejected"
	OutcomeChained  Outcome = "chained"
)

// MetricsCollector collects metrics of throttled calls.
type MetricsCollector interface {
	// ObserveThrottled is called every time a call cannot proceed immediately because of the rule.
	ObserveThrottled(ruleID string, outcome Outcome, delay time.Duration)
}

type disabledMetrics struct{}

func (disabledMetrics) ObserveThrottled(string, Outcome, time.Duration) {}

// PrometheusMetrics represents Prometheus metrics of throttled calls.
type PrometheusMetrics struct {
	ThrottledCalls *prometheus.CounterVec
	Delays         *prometheus.HistogramVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	throttledCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "throttled_calls_total",
		Help:      "Number of outbound calls that could not proceed immediately due to rate limits.",
	}, []string{metricsLabelRule, metricsLabelOutcome})

	delays := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "throttle_delay_seconds",
		Help:      "A histogram of delays required by rate limits for delayed and rejected calls.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{metricsLabelRule, metricsLabelOutcome})

	return &PrometheusMetrics{ThrottledCalls: throttledCalls, Delays: delays}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		ThrottledCalls: pm.ThrottledCalls.MustCurryWith(labels),
		Delays:         pm.Delays.MustCurryWith(labels).(*prometheus.HistogramVec),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.ThrottledCalls, pm.Delays)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.ThrottledCalls)
	prometheus.Unregister(pm.Delays)
}

// ObserveThrottled implements MetricsCollector interface.
func (pm *PrometheusMetrics) ObserveThrottled(ruleID string, outcome Outcome, delay time.Duration) {
	pm.ThrottledCalls.WithLabelValues(ruleID, string(outcome)).Inc()
	if outcome != OutcomeChained {
		pm.Delays.WithLabelValues(ruleID, string(outcome)).Observe(delay.Seconds())
	}
}
