/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package wsclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Message outcomes.
const (
	OutcomeRouted    = "routed"
	OutcomeUnrouted  = "unrouted"
	OutcomeMalformed = "malformed"
	OutcomeSent      = "sent"
)

// MetricsCollector collects metrics of websocket messages.
type MetricsCollector interface {
	IncMessages(outcome string)
	IncDials(success bool)
}

type disabledMetrics struct{}

func (disabledMetrics) IncMessages(string) {}
func (disabledMetrics) IncDials(bool)      {}

// PrometheusMetrics represents Prometheus metrics of websocket connections.
type PrometheusMetrics struct {
	Messages *prometheus.CounterVec
	Dials    *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_total",
			Help:      "Number of websocket messages by outcome.",
		}, []string{"outcome"}),
		Dials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_dial_attempts_total",
			Help:      "Number of websocket dial attempts.",
		}, []string{"success"}),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		Messages: pm.Messages.MustCurryWith(labels),
		Dials:    pm.Dials.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Messages, pm.Dials)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Messages)
	prometheus.Unregister(pm.Dials)
}

// IncMessages implements MetricsCollector interface.
func (pm *PrometheusMetrics) IncMessages(outcome string) {
	pm.Messages.WithLabelValues(outcome).Inc()
}

// IncDials implements MetricsCollector interface.
func (pm *PrometheusMetrics) IncDials(success bool) {
	label := "false"
	if success {
		label = "true"
	}
	pm.Dials.WithLabelValues(label).Inc()
}
