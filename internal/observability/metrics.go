// Package observability exposes Prometheus counters for authentication outcomes.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every recorder is a no-op on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	AuthOutcomes    *prometheus.CounterVec
	GuardRejections *prometheus.CounterVec
}

// NewMetrics creates a private registry with Go and process collectors plus
// the auth counters.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_operations_total",
				Help:      "Total number of register/login/create operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		GuardRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_guard_rejections_total",
				Help:      "Total number of requests rejected by the access guard by reason",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthOutcomes,
		m.GuardRejections,
	)
	return m
}

func (m *Metrics) RecordOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordGuardRejection(reason string) {
	if m == nil {
		return
	}
	m.GuardRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
