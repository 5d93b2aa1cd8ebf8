// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package metrics exports pinning decisions as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-tlspin/pkg/pinning"
)

// Label values for the decision label.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"

	// reasonNone is the reason label of accepted decisions.
	reasonNone = "none"
)

// Metrics provides observability for the pinning engine. It implements
// pinning.Reporter so it can be attached next to the slog reporter with
// pinning.MultiReporter. All methods are safe on a nil receiver.
type Metrics struct {
	// Decisions counts engine decisions by outcome and reason.
	Decisions *prometheus.CounterVec

	// RegistryAuthorities is the number of authorities in the active registry.
	RegistryAuthorities prometheus.Gauge

	// ProbeDuration observes pinned probe round trips by outcome.
	ProbeDuration *prometheus.HistogramVec
}

// New creates the pinning metrics and registers them with reg. A nil reg
// creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tlspin_pin_decisions_total",
			Help: "Total pinning decisions by outcome and reason",
		}, []string{"decision", "reason"}),

		RegistryAuthorities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tlspin_pin_registry_authorities",
			Help: "Number of authorities with a configured pin",
		}),

		ProbeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tlspin_probe_duration_seconds",
			Help:    "Duration of pinned probe requests by outcome",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}), // outcome: "accept", "reject", "error"
	}
}

// Report counts a decision event.
func (m *Metrics) Report(e pinning.Event) {
	if m == nil {
		return
	}
	if e.Decision.Accepted {
		m.Decisions.WithLabelValues(DecisionAccept, reasonNone).Inc()
		return
	}
	m.Decisions.WithLabelValues(DecisionReject, string(e.Decision.Reason)).Inc()
}

// SetAuthorities records the size of the active registry.
func (m *Metrics) SetAuthorities(n int) {
	if m != nil {
		m.RegistryAuthorities.Set(float64(n))
	}
}

// ObserveProbe records the duration of a probe.
func (m *Metrics) ObserveProbe(outcome string, d time.Duration) {
	if m != nil {
		m.ProbeDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
