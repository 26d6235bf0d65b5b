package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cellsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "cells_saved_total",
			Help:      "Cells written by save requests, by operation.",
		},
		[]string{"op"},
	)

	savePayloadCells = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "save_payload_cells",
			Help:      "Number of cells per save request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	matricesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "matrices_created_total",
			Help:      "Matrices created.",
		},
	)

	authEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by outcome.",
		},
		[]string{"event"},
	)

	backendUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "readiness",
			Name:      "backend_up",
			Help:      "Result of the last readiness ping, 1 when the backend answered.",
		},
		[]string{"backend"},
	)

	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
)

// Auth event labels.
const (
	AuthLogin    = "login"
	AuthLogout   = "logout"
	AuthRejected = "rejected"
)

// ObserveSave records one save request of painted and cleared cells.
func ObserveSave(painted, cleared int) {
	cellsSaved.WithLabelValues("paint").Add(float64(painted))
	cellsSaved.WithLabelValues("clear").Add(float64(cleared))
	savePayloadCells.Observe(float64(painted + cleared))
}

// MatrixCreated counts a new matrix.
func MatrixCreated() { matricesCreated.Inc() }

// AuthEvent counts an authentication outcome.
func AuthEvent(event string) { authEvents.WithLabelValues(event).Inc() }

// RateLimited counts a throttled request.
func RateLimited() { rateLimited.Inc() }

// BackendUp records the outcome of a readiness ping.
func BackendUp(backend string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	backendUp.WithLabelValues(backend).Set(v)
}
