package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisions counts proxied HTML requests by gate reason.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "azspeed_gate_decisions_total",
		Help: "Safety gate decisions by reason",
	}, []string{"reason"})

	Optimizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "azspeed_optimizations_total",
		Help: "Rendered documents by outcome",
	}, []string{"status"})

	OptimizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "azspeed_optimize_duration_seconds",
		Help:    "Time spent rewriting one document",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	BytesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azspeed_bytes_saved_total",
		Help: "Bytes removed from documents by the optimizer",
	})

	SafetyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azspeed_safety_errors_total",
		Help: "Errors recorded to the emergency throttle",
	})

	EmergencyTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "azspeed_emergency_disable_total",
		Help: "Times the emergency disable flag was raised",
	})

	UpdateChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "azspeed_update_checks_total",
		Help: "Update metadata lookups by source",
	}, []string{"source"})

	OriginRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "azspeed_origin_requests_total",
		Help: "Requests forwarded to the origin by status class",
	}, []string{"class"})
)

// StatusClass folds an HTTP status into "2xx", "3xx" and so on.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "error"
}
