package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dispatch service.
type Metrics struct {
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	DispatchAttempts *prometheus.HistogramVec
	CarrierErrors    *prometheus.CounterVec
	AutoSendTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		DispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_requests_total",
				Help: "Total dispatch requests by carrier and outcome",
			},
			[]string{"carrier", "status"},
		),
		DispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_duration_seconds",
				Help:    "End-to-end dispatch duration in seconds by carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"carrier"},
		),
		DispatchAttempts: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatch_attempts",
				Help:    "Carrier call attempts consumed per dispatch",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"carrier"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error code",
			},
			[]string{"carrier", "code"},
		),
		AutoSendTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatch_autosend_total",
				Help: "Auto-send trigger outcomes by carrier and status",
			},
			[]string{"carrier", "status"},
		),
	}
}

// RecordDispatch records one completed dispatch.
func (m *Metrics) RecordDispatch(carrier, status string, seconds float64, attempts int) {
	m.DispatchTotal.WithLabelValues(carrier, status).Inc()
	m.DispatchDuration.WithLabelValues(carrier).Observe(seconds)
	m.DispatchAttempts.WithLabelValues(carrier).Observe(float64(attempts))
}

// RecordCarrierError records a carrier error metric.
func (m *Metrics) RecordCarrierError(carrier, code string) {
	m.CarrierErrors.WithLabelValues(carrier, code).Inc()
}

// RecordAutoSend records an auto-send trigger outcome.
func (m *Metrics) RecordAutoSend(carrier, status string) {
	m.AutoSendTotal.WithLabelValues(carrier, status).Inc()
}
