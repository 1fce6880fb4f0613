package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EndpointMetrics tracks latency and failures of the analytics endpoints.
type EndpointMetrics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewEndpointMetrics(reg prometheus.Registerer) *EndpointMetrics {
	f := promauto.With(reg)
	return &EndpointMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "quantlab",
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quantlab",
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Errors by analytics endpoint and kind",
			},
			[]string{"endpoint", "kind"},
		),
	}
}

// Observe records one call. A nil receiver is a no-op.
func (m *EndpointMetrics) Observe(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Fail counts a failed call by kind ("validation", "not_found", "internal").
func (m *EndpointMetrics) Fail(endpoint, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(endpoint, kind).Inc()
}
