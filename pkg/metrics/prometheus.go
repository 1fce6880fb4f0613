package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	seriesReads    *prometheus.CounterVec
	seriesRows     *prometheus.HistogramVec
	skippedRecords *prometheus.CounterVec
	cacheResults   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	ingestedBars   *prometheus.GaugeVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		seriesReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_series_reads_total",
				Help: "Total number of normalized series files parsed",
			},
			[]string{"timeframe"},
		),
		seriesRows: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_series_rows",
				Help:    "Rows kept per parsed series file",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"timeframe"},
		),
		skippedRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_series_skipped_records_total",
				Help: "Records dropped while parsing series files",
			},
			[]string{"timeframe"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_series_cache_total",
				Help: "Series cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantlab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantlab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ingestedBars: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantlab_ingested_bars",
				Help: "Bars written by the last ingestion of a series",
			},
			[]string{"symbol", "timeframe"},
		),
	}
}

// RecordSeriesRead records one parsed series file and the rows it yielded.
func (r *Recorder) RecordSeriesRead(timeframe string, rows int) {
	r.seriesReads.WithLabelValues(timeframe).Inc()
	r.seriesRows.WithLabelValues(timeframe).Observe(float64(rows))
}

// RecordSkippedRecords records malformed records dropped by the reader.
func (r *Recorder) RecordSkippedRecords(timeframe string, n int) {
	r.skippedRecords.WithLabelValues(timeframe).Add(float64(n))
}

// RecordCacheResult records a series cache lookup ("hit" or "miss").
func (r *Recorder) RecordCacheResult(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordIngest records how many bars the last ingestion wrote for a series.
func (r *Recorder) RecordIngest(symbol, timeframe string, bars int) {
	r.ingestedBars.WithLabelValues(symbol, timeframe).Set(float64(bars))
}

// StatusClass buckets an HTTP status code into "2xx", "4xx" and so on.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
