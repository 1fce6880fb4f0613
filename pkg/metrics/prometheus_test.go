package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordSeriesRead("1h", 10)
	r.RecordSeriesRead("1h", 20)
	r.RecordSkippedRecords("1h", 3)
	r.RecordCacheResult("hit")
	r.RecordCacheResult("miss")
	r.RecordCacheResult("hit")
	r.RecordError("series_read")
	r.RecordLatency("series_load", 0.01)
	r.RecordIngest("BTCUSDT", "1h", 42)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.seriesReads.WithLabelValues("1h")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.skippedRecords.WithLabelValues("1h")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheResults.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheResults.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("series_read")))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.ingestedBars.WithLabelValues("BTCUSDT", "1h")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["quantlab_series_rows"])
	assert.True(t, names["quantlab_operation_duration_seconds"])
}

func TestRecordersUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(200))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "unknown", StatusClass(0))
}
