package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
)

const header = "symbol,timestamp_utc,open,high,low,close,volume,source,timeframe\n"

func writeSeries(t *testing.T, dir, symbol, tf, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(SeriesPath(dir, symbol, tf), []byte(body), 0o644))
}

func hour(h int) time.Time {
	return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC)
}

type fakeMetrics struct {
	mu      sync.Mutex
	reads   int
	rows    int
	skipped int
	cache   map[string]int
	errors  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{cache: map[string]int{}, errors: map[string]int{}}
}

func (m *fakeMetrics) RecordSeriesRead(_ string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	m.rows += rows
}

func (m *fakeMetrics) RecordSkippedRecords(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += n
}

func (m *fakeMetrics) RecordCacheResult(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func TestReadCloseSeriesBasic(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", header+
		"BTCUSDT,2024-01-01T00:00:00+00:00,42000,42100,41900,42050,420500,cryptodatadownload,1h\n"+
		"BTCUSDT,2024-01-01T01:00:00+00:00,42050,42200,42000,42150,505800,cryptodatadownload,1h\n")

	r := NewCSVSeriesReader(dir)
	points, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 500)
	require.NoError(t, err)
	assert.Equal(t, []models.PricePoint{
		{Timestamp: hour(0), Close: 42050},
		{Timestamp: hour(1), Close: 42150},
	}, points)
}

func TestReadCloseSeriesNotFound(t *testing.T) {
	r := NewCSVSeriesReader(t.TempDir())
	_, err := r.ReadCloseSeries(context.Background(), "NOPE", "1h", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
}

func TestReadCloseSeriesEmptyIsNotNotFound(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "ETHUSDT", "1d", header)

	points, err := NewCSVSeriesReader(dir).ReadCloseSeries(context.Background(), "ETHUSDT", "1d", 10)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.NotNil(t, points)

	writeSeries(t, dir, "ETHUSDT", "1w", "")
	points, err = NewCSVSeriesReader(dir).ReadCloseSeries(context.Background(), "ETHUSDT", "1w", 10)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestReadCloseSeriesNonPositiveLimit(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", header+"BTCUSDT,2024-01-01T00:00:00+00:00,1,1,1,1,1,x,1h\n")
	r := NewCSVSeriesReader(dir)

	for _, limit := range []int{0, -1} {
		points, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", limit)
		require.NoError(t, err)
		assert.Empty(t, points)
	}
	// the limit short-circuit happens before storage is consulted
	points, err := r.ReadCloseSeries(context.Background(), "MISSING", "1h", 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestReadCloseSeriesSortsTruncatesAndSkips(t *testing.T) {
	dir := t.TempDir()
	m := newFakeMetrics()
	writeSeries(t, dir, "BTCUSDT", "1h", header+
		"BTCUSDT,2024-01-01T03:00:00+00:00,,,,103,,x,1h\n"+
		"BTCUSDT,2024-01-01 01:00:00,,,,101,,x,1h\n"+
		"BTCUSDT,not-a-time,,,,999,,x,1h\n"+
		"BTCUSDT,2024-01-01T00:00:00Z,,,,100,,x,1h\n"+
		"BTCUSDT,2024-01-01T02:00:00,,,,abc,,x,1h\n"+
		"BTCUSDT,,,,,555,,x,1h\n"+
		"BTCUSDT,2024-01-01T04:00:00+00:00,,,,,,x,1h\n"+
		"BTCUSDT,2024-01-01T04:00:00+02:00,,,,102,,x,1h\n")

	r := NewCSVSeriesReader(dir, WithReaderMetrics(m))
	all, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 100)
	require.NoError(t, err)
	assert.Equal(t, []models.PricePoint{
		{Timestamp: hour(0), Close: 100},
		{Timestamp: hour(1), Close: 101},
		{Timestamp: hour(2), Close: 102},
		{Timestamp: hour(3), Close: 103},
	}, all)
	assert.Equal(t, 4, m.skipped)

	last2, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.PricePoint{
		{Timestamp: hour(2), Close: 102},
		{Timestamp: hour(3), Close: 103},
	}, last2)
}

func TestReadCloseSeriesDuplicatesKeepScanOrder(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", header+
		"BTCUSDT,2024-01-01T01:00:00+00:00,,,,11,,x,1h\n"+
		"BTCUSDT,2024-01-01T00:00:00+00:00,,,,1,,x,1h\n"+
		"BTCUSDT,2024-01-01T01:00:00+00:00,,,,12,,x,1h\n"+
		"BTCUSDT,2024-01-01 01:00:00,,,,13,,x,1h\n")

	r := NewCSVSeriesReader(dir)
	for i := 0; i < 3; i++ {
		points, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 10)
		require.NoError(t, err)
		assert.Equal(t, []models.PricePoint{
			{Timestamp: hour(0), Close: 1},
			{Timestamp: hour(1), Close: 11},
			{Timestamp: hour(1), Close: 12},
			{Timestamp: hour(1), Close: 13},
		}, points)
	}
}

func TestReadCloseSeriesDateColumnFallback(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "SOLUSDT", "1d",
		"\ufeffdate,close\n"+
			"2024-01-02,102.5\n"+
			"2024-01-01 00:00:00,101\n")

	points, err := NewCSVSeriesReader(dir).ReadCloseSeries(context.Background(), "SOLUSDT", "1d", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.PricePoint{
		{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 101},
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 102.5},
	}, points)
}

func TestReadCloseSeriesToleratesRaggedAndQuotedRows(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", "timestamp_utc,close,note\n"+
		"2024-01-01T00:00:00Z,100\n"+
		"2024-01-01T01:00:00Z,\" 101 \",\"a, b\",extra\n"+
		"2024-01-01T02:00:00Z\n")

	points, err := NewCSVSeriesReader(dir).ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.PricePoint{
		{Timestamp: hour(0), Close: 100},
		{Timestamp: hour(1), Close: 101},
	}, points)
}

func TestReadCloseSeriesRejectsUnsafeKeys(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "normalized")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "SECRET_1h.csv"), []byte(header), 0o644))

	r := NewCSVSeriesReader(dir)
	for _, sym := range []string{"../SECRET", "a/b", `a\b`, ""} {
		_, err := r.ReadCloseSeries(context.Background(), sym, "1h", 10)
		assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound, sym)
	}
	_, err := r.ReadCloseSeries(context.Background(), "SECRET", "../1h", 10)
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
}

func TestReadCloseSeriesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCSVSeriesReader(t.TempDir()).ReadCloseSeries(ctx, "BTCUSDT", "1h", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadCloseSeriesReturnsFreshSlices(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", header+"BTCUSDT,2024-01-01T00:00:00Z,,,,1,,x,1h\n")
	r := NewCSVSeriesReader(dir)

	a, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	a[0].Close = 999

	b, err := r.ReadCloseSeries(context.Background(), "BTCUSDT", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b[0].Close)
}

func TestSeriesVersionChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, "BTCUSDT", "1h", header)
	r := NewCSVSeriesReader(dir)

	v1, err := r.SeriesVersion(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)

	writeSeries(t, dir, "BTCUSDT", "1h", header+"BTCUSDT,2024-01-01T00:00:00Z,,,,1,,x,1h\n")
	v2, err := r.SeriesVersion(context.Background(), "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	_, err = r.SeriesVersion(context.Background(), "ETHUSDT", "1h")
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
}

func TestTailPoints(t *testing.T) {
	in := []models.PricePoint{{Close: 1}, {Close: 2}, {Close: 3}}
	assert.Equal(t, []models.PricePoint{{Close: 2}, {Close: 3}}, TailPoints(in, 2))
	assert.Equal(t, in, TailPoints(in, 5))
	assert.Empty(t, TailPoints(in, 0))
}

func TestParseCloseSeriesCountsSkipped(t *testing.T) {
	points, skipped, err := parseCloseSeries(strings.NewReader("timestamp_utc,close\nbad,1\n2024-01-01,2\n"))
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 1, skipped)

	points, skipped, err = parseCloseSeries(strings.NewReader("timestamp_utc,close\n" +
		"2024-01-01,100\n2024-01-02,NaN\n2024-01-03,Inf\n2024-01-04,-Infinity\n2024-01-05,nan\n2024-01-06,101\n"))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 100.0, points[0].Close)
	assert.Equal(t, 101.0, points[1].Close)
	assert.Equal(t, 4, skipped)
}
