package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	applogger "QuantLab/pkg/logger"
	"QuantLab/pkg/util"
)

// CSVSeriesReader implements SeriesSource over flat per-symbol CSV files
// named <symbol>_<timeframe>.csv under a root directory.
// Every call re-reads and re-parses the file.
type CSVSeriesReader struct {
	dir     string
	l       *applogger.Logger
	metrics domrepo.Metrics
}

// CSVReaderOption configures CSVSeriesReader.
type CSVReaderOption func(*CSVSeriesReader)

// WithReaderLogger injects a structured logger.
func WithReaderLogger(l *applogger.Logger) CSVReaderOption {
	return func(r *CSVSeriesReader) { r.l = l }
}

// WithReaderMetrics injects a metrics recorder.
func WithReaderMetrics(m domrepo.Metrics) CSVReaderOption {
	return func(r *CSVSeriesReader) { r.metrics = m }
}

func NewCSVSeriesReader(dir string, opts ...CSVReaderOption) *CSVSeriesReader {
	r := &CSVSeriesReader{dir: dir}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeriesPath returns the file backing symbol/timeframe under dir.
func SeriesPath(dir, symbol, timeframe string) string {
	return filepath.Join(dir, symbol+"_"+timeframe+".csv")
}

// ReadCloseSeries returns the most recent limit points ordered oldest to newest.
// limit <= 0 yields an empty series without touching storage.
func (r *CSVSeriesReader) ReadCloseSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.PricePoint, error) {
	if limit <= 0 {
		return []models.PricePoint{}, nil
	}
	points, err := r.LoadSortedSeries(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	return TailPoints(points, limit), nil
}

// LoadSortedSeries parses the whole backing file and sorts it ascending by timestamp.
// The sort is stable: points sharing a timestamp keep their file order.
func (r *CSVSeriesReader) LoadSortedSeries(ctx context.Context, symbol, timeframe string) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.resolve(symbol, timeframe)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s %s: %w", symbol, timeframe, domrepo.ErrSeriesNotFound)
		}
		r.recordError("series_open")
		return nil, fmt.Errorf("open series: %w", err)
	}
	defer f.Close()

	points, skipped, err := parseCloseSeries(f)
	if err != nil {
		r.recordError("series_read")
		if r.l != nil {
			r.l.Error("series read error",
				applogger.String("path", path),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("read series %s: %w", path, err)
	}

	slices.SortStableFunc(points, func(a, b models.PricePoint) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	if r.metrics != nil {
		r.metrics.RecordSeriesRead(timeframe, len(points))
		if skipped > 0 {
			r.metrics.RecordSkippedRecords(timeframe, skipped)
		}
		r.metrics.RecordLatency("series_load", time.Since(start).Seconds())
	}
	if r.l != nil {
		r.l.Debug("series loaded",
			applogger.String("symbol", symbol),
			applogger.String("tf", timeframe),
			applogger.Int("rows", len(points)),
			applogger.Int("skipped", skipped),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return points, nil
}

// SeriesVersion identifies the current content of the backing file by
// modification time and size.
func (r *CSVSeriesReader) SeriesVersion(ctx context.Context, symbol, timeframe string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := r.resolve(symbol, timeframe)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s %s: %w", symbol, timeframe, domrepo.ErrSeriesNotFound)
		}
		return "", fmt.Errorf("stat series: %w", err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s %s: %w", symbol, timeframe, domrepo.ErrSeriesNotFound)
	}
	return strconv.FormatInt(fi.ModTime().UnixNano(), 10) + "-" + strconv.FormatInt(fi.Size(), 10), nil
}

func (r *CSVSeriesReader) resolve(symbol, timeframe string) (string, error) {
	if !domrepo.IsSafeKey(symbol) || !domrepo.IsSafeKey(timeframe) {
		return "", fmt.Errorf("%q %q: %w", symbol, timeframe, domrepo.ErrSeriesNotFound)
	}
	return SeriesPath(r.dir, symbol, timeframe), nil
}

func (r *CSVSeriesReader) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

// TailPoints keeps the last limit points of a sorted series in a fresh slice.
func TailPoints(points []models.PricePoint, limit int) []models.PricePoint {
	if limit <= 0 {
		return []models.PricePoint{}
	}
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return out
}

// parseCloseSeries scans a headed CSV and returns every record with a
// parseable timestamp and finite close, in file order, plus the number of skipped records.
func parseCloseSeries(src io.Reader) ([]models.PricePoint, int, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.PricePoint{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	cols := headerIndex(header)
	tsCols := []int{cols["timestamp_utc"], cols["date"]}
	closeCol := cols["close"]

	points := make([]models.PricePoint, 0, 1024)
	skipped := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, 0, err
		}

		tsRaw := firstNonEmpty(rec, tsCols...)
		closeRaw := field(rec, closeCol)
		if tsRaw == "" || closeRaw == "" {
			skipped++
			continue
		}
		ts, err := util.ParseTimestampUTC(tsRaw)
		if err != nil {
			skipped++
			continue
		}
		c, err := strconv.ParseFloat(closeRaw, 64)
		if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
			skipped++
			continue
		}
		points = append(points, models.PricePoint{Timestamp: ts, Close: c})
	}
	return points, skipped, nil
}

// headerIndex maps column names to positions. The columns the reader needs map to -1 when absent.
func headerIndex(header []string) map[string]int {
	idx := map[string]int{"timestamp_utc": -1, "date": -1, "close": -1}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		// later duplicates win
		idx[name] = i
	}
	return idx
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func firstNonEmpty(rec []string, cols ...int) string {
	for _, c := range cols {
		if v := field(rec, c); v != "" {
			return v
		}
	}
	return ""
}

var _ domrepo.SeriesSource = (*CSVSeriesReader)(nil)
