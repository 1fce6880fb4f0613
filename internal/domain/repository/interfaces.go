package repository

import (
	"context"

	"QuantLab/internal/domain/models"
)

// SeriesReader provides read-only access to normalized close series.
type SeriesReader interface {
	// ReadCloseSeries returns the most recent limit points ordered oldest to newest.
	ReadCloseSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.PricePoint, error)
}

// SeriesSource is a SeriesReader that can also expose the full sorted series
// and a version token that changes whenever the backing data changes.
type SeriesSource interface {
	SeriesReader
	LoadSortedSeries(ctx context.Context, symbol, timeframe string) ([]models.PricePoint, error)
	SeriesVersion(ctx context.Context, symbol, timeframe string) (string, error)
}

// BarWriter persists normalized bars for one symbol/timeframe.
type BarWriter interface {
	WriteBars(bars []models.OhlcvBar, symbol, timeframe string) (string, error)
}

type Metrics interface {
	RecordSeriesRead(timeframe string, rows int)
	RecordSkippedRecords(timeframe string, n int)
	RecordCacheResult(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
