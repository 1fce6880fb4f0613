package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/services/features"
)

// SeriesQuery composes the series reader with the return and volatility
// calculators. It holds no state between calls.
type SeriesQuery struct {
	reader  domrepo.SeriesReader
	metrics domrepo.Metrics
}

func NewSeriesQuery(reader domrepo.SeriesReader, m domrepo.Metrics) *SeriesQuery {
	return &SeriesQuery{reader: reader, metrics: m}
}

// Prices returns the most recent limit closes of symbol/timeframe.
func (q *SeriesQuery) Prices(ctx context.Context, symbol, timeframe string, limit int) (models.PriceSeries, error) {
	defer q.observe("query_prices", time.Now())

	points, err := q.reader.ReadCloseSeries(ctx, symbol, timeframe, limit)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("read prices: %w", err)
	}
	return models.PriceSeries{Symbol: symbol, Timeframe: timeframe, Points: points}, nil
}

// Returns computes returns of kind over the most recent limit closes, so the
// result holds at most limit-1 points.
func (q *SeriesQuery) Returns(ctx context.Context, symbol, timeframe string, kind features.ReturnKind, limit int) ([]models.ReturnPoint, error) {
	defer q.observe("query_returns", time.Now())

	if _, err := features.ParseReturnKind(string(kind)); err != nil {
		return nil, err
	}
	points, err := q.reader.ReadCloseSeries(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("read returns input: %w", err)
	}
	return features.ComputeReturns(points, kind)
}

// Volatility computes the rolling population standard deviation of returns of
// kind over the most recent limit closes.
func (q *SeriesQuery) Volatility(ctx context.Context, symbol, timeframe string, kind features.ReturnKind, window, limit int) ([]models.VolatilityPoint, error) {
	defer q.observe("query_volatility", time.Now())

	if kind == "" {
		kind = features.ReturnLog
	}
	if _, err := features.ParseReturnKind(string(kind)); err != nil {
		return nil, err
	}
	points, err := q.reader.ReadCloseSeries(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("read volatility input: %w", err)
	}
	rets, err := features.ComputeReturns(points, kind)
	if err != nil {
		return nil, err
	}
	return features.RollingStd(rets, window), nil
}

func (q *SeriesQuery) observe(op string, start time.Time) {
	if q.metrics != nil {
		q.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
