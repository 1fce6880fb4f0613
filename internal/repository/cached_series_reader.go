package repository

import (
	"context"
	"encoding/json"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	icache "QuantLab/internal/service/cache"
	applogger "QuantLab/pkg/logger"
)

// CachedSeriesReader memoizes the parsed, sorted series of a SeriesSource.
// Keys embed the source's version token, so a rewritten file misses the cache
// and stale entries simply age out. Cache failures fall back to the source.
type CachedSeriesReader struct {
	src     domrepo.SeriesSource
	cache   icache.BytesCache
	ttl     time.Duration
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func NewCachedSeriesReader(src domrepo.SeriesSource, cache icache.BytesCache, ttl time.Duration, l *applogger.Logger, m domrepo.Metrics) *CachedSeriesReader {
	return &CachedSeriesReader{src: src, cache: cache, ttl: ttl, l: l, metrics: m}
}

type cachedPoint struct {
	T int64   `json:"t"`
	C float64 `json:"c"`
}

func (r *CachedSeriesReader) ReadCloseSeries(ctx context.Context, symbol, timeframe string, limit int) ([]models.PricePoint, error) {
	if limit <= 0 {
		return []models.PricePoint{}, nil
	}

	version, err := r.src.SeriesVersion(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	key := "series:" + symbol + ":" + timeframe + ":" + version

	if b, ok, err := r.cache.GetBytes(ctx, key); err != nil {
		r.warn("series cache get error", key, err)
	} else if ok {
		if points, err := decodePoints(b); err == nil {
			r.recordCache("hit")
			return TailPoints(points, limit), nil
		}
		r.warn("series cache decode error", key, err)
	}
	r.recordCache("miss")

	points, err := r.src.LoadSortedSeries(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}
	if b, err := encodePoints(points); err == nil {
		if err := r.cache.SetBytes(ctx, key, b, r.ttl); err != nil {
			r.warn("series cache set error", key, err)
		}
	}
	return TailPoints(points, limit), nil
}

func (r *CachedSeriesReader) warn(msg, key string, err error) {
	if r.metrics != nil {
		r.metrics.RecordError("series_cache")
	}
	if r.l != nil {
		r.l.Warn(msg, applogger.String("key", key), applogger.Error(err))
	}
}

func (r *CachedSeriesReader) recordCache(result string) {
	if r.metrics != nil {
		r.metrics.RecordCacheResult(result)
	}
}

func encodePoints(points []models.PricePoint) ([]byte, error) {
	out := make([]cachedPoint, len(points))
	for i, p := range points {
		out[i] = cachedPoint{T: p.Timestamp.UnixNano(), C: p.Close}
	}
	return json.Marshal(out)
}

func decodePoints(b []byte) ([]models.PricePoint, error) {
	var in []cachedPoint
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	out := make([]models.PricePoint, len(in))
	for i, p := range in {
		out[i] = models.PricePoint{Timestamp: time.Unix(0, p.T).UTC(), Close: p.C}
	}
	return out, nil
}

var _ domrepo.SeriesReader = (*CachedSeriesReader)(nil)
