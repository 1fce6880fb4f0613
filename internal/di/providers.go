package di

import (
	"context"
	"fmt"
	"time"

	"QuantLab/internal/domain/repository"
	"QuantLab/internal/handler/api"
	internalrepo "QuantLab/internal/repository"
	icache "QuantLab/internal/service/cache"
	svcmetrics "QuantLab/internal/service/metrics"
	"QuantLab/internal/service/ratelimit"
	"QuantLab/internal/services/provider"
	"QuantLab/internal/usecase"
	"QuantLab/pkg/config"
	xhttp "QuantLab/pkg/http"
	"QuantLab/pkg/http/middleware"
	applogger "QuantLab/pkg/logger"
	"QuantLab/pkg/metrics"
	"QuantLab/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideEndpointMetrics creates the per-endpoint latency and error metrics.
func ProvideEndpointMetrics() *svcmetrics.EndpointMetrics {
	return svcmetrics.NewEndpointMetrics(prometheus.DefaultRegisterer)
}

// ProvideCache creates the configured series cache backend, or nil when caching is off.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (icache.BytesCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		return provideRedisCache(cfg, l), nil
	case "layered":
		return icache.NewLayeredCache(icache.NewTTLCache(1024), provideRedisCache(cfg, l), time.Minute), nil
	case "memory":
		return icache.NewTTLCache(1024), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func provideRedisCache(cfg *config.Config, l *applogger.Logger) *icache.RedisCache {
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		// keep serving; the cached reader falls back to disk on every error
		l.Warn("redis cache unreachable", applogger.String("addr", cfg.Cache.Redis.Addr), applogger.Error(err))
	}
	return rc
}

// ProvideSeriesReader creates the CSV reader, wrapped in the cache decorator when a cache is configured.
func ProvideSeriesReader(cfg *config.Config, cache icache.BytesCache, l *applogger.Logger, m repository.Metrics) repository.SeriesReader {
	csvReader := internalrepo.NewCSVSeriesReader(cfg.Storage.NormalizedDir,
		internalrepo.WithReaderLogger(l),
		internalrepo.WithReaderMetrics(m),
	)
	if cache == nil {
		return csvReader
	}
	return internalrepo.NewCachedSeriesReader(csvReader, cache, cfg.Cache.TTL, l, m)
}

// ProvideSeriesQuery creates the query use case.
func ProvideSeriesQuery(reader repository.SeriesReader, m repository.Metrics) *usecase.SeriesQuery {
	return usecase.NewSeriesQuery(reader, m)
}

// ProvideAssetsHandler creates the asset analytics HTTP handler.
func ProvideAssetsHandler(l *applogger.Logger, q *usecase.SeriesQuery, em *svcmetrics.EndpointMetrics) *api.AssetsEchoHandler {
	return api.NewAssetsEchoHandler(l, q, em)
}

// ProvideRateLimiter creates the per-client limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideHTTPServer creates the Echo server with every route registered.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.AssetsEchoHandler, limiter middleware.Limiter) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(metricsPath, nil, nil),
		xhttp.WithRateLimiter(limiter),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(srv *xhttp.Server, l *applogger.Logger, cache icache.BytesCache) *server.App {
	if cache == nil {
		return server.New(srv, l)
	}
	return server.New(srv, l, cache)
}

// ProvideRawProviders registers the supported raw data sources.
func ProvideRawProviders(cfg *config.Config) map[string]usecase.RawBarProvider {
	return map[string]usecase.RawBarProvider{
		provider.SourceCryptoDataDownload: provider.NewCryptoDataDownloadProvider(
			provider.WithHTTPTimeout(cfg.Ingest.Timeout),
		),
	}
}

// ProvideBarWriter creates the normalized series writer.
func ProvideBarWriter(cfg *config.Config) repository.BarWriter {
	return internalrepo.NewCSVBarWriter(cfg.Storage.NormalizedDir)
}

// ProvideIngestor creates the ingestion use case.
func ProvideIngestor(providers map[string]usecase.RawBarProvider, w repository.BarWriter, l *applogger.Logger, m *metrics.Recorder) *usecase.Ingestor {
	return usecase.NewIngestor(providers, w, l, m)
}
