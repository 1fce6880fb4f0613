//go:build wireinject
// +build wireinject

package di

import (
	"QuantLab/internal/domain/repository"
	"QuantLab/internal/usecase"
	"QuantLab/pkg/config"
	"QuantLab/pkg/metrics"
	"QuantLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
		ProvideEndpointMetrics,

		// Storage
		ProvideCache,
		ProvideSeriesReader,

		// Use cases and transport
		ProvideSeriesQuery,
		ProvideAssetsHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeIngestor wires the ingestion pipeline used by cmd/ingest.
func InitializeIngestor(cfg *config.Config) (*usecase.Ingestor, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideRawProviders,
		ProvideBarWriter,
		ProvideIngestor,
	)
	return &usecase.Ingestor{}, nil
}
