package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/services/provider"
	applogger "QuantLab/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// RawBarProvider loads a provider's raw export and converts it to bars.
type RawBarProvider interface {
	LoadRawFile(path string) ([]provider.RawRow, error)
	LoadRawURL(ctx context.Context, url string) ([]provider.RawRow, error)
	Normalize(rows []provider.RawRow, src provider.Source) ([]models.OhlcvBar, error)
}

// IngestRecorder receives per-series ingestion counts.
type IngestRecorder interface {
	RecordIngest(symbol, timeframe string, bars int)
	RecordError(kind string)
}

var (
	ErrUnknownSource = errors.New("unknown ingestion source")
	ErrNoRawInput    = errors.New("provide either a raw file or a url")
)

// IngestRequest names one raw export and the series it feeds. RawFile wins
// over URL when both are set.
type IngestRequest struct {
	Source    string `validate:"required"`
	Exchange  string `validate:"required"`
	Symbol    string `validate:"required,excludesall=/\\"`
	Timeframe string `validate:"required,excludesall=/\\"`
	RawFile   string
	URL       string `validate:"omitempty,url"`
}

// IngestResult reports what a run wrote.
type IngestResult struct {
	Bars int
	Path string
}

// Ingestor turns raw provider exports into normalized series files.
type Ingestor struct {
	providers map[string]RawBarProvider
	writer    domrepo.BarWriter
	l         *applogger.Logger
	metrics   IngestRecorder
	validate  *validator.Validate
}

func NewIngestor(providers map[string]RawBarProvider, writer domrepo.BarWriter, l *applogger.Logger, m IngestRecorder) *Ingestor {
	if l == nil {
		l = applogger.Nop()
	}
	return &Ingestor{
		providers: providers,
		writer:    writer,
		l:         l,
		metrics:   m,
		validate:  validator.New(),
	}
}

// Run loads the raw export, normalizes it and replaces the series file.
func (in *Ingestor) Run(ctx context.Context, req IngestRequest) (IngestResult, error) {
	start := time.Now()
	req.RawFile = strings.TrimSpace(req.RawFile)
	req.URL = strings.TrimSpace(req.URL)

	if err := in.validate.StructCtx(ctx, req); err != nil {
		return IngestResult{}, fmt.Errorf("invalid ingest request: %w", err)
	}
	p, ok := in.providers[req.Source]
	if !ok {
		return IngestResult{}, fmt.Errorf("%w: %q", ErrUnknownSource, req.Source)
	}
	if req.RawFile == "" && req.URL == "" {
		return IngestResult{}, ErrNoRawInput
	}

	var (
		rows []provider.RawRow
		err  error
	)
	if req.RawFile != "" {
		rows, err = p.LoadRawFile(req.RawFile)
	} else {
		rows, err = p.LoadRawURL(ctx, req.URL)
	}
	if err != nil {
		in.recordError("ingest_load")
		return IngestResult{}, fmt.Errorf("load raw: %w", err)
	}

	bars, err := p.Normalize(rows, provider.Source{
		Exchange:  req.Exchange,
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
	})
	if err != nil {
		in.recordError("ingest_normalize")
		return IngestResult{}, fmt.Errorf("normalize: %w", err)
	}

	path, err := in.writer.WriteBars(bars, req.Symbol, req.Timeframe)
	if err != nil {
		in.recordError("ingest_write")
		return IngestResult{}, fmt.Errorf("write bars: %w", err)
	}

	if in.metrics != nil {
		in.metrics.RecordIngest(req.Symbol, req.Timeframe, len(bars))
	}
	in.l.Info("ingest complete",
		applogger.String("source", req.Source),
		applogger.String("exchange", req.Exchange),
		applogger.String("symbol", req.Symbol),
		applogger.String("tf", req.Timeframe),
		applogger.Int("bars", len(bars)),
		applogger.String("path", path),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return IngestResult{Bars: len(bars), Path: path}, nil
}

func (in *Ingestor) recordError(kind string) {
	if in.metrics != nil {
		in.metrics.RecordError(kind)
	}
}
