package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "QuantLab/pkg/logger"

	"github.com/robfig/cron/v3"
)

// IngestScheduler repeats one ingestion on a cron schedule (seconds field enabled).
// Runs never overlap; a tick that arrives while a run is active is skipped.
type IngestScheduler struct {
	cron     *cron.Cron
	ingestor *Ingestor
	req      IngestRequest
	timeout  time.Duration
	l        *applogger.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewIngestScheduler(ingestor *Ingestor, schedule string, req IngestRequest, timeout time.Duration, l *applogger.Logger) (*IngestScheduler, error) {
	if l == nil {
		l = applogger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &IngestScheduler{
		cron:     cron.New(cron.WithSeconds()),
		ingestor: ingestor,
		req:      req,
		timeout:  timeout,
		l:        l,
		ctx:      ctx,
		cancel:   cancel,
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce() }); err != nil {
		cancel()
		return nil, fmt.Errorf("register ingest schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs a single ingestion unless one is already in progress.
func (s *IngestScheduler) RunOnce() (IngestResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.l.Warn("ingest still running, tick skipped", applogger.String("symbol", s.req.Symbol))
		return IngestResult{}, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.ingestor.Run(ctx, s.req)
	if err != nil {
		s.l.Error("scheduled ingest failed",
			applogger.String("symbol", s.req.Symbol),
			applogger.String("tf", s.req.Timeframe),
			applogger.Error(err),
		)
	}
	return res, err
}

// Start starts the cron scheduler.
func (s *IngestScheduler) Start() {
	s.cron.Start()
	s.l.Info("ingest scheduler started", applogger.String("symbol", s.req.Symbol), applogger.String("tf", s.req.Timeframe))
}

// Stop cancels any in-flight run and waits for it to return.
func (s *IngestScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.l.Info("ingest scheduler stopped")
}
