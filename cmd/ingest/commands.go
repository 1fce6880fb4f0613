package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"QuantLab/internal/di"
	"QuantLab/internal/services/provider"
	"QuantLab/internal/usecase"
	"QuantLab/pkg/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type ingestFlags struct {
	configPath    string
	source        string
	exchange      string
	symbol        string
	timeframe     string
	rawFile       string
	url           string
	normalizedDir string
	schedule      string
}

func (f *ingestFlags) request() usecase.IngestRequest {
	return usecase.IngestRequest{
		Source:    f.source,
		Exchange:  f.exchange,
		Symbol:    f.symbol,
		Timeframe: f.timeframe,
		RawFile:   f.rawFile,
		URL:       f.url,
	}
}

// loadConfig reads the shared config and applies command-line overrides.
func (f *ingestFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.LoadWithEnv(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("normalized-dir") {
		cfg.Storage.NormalizedDir = f.normalizedDir
	}
	if f.schedule == "" {
		f.schedule = cfg.Ingest.Schedule
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	f := &ingestFlags{}

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "QuantLab data ingestion (raw CSV -> normalized CSV)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "config/config.yaml", "config file path")
	root.PersistentFlags().StringVar(&f.source, "source", provider.SourceCryptoDataDownload, "raw data source (cryptodatadownload)")
	root.PersistentFlags().StringVar(&f.exchange, "exchange", "", "exchange name, e.g. binance")
	root.PersistentFlags().StringVar(&f.symbol, "symbol", "", "symbol, e.g. BTCUSDT")
	root.PersistentFlags().StringVar(&f.timeframe, "timeframe", "", "timeframe, e.g. 1h or 1d")
	root.PersistentFlags().StringVar(&f.normalizedDir, "normalized-dir", "data/normalized", "output directory for normalized CSV")
	for _, name := range []string{"exchange", "symbol", "timeframe"} {
		_ = root.MarkPersistentFlagRequired(name)
	}

	root.AddCommand(newRunCmd(f))
	root.AddCommand(newWatchCmd(f))
	return root
}

func newRunCmd(f *ingestFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest one raw export into the normalized store",
		Example: "  ingest run --exchange binance --symbol BTCUSDT --timeframe 1h --raw-file data/raw/Binance_BTCUSDT_1h.csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.rawFile == "" && f.url == "" {
				return usecase.ErrNoRawInput
			}
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			ingestor, err := di.InitializeIngestor(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Ingest.Timeout)
			defer cancel()
			res, err := ingestor.Run(ctx, f.request())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Normalized bars: %d\n", res.Bars)
			fmt.Fprintf(cmd.OutOrStdout(), "Saved to: %s\n", res.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.rawFile, "raw-file", "", "path to raw CSV file (preferred for reproducibility)")
	cmd.Flags().StringVar(&f.url, "url", "", "URL to download raw CSV from")
	return cmd
}

func newWatchCmd(f *ingestFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-ingest a raw export URL on a cron schedule until interrupted",
		Example: "  ingest watch --exchange binance --symbol BTCUSDT --timeframe 1h \\\n" +
			"    --url https://www.cryptodatadownload.com/cdd/Binance_BTCUSDT_1h.csv --schedule '0 5 * * * *'",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.url == "" {
				return errors.New("watch requires --url")
			}
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			ingestor, err := di.InitializeIngestor(cfg)
			if err != nil {
				return err
			}
			l, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			s, err := usecase.NewIngestScheduler(ingestor, f.schedule, f.request(), cfg.Ingest.Timeout, l)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if res, err := s.RunOnce(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Normalized bars: %d -> %s\n", res.Bars, res.Path)
			}
			s.Start()
			<-ctx.Done()
			s.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&f.url, "url", "", "URL to download raw CSV from")
	cmd.Flags().StringVar(&f.schedule, "schedule", "", "cron schedule with seconds field (defaults to ingest.schedule)")
	return cmd
}
