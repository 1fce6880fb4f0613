package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/pkg/util"
)

// NormalizedHeader is the column layout of normalized series files.
var NormalizedHeader = []string{
	"symbol",
	"timestamp_utc",
	"open",
	"high",
	"low",
	"close",
	"volume",
	"source",
	"timeframe",
}

// CSVBarWriter writes normalized bars to <dir>/<symbol>_<timeframe>.csv.
type CSVBarWriter struct {
	dir string
}

func NewCSVBarWriter(dir string) *CSVBarWriter {
	return &CSVBarWriter{dir: dir}
}

// WriteBars replaces the series file for symbol/timeframe and returns its path.
// The file is written to a temp file in the same directory and renamed into
// place, so concurrent readers see either the old or the new content.
func (w *CSVBarWriter) WriteBars(bars []models.OhlcvBar, symbol, timeframe string) (string, error) {
	if !domrepo.IsSafeKey(symbol) || !domrepo.IsSafeKey(timeframe) {
		return "", fmt.Errorf("invalid series key %q %q", symbol, timeframe)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create normalized dir: %w", err)
	}

	path := SeriesPath(w.dir, symbol, timeframe)
	tmp, err := os.CreateTemp(w.dir, "."+symbol+"_"+timeframe+"-*.csv.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(NormalizedHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, b := range bars {
		if err := cw.Write(barRecord(b)); err != nil {
			return "", fmt.Errorf("write bar: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush bars: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync bars: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return "", fmt.Errorf("replace series file: %w", err)
	}
	committed = true
	return path, nil
}

func barRecord(b models.OhlcvBar) []string {
	return []string{
		b.Symbol,
		util.FormatISOUTC(b.Timestamp),
		formatFloat(b.Open),
		formatFloat(b.High),
		formatFloat(b.Low),
		formatFloat(b.Close),
		formatFloat(b.Volume),
		b.Source,
		b.Timeframe,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ domrepo.BarWriter = (*CSVBarWriter)(nil)
