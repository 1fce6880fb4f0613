package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantLab/internal/usecase"
)

const rawExport = "https://www.CryptoDataDownload.com\n" +
	"Unix,Date,Symbol,Open,High,Low,Close,Volume BTC,Volume USDT,tradecount\n" +
	"1704067200000,2024-01-01 00:00:00,BTCUSDT,42000,42100,41900,42050,10,420500,1000\n"

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandWritesNormalizedFile(t *testing.T) {
	tmp := t.TempDir()
	raw := filepath.Join(tmp, "raw.csv")
	require.NoError(t, os.WriteFile(raw, []byte(rawExport), 0o644))
	outDir := filepath.Join(tmp, "normalized")

	out, err := execute("run",
		"--config", filepath.Join(tmp, "missing.yaml"),
		"--exchange", "binance",
		"--symbol", "BTCUSDT",
		"--timeframe", "1h",
		"--raw-file", raw,
		"--normalized-dir", outDir,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Normalized bars: 1")
	assert.FileExists(t, filepath.Join(outDir, "BTCUSDT_1h.csv"))
}

func TestRunCommandNeedsInput(t *testing.T) {
	_, err := execute("run", "--exchange", "binance", "--symbol", "BTCUSDT", "--timeframe", "1h")
	assert.ErrorIs(t, err, usecase.ErrNoRawInput)
}

func TestRunCommandRequiresSeriesFlags(t *testing.T) {
	_, err := execute("run", "--raw-file", "x.csv")
	assert.Error(t, err)
}

func TestWatchCommandNeedsURL(t *testing.T) {
	_, err := execute("watch", "--exchange", "binance", "--symbol", "BTCUSDT", "--timeframe", "1h")
	assert.EqualError(t, err, "watch requires --url")
}
