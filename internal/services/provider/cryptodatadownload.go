package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"QuantLab/internal/domain/models"
	"QuantLab/pkg/util"

	"github.com/go-resty/resty/v2"
)

// SourceCryptoDataDownload names bars produced by this provider.
const SourceCryptoDataDownload = "cryptodatadownload"

// RawRow is one raw provider record keyed by header name.
type RawRow map[string]string

// Source identifies what a raw file contains.
type Source struct {
	Exchange  string
	Symbol    string
	Timeframe string
}

// Volume columns in preference order: quote volume first, then base volume.
var (
	quoteVolumeKeys = []string{"Volume USDT", "Volume USD", "volume", "Volume"}
	baseVolumeKeys  = []string{"Volume BTC", "Volume ETH"}
)

// CryptoDataDownloadProvider loads and normalizes CryptoDataDownload CSV exports.
type CryptoDataDownloadProvider struct {
	client *resty.Client
}

// ProviderOption configures CryptoDataDownloadProvider.
type ProviderOption func(*CryptoDataDownloadProvider)

// WithHTTPTimeout bounds URL downloads.
func WithHTTPTimeout(d time.Duration) ProviderOption {
	return func(p *CryptoDataDownloadProvider) { p.client.SetTimeout(d) }
}

// WithRestyClient replaces the HTTP client.
func WithRestyClient(c *resty.Client) ProviderOption {
	return func(p *CryptoDataDownloadProvider) { p.client = c }
}

func NewCryptoDataDownloadProvider(opts ...ProviderOption) *CryptoDataDownloadProvider {
	p := &CryptoDataDownloadProvider{
		client: resty.New().
			SetTimeout(30*time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadRawFile reads a raw CSV export from disk.
func (p *CryptoDataDownloadProvider) LoadRawFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw file: %w", err)
	}
	defer f.Close()
	return ParseRawCSV(f)
}

// LoadRawURL downloads a raw CSV export.
func (p *CryptoDataDownloadProvider) LoadRawURL(ctx context.Context, url string) ([]RawRow, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv, */*").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode())
	}
	body := bytes.ToValidUTF8(resp.Body(), []byte("\uFFFD"))
	return ParseRawCSV(bytes.NewReader(body))
}

// ParseRawCSV reads a headed CSV into header-keyed rows. A leading banner line
// starting with "http" (CryptoDataDownload prepends its site URL) is skipped.
func ParseRawCSV(src io.Reader) ([]RawRow, error) {
	br := bufio.NewReader(src)
	if first, err := br.Peek(4); err == nil && strings.EqualFold(string(first), "http") {
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("skip banner: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []RawRow{}, nil
		}
		return nil, fmt.Errorf("read raw header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([]RawRow, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read raw record: %w", err)
		}
		row := make(RawRow, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize converts raw rows into bars. Rows without a date are skipped; a
// row with an unsupported date or a missing OHLC value fails the whole batch.
func (p *CryptoDataDownloadProvider) Normalize(rows []RawRow, src Source) ([]models.OhlcvBar, error) {
	bars := make([]models.OhlcvBar, 0, len(rows))
	for i, row := range rows {
		dateStr := strings.TrimSpace(firstSet(row, "date", "Date"))
		if dateStr == "" {
			continue
		}
		ts, err := util.ParseDateUTC(dateStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		var ohlc [4]float64
		for j, keys := range [][]string{
			{"open", "Open"},
			{"high", "High"},
			{"low", "Low"},
			{"close", "Close"},
		} {
			v, ok := parseFloatOptional(row, keys...)
			if !ok {
				return nil, fmt.Errorf("row %d: missing numeric value for keys: %v", i+1, keys)
			}
			ohlc[j] = v
		}

		volume, ok := parseFloatOptional(row, quoteVolumeKeys...)
		if !ok {
			volume, ok = parseFloatOptional(row, baseVolumeKeys...)
		}
		if !ok {
			volume = 0
		}

		bars = append(bars, models.OhlcvBar{
			Symbol:    src.Symbol,
			Timestamp: ts,
			Open:      ohlc[0],
			High:      ohlc[1],
			Low:       ohlc[2],
			Close:     ohlc[3],
			Volume:    volume,
			Source:    SourceCryptoDataDownload,
			Timeframe: src.Timeframe,
		})
	}
	return bars, nil
}

func firstSet(row RawRow, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// parseFloatOptional returns the first non-empty value among keys. An
// unparseable first value counts as absent; later keys are not consulted.
func parseFloatOptional(row RawRow, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := row[k]
		if !ok {
			continue
		}
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
