package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantLab/internal/repository"
	svcmetrics "QuantLab/internal/service/metrics"
	"QuantLab/internal/usecase"
	xhttp "QuantLab/pkg/http"
)

const normalizedHeader = "symbol,timestamp_utc,open,high,low,close,volume,source,timeframe\n"

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type valuePoint struct {
	Timestamp string  `json:"timestamp_utc"`
	Value     float64 `json:"value"`
}

func newTestEcho(t *testing.T, files map[string]string) *echo.Echo {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	q := usecase.NewSeriesQuery(repository.NewCSVSeriesReader(dir), nil)
	h := NewAssetsEchoHandler(nil, q, svcmetrics.NewEndpointMetrics(prometheus.NewRegistry()))

	e := echo.New()
	e.HTTPErrorHandler = xhttp.ErrorHandler
	h.RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func btcFile() map[string]string {
	return map[string]string{
		"BTCUSDT_1h.csv": normalizedHeader +
			"BTCUSDT,2024-01-01T00:00:00+00:00,42000,42100,41900,42050,420500,cryptodatadownload,1h\n" +
			"BTCUSDT,2024-01-01T01:00:00+00:00,42050,42200,42000,42150,505800,cryptodatadownload,1h\n",
	}
}

func TestPricesEndpoint(t *testing.T) {
	e := newTestEcho(t, btcFile())

	rec, env := get(t, e, "/api/v1/assets/btcusdt/prices?timeframe=1h&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var out struct {
		Symbol    string `json:"symbol"`
		Timeframe string `json:"timeframe"`
		Points    []struct {
			Timestamp string  `json:"timestamp_utc"`
			Close     float64 `json:"close"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "BTCUSDT", out.Symbol)
	assert.Equal(t, "1h", out.Timeframe)
	require.Len(t, out.Points, 2)
	assert.Equal(t, "2024-01-01T00:00:00Z", out.Points[0].Timestamp)
	assert.Equal(t, 42050.0, out.Points[0].Close)
}

func TestPricesEndpointDefaultsAndLimit(t *testing.T) {
	e := newTestEcho(t, btcFile())

	_, env := get(t, e, "/api/v1/assets/BTCUSDT/prices?limit=1")
	var out struct {
		Points []struct {
			Close float64 `json:"close"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Points, 1)
	assert.Equal(t, 42150.0, out.Points[0].Close)
}

func TestPricesEndpointNotFound(t *testing.T) {
	e := newTestEcho(t, nil)

	rec, env := get(t, e, "/api/v1/assets/ethusdt/prices?timeframe=1d")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_NOT_FOUND", errs[0].Code)
	assert.Equal(t, "Normalized data not found for ETHUSDT 1d", errs[0].Message)
}

func TestEmptySeriesIsNotNotFound(t *testing.T) {
	e := newTestEcho(t, map[string]string{"ETHUSDT_1h.csv": normalizedHeader})

	rec, env := get(t, e, "/api/v1/assets/ETHUSDT/returns")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []valuePoint
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Empty(t, out)
}

func TestNonFiniteClosesAreSkipped(t *testing.T) {
	e := newTestEcho(t, map[string]string{
		"BTCUSDT_1h.csv": normalizedHeader +
			"BTCUSDT,2024-01-01T00:00:00+00:00,,,,100,,x,1h\n" +
			"BTCUSDT,2024-01-01T01:00:00+00:00,,,,NaN,,x,1h\n" +
			"BTCUSDT,2024-01-01T02:00:00+00:00,,,,110,,x,1h\n",
	})

	rec, env := get(t, e, "/api/v1/assets/BTCUSDT/prices")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Points []struct {
			Close float64 `json:"close"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Points, 2)

	rec, env = get(t, e, "/api/v1/assets/BTCUSDT/returns?type=simple")
	require.Equal(t, http.StatusOK, rec.Code)
	var rets []valuePoint
	require.NoError(t, json.Unmarshal(env.Data, &rets))
	require.Len(t, rets, 1)
	assert.InDelta(t, 0.1, rets[0].Value, 1e-12)
}

func TestLowercaseSymbolResolvesOnAllRoutes(t *testing.T) {
	e := newTestEcho(t, btcFile())

	rec, env := get(t, e, "/api/v1/assets/btcusdt/returns?type=simple")
	require.Equal(t, http.StatusOK, rec.Code)
	var rets []valuePoint
	require.NoError(t, json.Unmarshal(env.Data, &rets))
	require.Len(t, rets, 1)
	assert.InDelta(t, 100.0/42050.0, rets[0].Value, 1e-12)

	rec, _ = get(t, e, "/api/v1/assets/btcusdt/volatility?window=2&type=simple")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	e := newTestEcho(t, btcFile())

	for _, target := range []string{
		"/api/v1/assets/BTCUSDT/prices?limit=5001",
		"/api/v1/assets/BTCUSDT/prices?limit=abc",
		"/api/v1/assets/BTCUSDT/returns?limit=1",
		"/api/v1/assets/BTCUSDT/returns?type=arith",
		"/api/v1/assets/BTCUSDT/volatility?window=1",
		"/api/v1/assets/BTCUSDT/volatility?window=1001",
		"/api/v1/assets/BTCUSDT/volatility?type=pct",
		"/api/v1/assets/BTCUSDT/prices?limit=0",
		"/api/v1/assets/BTCUSDT/prices?limit=-1",
		"/api/v1/assets/BTCUSDT/prices?timeframe=",
		"/api/v1/assets/BTCUSDT/returns?limit=0",
		"/api/v1/assets/BTCUSDT/volatility?window=0",
		"/api/v1/assets/BTCUSDT/volatility?limit=0",
	} {
		rec, env := get(t, e, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var errs []xhttp.ValidationError
		require.NoError(t, json.Unmarshal(env.Data, &errs), target)
		assert.NotEmpty(t, errs, target)
	}

	_, env := get(t, e, "/api/v1/assets/BTCUSDT/prices?timeframe=1h&limit=9999")
	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[0].Code)

	_, env = get(t, e, "/api/v1/assets/BTCUSDT/prices?limit=0")
	errs = nil
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "ERR_GTE", errs[0].Code)

	_, env = get(t, e, "/api/v1/assets/BTCUSDT/volatility?window=0")
	errs = nil
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "window", errs[0].Field)

	_, env = get(t, e, "/api/v1/assets/BTCUSDT/prices?timeframe=")
	errs = nil
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "timeframe", errs[0].Field)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
}

func TestReturnsEndpointLog(t *testing.T) {
	e := newTestEcho(t, map[string]string{
		"BTCUSDT_1h.csv": normalizedHeader +
			"BTCUSDT,2024-01-01T01:00:00+00:00,,,,110,,x,1h\n" +
			"BTCUSDT,2024-01-01T00:00:00+00:00,,,,100,,x,1h\n",
	})

	rec, env := get(t, e, "/api/v1/assets/BTCUSDT/returns?timeframe=1h&type=log&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []valuePoint
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, "2024-01-01T01:00:00Z", out[0].Timestamp)
	assert.InDelta(t, math.Log(1.1), out[0].Value, 1e-12)

	_, env = get(t, e, "/api/v1/assets/BTCUSDT/returns?type=simple")
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 1)
	assert.InDelta(t, 0.1, out[0].Value, 1e-12)
}

func TestVolatilityEndpoint(t *testing.T) {
	e := newTestEcho(t, map[string]string{
		"BTCUSDT_1h.csv": normalizedHeader +
			"BTCUSDT,2024-01-01T00:00:00+00:00,,,,1,,x,1h\n" +
			"BTCUSDT,2024-01-01T01:00:00+00:00,,,,1,,x,1h\n" +
			"BTCUSDT,2024-01-01T02:00:00+00:00,,,,2,,x,1h\n" +
			"BTCUSDT,2024-01-01T03:00:00+00:00,,,,2,,x,1h\n",
	})

	rec, env := get(t, e, "/api/v1/assets/BTCUSDT/volatility?window=2&type=simple")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []valuePoint
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-01T02:00:00Z", out[0].Timestamp)
	assert.InDelta(t, 0.5, out[0].Value, 1e-12)
	assert.InDelta(t, 0.5, out[1].Value, 1e-12)

	// default window of 24 exceeds the three available returns
	_, env = get(t, e, "/api/v1/assets/BTCUSDT/volatility")
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Empty(t, out)
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEcho(t, nil)
	for _, target := range []string{"/health", "/api/v1/health"} {
		rec, env := get(t, e, target)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e := newTestEcho(t, nil)
	rec, env := get(t, e, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)
}
