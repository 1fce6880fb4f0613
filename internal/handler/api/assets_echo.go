package api

import (
	"errors"
	"net/http"
	"time"

	"QuantLab/internal/domain/models"
	domrepo "QuantLab/internal/domain/repository"
	svcmetrics "QuantLab/internal/service/metrics"
	"QuantLab/internal/services/features"
	"QuantLab/internal/usecase"
	xhttp "QuantLab/pkg/http"
	xlogger "QuantLab/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AssetsEchoHandler serves price, return and volatility series per asset.
type AssetsEchoHandler struct {
	logger  *xlogger.Logger
	query   *usecase.SeriesQuery
	metrics *svcmetrics.EndpointMetrics
}

func NewAssetsEchoHandler(logger *xlogger.Logger, query *usecase.SeriesQuery, m *svcmetrics.EndpointMetrics) *AssetsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &AssetsEchoHandler{logger: logger, query: query, metrics: m}
}

func (h *AssetsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/health", h.Health)
	g.GET("/assets/:symbol/prices", h.Prices)
	g.GET("/assets/:symbol/returns", h.Returns)
	g.GET("/assets/:symbol/volatility", h.Volatility)
}

func (h *AssetsEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, xhttp.HealthStatus{Status: "ok"})
}

func (h *AssetsEchoHandler) Prices(c echo.Context) error {
	defer h.metrics.Observe("prices", time.Now())

	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail("prices", "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := domrepo.NormalizeSymbol(req.Symbol)
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	s, err := h.query.Prices(c.Request().Context(), symbol, tf, req.Limit)
	if err != nil {
		return h.fail(c, "prices", symbol, tf, err)
	}

	out := models.PricesOut{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Points:    make([]models.PricePointOut, len(s.Points)),
	}
	for i, p := range s.Points {
		out.Points[i] = models.PricePointOut{Timestamp: p.Timestamp.UTC(), Close: p.Close}
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AssetsEchoHandler) Returns(c echo.Context) error {
	defer h.metrics.Observe("returns", time.Now())

	req := &models.ReturnsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail("returns", "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := domrepo.NormalizeSymbol(req.Symbol)
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	rets, err := h.query.Returns(c.Request().Context(), symbol, tf, features.ReturnKind(req.Type), req.Limit)
	if err != nil {
		return h.fail(c, "returns", symbol, tf, err)
	}

	out := make([]models.ValuePointOut, len(rets))
	for i, r := range rets {
		out[i] = models.ValuePointOut{Timestamp: r.Timestamp.UTC(), Value: r.Value}
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AssetsEchoHandler) Volatility(c echo.Context) error {
	defer h.metrics.Observe("volatility", time.Now())

	req := &models.VolatilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.metrics.Fail("volatility", "validation")
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := domrepo.NormalizeSymbol(req.Symbol)
	tf := domrepo.NormalizeTimeframe(req.Timeframe)

	vols, err := h.query.Volatility(c.Request().Context(), symbol, tf, features.ReturnKind(req.Type), req.Window, req.Limit)
	if err != nil {
		return h.fail(c, "volatility", symbol, tf, err)
	}

	out := make([]models.ValuePointOut, len(vols))
	for i, v := range vols {
		out[i] = models.ValuePointOut{Timestamp: v.Timestamp.UTC(), Value: v.Value}
	}
	return xhttp.SuccessResponse(c, out)
}

// fail maps a use case error to a response. Only a missing series is a client error.
func (h *AssetsEchoHandler) fail(c echo.Context, endpoint, symbol, tf string, err error) error {
	if errors.Is(err, domrepo.ErrSeriesNotFound) {
		h.metrics.Fail(endpoint, "not_found")
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("Normalized data not found for %s %s", symbol, tf).WithError(err))
	}
	h.metrics.Fail(endpoint, "internal")
	h.logger.Error(endpoint+" usecase error",
		xlogger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		xlogger.String("symbol", symbol),
		xlogger.String("tf", tf),
		xlogger.Error(err),
	)
	return xhttp.AppErrorResponse(c, xhttp.InternalError(http.StatusText(http.StatusInternalServerError)).WithError(err))
}
