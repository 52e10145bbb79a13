package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinEvent/internal/domain/models"
	domrepo "FinEvent/internal/domain/repository"
	apimetrics "FinEvent/internal/service/metrics"
	"FinEvent/internal/service/ratelimit"
	"FinEvent/internal/usecase"
	xhttp "FinEvent/pkg/http"
	xlogger "FinEvent/pkg/logger"
)

// Enqueuer schedules a refresh of every configured instrument.
type Enqueuer interface {
	EnqueueAll(ctx context.Context) (int, error)
}

// AnalysisHandler serves bars, event classification, session reports and
// probability matrices.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	bars     *usecase.BarsUseCase
	analysis *usecase.AnalysisUseCase
	events   *usecase.EventsUseCase
	refresh  Enqueuer
	health   domrepo.BarStore
	limiter  *ratelimit.Limiter
	loc      *time.Location
}

func NewAnalysisHandler(
	logger *xlogger.Logger,
	bars *usecase.BarsUseCase,
	analysis *usecase.AnalysisUseCase,
	events *usecase.EventsUseCase,
	limiter *ratelimit.Limiter,
	loc *time.Location,
) *AnalysisHandler {
	apimetrics.Register()
	if logger == nil {
		logger = xlogger.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalysisHandler{logger: logger, bars: bars, analysis: analysis, events: events, limiter: limiter, loc: loc}
}

// SetRefresher enables POST /api/refresh.
func (h *AnalysisHandler) SetRefresher(r Enqueuer) { h.refresh = r }

// SetHealthCheck makes /health ping the bar store.
func (h *AnalysisHandler) SetHealthCheck(s domrepo.BarStore) { h.health = s }

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api", ratelimit.Middleware(h.limiter))
	g.GET("/bars", h.Bars)
	g.POST("/events/classify", h.Classify)
	g.POST("/events", h.StoreEvents)
	g.GET("/sessions/returns", h.Returns)
	g.GET("/sessions/volatility", h.Volatility)
	g.GET("/matrix", h.Matrix)
	g.GET("/overview", h.Overview)
	g.POST("/refresh", h.Refresh)
}

func (h *AnalysisHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", xlogger.Error(err))
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// fail counts, logs and writes err. Client errors are logged at warn.
func (h *AnalysisHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := appError(err)
	apimetrics.AnalyticsErrors.WithLabelValues(endpoint).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	} else {
		h.logger.Warn(endpoint+" rejected", xlogger.String("reason", appErr.Message))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *AnalysisHandler) Bars(c echo.Context) (err error) {
	defer apimetrics.Observe("bars", time.Now(), &err)
	req := &BarsRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, "bars", err)
	}
	rng, err := req.params(h.loc)
	if err != nil {
		return h.fail(c, "bars", err)
	}
	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol: req.Symbol, Interval: rng.interval, From: rng.from, To: rng.to, Limit: req.Limit,
	})
	if err != nil {
		return h.fail(c, "bars", err)
	}
	return xhttp.SuccessResponse(c, res)
}

type classifyResponse struct {
	Flags  []string             `json:"flags"`
	Events []models.EventRecord `json:"events"`
}

func (h *AnalysisHandler) Classify(c echo.Context) (err error) {
	defer apimetrics.Observe("classify", time.Now(), &err)
	req := &ClassifyRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, "classify", err)
	}
	raw, err := rawEvents(req.Events, h.loc)
	if err != nil {
		return h.fail(c, "classify", err)
	}
	out, err := h.analysis.Classify(raw, req.Keywords)
	if err != nil {
		return h.fail(c, "classify", err)
	}
	return xhttp.SuccessResponse(c, classifyResponse{Flags: out.Flags, Events: out.Events})
}

func (h *AnalysisHandler) StoreEvents(c echo.Context) (err error) {
	defer apimetrics.Observe("store_events", time.Now(), &err)
	req := &StoreEventsRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, "store_events", err)
	}
	raw, err := rawEvents(req.Events, h.loc)
	if err != nil {
		return h.fail(c, "store_events", err)
	}
	n, err := h.events.Store(c.Request().Context(), raw, req.Source)
	if err != nil {
		return h.fail(c, "store_events", err)
	}
	return xhttp.DataResponse(c, http.StatusCreated, map[string]int{"stored": n})
}

func (h *AnalysisHandler) Returns(c echo.Context) error {
	return h.report(c, models.MeasureReturn)
}

func (h *AnalysisHandler) Volatility(c echo.Context) error {
	return h.report(c, models.MeasureVolatility)
}

func (h *AnalysisHandler) report(c echo.Context, m models.Measure) (err error) {
	endpoint := "sessions_" + string(m)
	defer apimetrics.Observe(endpoint, time.Now(), &err)

	req := &ReportRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, endpoint, err)
	}
	p, err := h.reportParams(req)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	p.Measure = m
	rep, hit, err := h.analysis.SessionReport(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	setCacheHeader(c, hit)
	setEmptyHeader(c, rep.Err())
	return xhttp.SuccessResponse(c, rep)
}

func (h *AnalysisHandler) reportParams(req *ReportRequest) (usecase.ReportParams, error) {
	rng, err := req.params(h.loc)
	if err != nil {
		return usecase.ReportParams{}, err
	}
	f, err := req.filter()
	if err != nil {
		return usecase.ReportParams{}, err
	}
	return usecase.ReportParams{
		SeriesParams: seriesParams(req.SeriesRequest, rng),
		Filter:       f,
		LatestDays:   req.Latest,
	}, nil
}

func seriesParams(req SeriesRequest, rng seriesRange) usecase.SeriesParams {
	return usecase.SeriesParams{
		Symbol:   req.Symbol,
		Interval: rng.interval,
		From:     rng.from,
		To:       rng.to,
		NonEvent: req.NonEvent,
	}
}

func (h *AnalysisHandler) Matrix(c echo.Context) (err error) {
	defer apimetrics.Observe("matrix", time.Now(), &err)
	req := &MatrixRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, "matrix", err)
	}
	version, err := models.ParseVersion(req.Version)
	if err != nil {
		return h.fail(c, "matrix", err)
	}
	rng, err := req.params(h.loc)
	if err != nil {
		return h.fail(c, "matrix", err)
	}
	res, hit, err := h.analysis.Matrix(c.Request().Context(), usecase.MatrixParams{
		SeriesParams: seriesParams(req.SeriesRequest, rng),
		Hours:        req.Hours,
		Target:       req.Target,
		Version:      version,
	})
	if err != nil {
		return h.fail(c, "matrix", err)
	}
	setCacheHeader(c, hit)
	setEmptyHeader(c, res.Err())
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Overview(c echo.Context) (err error) {
	defer apimetrics.Observe("overview", time.Now(), &err)
	req := &OverviewRequest{}
	if err := xhttp.BindAndValidate(c, req); err != nil {
		return h.fail(c, "overview", err)
	}
	version, err := models.ParseVersion(req.Version)
	if err != nil {
		return h.fail(c, "overview", err)
	}
	rp, err := h.reportParams(&req.ReportRequest)
	if err != nil {
		return h.fail(c, "overview", err)
	}
	ov, err := h.analysis.Overview(c.Request().Context(), usecase.OverviewParams{
		SeriesParams: rp.SeriesParams,
		Filter:       rp.Filter,
		LatestDays:   rp.LatestDays,
		Hours:        req.Hours,
		Target:       req.Target,
		Version:      version,
	})
	if err != nil {
		return h.fail(c, "overview", err)
	}
	return xhttp.SuccessResponse(c, ov)
}

func (h *AnalysisHandler) Refresh(c echo.Context) (err error) {
	defer apimetrics.Observe("refresh", time.Now(), &err)
	if h.refresh == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("refresh is disabled"))
	}
	n, err := h.refresh.EnqueueAll(c.Request().Context())
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]int{"enqueued": n})
}

// setEmptyHeader flags a 200 response computed from no bars.
func setEmptyHeader(c echo.Context, err error) {
	if errors.Is(err, models.ErrEmptySeries) {
		c.Response().Header().Set("X-Empty-Series", "true")
	}
}

func setCacheHeader(c echo.Context, hit bool) {
	v := "MISS"
	if hit {
		v = "HIT"
	}
	c.Response().Header().Set("X-Cache", v)
}
