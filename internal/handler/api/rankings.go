package api

import (
	"context"
	"errors"
	"net/http"

	"SolPulse/internal/domain/models"
	"SolPulse/internal/service/metrics"
	"SolPulse/internal/service/ratelimit"
	xhttp "SolPulse/pkg/http"
	xlogger "SolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RankingsReader serves top-N rankings.
type RankingsReader interface {
	TopMeme(ctx context.Context, limit int) (models.TopMemeResponse, error)
}

// RefreshRequester triggers an out-of-schedule snapshot.
type RefreshRequester interface {
	Refresh(ctx context.Context, reason string) (models.RefreshResponse, error)
}

// RankingsHandler exposes the ranking endpoints.
type RankingsHandler struct {
	logger    *xlogger.Logger
	rankings  RankingsReader
	refresher RefreshRequester
	limiter   *ratelimit.Limiter
}

func NewRankingsHandler(logger *xlogger.Logger, rankings RankingsReader, refresher RefreshRequester, limiter *ratelimit.Limiter) *RankingsHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &RankingsHandler{logger: logger, rankings: rankings, refresher: refresher, limiter: limiter}
}

func (h *RankingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/top-meme", h.TopMeme)
	g.POST("/refresh", h.Refresh)
}

func (h *RankingsHandler) TopMeme(c echo.Context) error {
	defer observe("top_meme")()
	req := &models.TopMemeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.rankings.TopMeme(c.Request().Context(), req.Limit)
	if err != nil {
		countError("top_meme")
		h.logger.Error("top-meme usecase error", xlogger.Int("limit", req.Limit), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	if res.Stale {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=30")
	return xhttp.SuccessResponse(c, res)
}

func (h *RankingsHandler) Refresh(c echo.Context) error {
	defer observe("refresh")()
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		h.logger.Warn("refresh rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many refresh requests"))
	}
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.refresher.Refresh(c.Request().Context(), req.Reason)
	if err != nil {
		countError("refresh")
		h.logger.Error("refresh usecase error", xlogger.String("reason", req.Reason), xlogger.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("refresh timed out").WithError(err))
		}
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, res)
}
