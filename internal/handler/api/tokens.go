package api

import (
	"context"

	"SolPulse/internal/domain/models"
	"SolPulse/internal/service/metrics"
	xhttp "SolPulse/pkg/http"
	xlogger "SolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TokenReader serves per-token views.
type TokenReader interface {
	Clock(ctx context.Context, address string) (models.TokenClock, error)
	Details(ctx context.Context, address string) (models.TokenDetails, error)
}

type TokensHandler struct {
	logger *xlogger.Logger
	tokens TokenReader
}

func NewTokensHandler(logger *xlogger.Logger, tokens TokenReader) *TokensHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &TokensHandler{logger: logger, tokens: tokens}
}

func (h *TokensHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/token")
	g.GET("/:address/clock", h.Clock)
	g.GET("/:address/details", h.Details)
}

func (h *TokensHandler) Clock(c echo.Context) error {
	defer observe("token_clock")()
	req := &models.TokenAddressRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tokens.Clock(c.Request().Context(), req.Address)
	if err != nil {
		return h.fail(c, "token_clock", req.Address, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TokensHandler) Details(c echo.Context) error {
	defer observe("token_details")()
	req := &models.TokenAddressRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.tokens.Details(c.Request().Context(), req.Address)
	if err != nil {
		return h.fail(c, "token_details", req.Address, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *TokensHandler) fail(c echo.Context, endpoint, address string, err error) error {
	appErr := appError(err)
	if appErr.Status >= 500 {
		countError(endpoint)
		h.logger.Error(endpoint+" usecase error", xlogger.String("token", address), xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.String("token", address), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
