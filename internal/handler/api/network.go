package api

import (
	"context"

	"SolPulse/internal/domain/models"
	"SolPulse/internal/service/metrics"
	xhttp "SolPulse/pkg/http"
	xlogger "SolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// NetworkReader serves chain-wide activity views.
type NetworkReader interface {
	Pulse(ctx context.Context) (models.NetworkPulse, error)
	Stats(ctx context.Context) (models.NetworkStats, error)
}

type NetworkHandler struct {
	logger  *xlogger.Logger
	network NetworkReader
}

func NewNetworkHandler(logger *xlogger.Logger, network NetworkReader) *NetworkHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &NetworkHandler{logger: logger, network: network}
}

func (h *NetworkHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/network")
	g.GET("/pulse", h.Pulse)
	g.GET("/stats", h.Stats)
}

func (h *NetworkHandler) Pulse(c echo.Context) error {
	defer observe("network_pulse")()
	res, err := h.network.Pulse(c.Request().Context())
	if err != nil {
		return h.fail(c, "network_pulse", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *NetworkHandler) Stats(c echo.Context) error {
	defer observe("network_stats")()
	res, err := h.network.Stats(c.Request().Context())
	if err != nil {
		return h.fail(c, "network_stats", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *NetworkHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := appErrorFor(err, "no network data available")
	if appErr.Status >= 500 {
		countError(endpoint)
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
