package api

import (
	"context"
	"net/http"
	"time"

	xhttp "SolPulse/pkg/http"
	xlogger "SolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	logger  *xlogger.Logger
	store   HealthChecker
	timeout time.Duration
}

func NewHealthHandler(logger *xlogger.Logger, store HealthChecker) *HealthHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthHandler{logger: logger, store: store, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
}

func (h *HealthHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("storage health check failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("storage unavailable").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]string{"storage": "ok"})
}
