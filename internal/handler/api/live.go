package api

import (
	"context"
	"errors"
	"net/http"

	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/service/live"
	xlogger "SolPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// LiveServer upgrades a request into a live feed subscription.
type LiveServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, initial *live.Message) error
}

// LiveHandler streams ranking snapshots over a websocket. New subscribers
// first receive the latest stored snapshot.
type LiveHandler struct {
	logger *xlogger.Logger
	hub    LiveServer
	latest domrepo.RankingReader
}

func NewLiveHandler(logger *xlogger.Logger, hub LiveServer, latest domrepo.RankingReader) *LiveHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &LiveHandler{logger: logger, hub: hub, latest: latest}
}

func (h *LiveHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/ws/rankings", h.Rankings)
}

func (h *LiveHandler) Rankings(c echo.Context) error {
	initial := h.initial(c.Request().Context())
	if err := h.hub.ServeWS(c.Response(), c.Request(), initial); err != nil {
		// the upgrader already wrote the HTTP error
		h.logger.Warn("live subscription failed", xlogger.String("remote", c.RealIP()), xlogger.Error(err))
	}
	return nil
}

func (h *LiveHandler) initial(ctx context.Context) *live.Message {
	if h.latest == nil {
		return nil
	}
	snap, err := h.latest.LatestRanking(ctx)
	if err != nil {
		if !errors.Is(err, domrepo.ErrNotFound) {
			h.logger.Warn("latest ranking unavailable", xlogger.Error(err))
		}
		return nil
	}
	return &live.Message{Type: live.TypeRankingsUpdated, Payload: snap}
}

var _ LiveServer = (*live.Hub)(nil)
