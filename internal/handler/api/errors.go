package api

import (
	"errors"
	"time"

	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/service/metrics"
	"SolPulse/internal/services/scoring"
	"SolPulse/internal/usecase"
	xhttp "SolPulse/pkg/http"
)

// appError maps use case failures onto the response envelope.
func appError(err error) *xhttp.AppError {
	return appErrorFor(err, "token not found")
}

// appErrorFor is appError with the message used for ErrNotFound.
func appErrorFor(err error, notFound string) *xhttp.AppError {
	switch {
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError(notFound).WithError(err)
	case errors.Is(err, domrepo.ErrInvalidInput):
		return xhttp.BadRequestError("invalid input").WithError(err)
	case errors.Is(err, usecase.ErrRankingsUnavailable), errors.Is(err, scoring.ErrMetricsStoreUnavailable):
		return xhttp.ServiceUnavailableError("rankings are temporarily unavailable").WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

// observe records endpoint latency; call the returned func when done.
func observe(endpoint string) func() {
	start := time.Now()
	return func() {
		metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func countError(endpoint string) {
	metrics.APIErrors.WithLabelValues(endpoint).Inc()
}
