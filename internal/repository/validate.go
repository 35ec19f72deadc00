package repository

import (
	"fmt"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// normalizeSamples validates every sample and truncates its hour. The first
// invalid sample rejects the whole batch.
func normalizeSamples(samples []models.TokenMetricSample) ([]models.TokenMetricSample, error) {
	out := make([]models.TokenMetricSample, len(samples))
	for i, s := range samples {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: sample %d (%s): %v", domrepo.ErrInvalidInput, i, s.TokenAddress, err)
		}
		s.Hour = domrepo.TruncateHour(s.Hour)
		out[i] = s
	}
	return out, nil
}

// normalizeNetworkStats is normalizeSamples for network stats.
func normalizeNetworkStats(stats []models.NetworkHourlyStat) ([]models.NetworkHourlyStat, error) {
	out := make([]models.NetworkHourlyStat, len(stats))
	for i, s := range stats {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: network stat %d: %v", domrepo.ErrInvalidInput, i, err)
		}
		s.Hour = domrepo.TruncateHour(s.Hour)
		out[i] = s
	}
	return out, nil
}

func validateMetadata(m models.TokenMetadata) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: metadata %s: %v", domrepo.ErrInvalidInput, m.TokenAddress, err)
	}
	return nil
}
