// Package clock derives hour-of-day activity views from hourly samples.
package clock

import (
	"errors"
	"math"
	"sort"

	"SolPulse/internal/domain/models"
	"SolPulse/pkg/util"
)

// Hours is the length of a meme clock.
const Hours = 24

var ErrNoData = errors.New("no samples in window")

// PeakHour returns the label of the hour with the strictly greatest volume,
// the earliest one on ties. It is empty when no hour traded.
func PeakHour(samples []models.TokenMetricSample) string {
	ordered := chronological(samples)
	i := peak(ordered, func(s models.TokenMetricSample) float64 { return s.TxVolumeUSD })
	if i < 0 || ordered[i].TxVolumeUSD <= 0 {
		return ""
	}
	return util.HourLabel(ordered[i].Hour)
}

// peak returns the index of the greatest value, the first one on ties, or -1
// for an empty slice.
func peak[T any](items []T, value func(T) float64) int {
	best := -1
	for i, it := range items {
		if best < 0 || value(it) > value(items[best]) {
			best = i
		}
	}
	return best
}

// MemeClock scales each hour's volume to [0, 100] of the busiest hour,
// left-pads with zeros to 24 entries and keeps the latest 24.
func MemeClock(samples []models.TokenMetricSample) []int {
	ordered := chronological(samples)
	var max float64
	for _, s := range ordered {
		max = math.Max(max, s.TxVolumeUSD)
	}

	values := make([]int, 0, len(ordered))
	for _, s := range ordered {
		values = append(values, scale(s.TxVolumeUSD, max))
	}
	if len(values) >= Hours {
		return values[len(values)-Hours:]
	}
	out := make([]int, Hours-len(values), Hours)
	return append(out, values...)
}

// BuildTokenClock assembles the hourly histogram of one token.
func BuildTokenClock(address string, samples []models.TokenMetricSample) (models.TokenClock, error) {
	if len(samples) == 0 {
		return models.TokenClock{}, ErrNoData
	}
	ordered := chronological(samples)
	tc := models.TokenClock{
		TokenAddress: address,
		HourlyData:   make([]models.HourlyPoint, 0, len(ordered)),
		PeakHour:     PeakHour(ordered),
	}
	for _, s := range ordered {
		tc.HourlyData = append(tc.HourlyData, models.HourlyPoint{
			Hour:         s.Hour.UTC(),
			HourLabel:    util.HourLabel(s.Hour),
			TxCount:      s.TxCount,
			TxVolumeUSD:  s.TxVolumeUSD,
			UniqueBuyers: s.UniqueBuyers,
		})
		tc.TotalVolume24h += s.TxVolumeUSD
		tc.TotalTransactions24h += s.TxCount
		tc.TotalUniqueBuyers24h += s.UniqueBuyers
	}
	return tc, nil
}

// scale is min-max normalization with a zero floor. It deliberately departs
// from scoring.Normalize on a degenerate range: an all-zero clock is 0 on
// every bar, not the neutral 50.
func scale(v, max float64) int {
	if max <= 0 {
		return 0
	}
	p := math.Round(v / max * 100)
	return int(math.Max(0, math.Min(100, p)))
}

func chronological(samples []models.TokenMetricSample) []models.TokenMetricSample {
	out := make([]models.TokenMetricSample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}
