package scoring

import (
	"math"

	"SolPulse/internal/domain/models"
)

// Engagement is min(100, 10*log10(volume+1) + 15*log10(buyers+1)).
// Negative inputs count as zero.
func Engagement(volume float64, buyers int64) float64 {
	v := math.Max(volume, 0)
	b := math.Max(float64(buyers), 0)
	return math.Min(100, 10*math.Log10(v+1)+15*math.Log10(b+1))
}

// HoldersGrowthComponent maps a growth percentage onto [0, 100]; 10% saturates.
func HoldersGrowthComponent(pct float64) float64 {
	return clamp(pct*10, 0, 100)
}

// Score normalizes every metric across the pool and blends the components.
// The result is unranked and in the order of aggs.
func Score(aggs []models.TokenAggregate, w Weights) []models.ScoredToken {
	n := len(aggs)
	vols := make([]float64, n)
	buyers := make([]float64, n)
	liq := make([]float64, n)
	for i, a := range aggs {
		vols[i] = a.Volume24h
		buyers[i] = float64(a.Buyers24h)
		liq[i] = a.LiquidityAvg
	}
	vMin, vMax := MinMax(vols)
	bMin, bMax := MinMax(buyers)
	lMin, lMax := MinMax(liq)

	out := make([]models.ScoredToken, n)
	for i, a := range aggs {
		t := models.ScoredToken{
			TokenAddress:     a.TokenAddress,
			Symbol:           a.Symbol,
			Name:             a.Name,
			LogoURL:          a.LogoURL,
			Volume24h:        a.Volume24h,
			Buyers24h:        a.Buyers24h,
			Transactions24h:  a.Transactions24h,
			Holders:          a.HoldersCurrent,
			HoldersGrowthPct: a.HoldersGrowthPct,
			LiquidityUSD:     a.LiquidityAvg,
			VolumeNorm:       Normalize(vols[i], vMin, vMax),
			BuyersNorm:       Normalize(buyers[i], bMin, bMax),
			LiquidityNorm:    Normalize(liq[i], lMin, lMax),
			EngagementScore:  Engagement(a.Volume24h, a.Buyers24h),
		}
		t.HoldersGrowthNorm = HoldersGrowthComponent(a.HoldersGrowthPct)
		t.Score = w.Volume*t.VolumeNorm +
			w.Buyers*t.BuyersNorm +
			w.Liquidity*t.LiquidityNorm +
			w.Engagement*t.EngagementScore
		if w.IncludeHoldersGrowth {
			t.Score += w.HoldersGrowth * t.HoldersGrowthNorm
		}
		out[i] = t
	}
	return out
}
