package scoring

import "SolPulse/pkg/config"

// Weights is the composite score weight table. HoldersGrowth is only summed
// when IncludeHoldersGrowth is set; weights are never rescaled.
type Weights struct {
	Volume               float64
	Buyers               float64
	Liquidity            float64
	Engagement           float64
	HoldersGrowth        float64
	IncludeHoldersGrowth bool
}

// DefaultWeights returns the four-term table 0.35/0.20/0.15/0.10 with the
// holders growth term declared but disabled.
func DefaultWeights() Weights {
	return Weights{
		Volume:        0.35,
		Buyers:        0.20,
		Liquidity:     0.15,
		Engagement:    0.10,
		HoldersGrowth: 0.15,
	}
}

// WeightsFromConfig builds the table from the scoring section of the config.
func WeightsFromConfig(c config.ScoringConfig) Weights {
	return Weights{
		Volume:               c.Weights.Volume,
		Buyers:               c.Weights.Buyers,
		Liquidity:            c.Weights.Liquidity,
		Engagement:           c.Weights.Engagement,
		HoldersGrowth:        c.Weights.HoldersGrowth,
		IncludeHoldersGrowth: c.IncludeHoldersGrowth,
	}
}
