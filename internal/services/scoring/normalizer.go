package scoring

import "math"

// NeutralScore is assigned to every token when a metric has no spread.
const NeutralScore = 50.0

// Normalize maps value onto [0, 100] relative to [min, max].
// A degenerate range (max == min) yields NeutralScore.
func Normalize(value, min, max float64) float64 {
	if max == min {
		return NeutralScore
	}
	return clamp((value-min)/(max-min)*100, 0, 100)
}

// MinMax returns the smallest and largest of values, or (0, 0) when empty.
func MinMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
