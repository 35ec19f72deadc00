package scoring

import (
	"sort"

	"SolPulse/internal/domain/models"
)

// Rank sorts tokens by score descending, assigns ranks 1..k and returns the
// first n. Equal scores keep their input order. The input slice is reordered.
func Rank(tokens []models.ScoredToken, n int) []models.ScoredToken {
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Score > tokens[j].Score })
	if n < 0 {
		n = 0
	}
	if n > len(tokens) {
		n = len(tokens)
	}
	out := tokens[:n]
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
