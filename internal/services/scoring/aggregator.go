package scoring

import (
	"sort"

	"SolPulse/internal/domain/models"
	"SolPulse/internal/domain/repository"
)

// Aggregate reduces hourly samples to one aggregate per token with at least
// one sample inside w. Output follows the first-seen order of samples.
func Aggregate(samples []models.TokenMetricSample, w repository.Window) []models.TokenAggregate {
	order := make([]string, 0)
	byToken := make(map[string][]models.TokenMetricSample)
	for _, s := range samples {
		if !w.Contains(s.Hour) {
			continue
		}
		if _, seen := byToken[s.TokenAddress]; !seen {
			order = append(order, s.TokenAddress)
		}
		byToken[s.TokenAddress] = append(byToken[s.TokenAddress], s)
	}

	out := make([]models.TokenAggregate, 0, len(order))
	for _, addr := range order {
		part := byToken[addr]
		if len(part) == 0 {
			continue
		}
		out = append(out, aggregateToken(addr, part))
	}
	return out
}

func aggregateToken(addr string, part []models.TokenMetricSample) models.TokenAggregate {
	sort.SliceStable(part, func(i, j int) bool { return part[i].Hour.Before(part[j].Hour) })

	agg := models.TokenAggregate{
		TokenAddress: addr,
		HoldersStart: part[0].Holders,
		Samples:      part,
	}
	var liquidity float64
	for _, s := range part {
		agg.Volume24h += s.TxVolumeUSD
		agg.Buyers24h += s.UniqueBuyers
		agg.Transactions24h += s.TxCount
		if s.Holders > agg.HoldersCurrent {
			agg.HoldersCurrent = s.Holders
		}
		liquidity += s.LiquidityUSD
	}
	agg.LiquidityAvg = liquidity / float64(len(part))
	agg.HoldersGrowthPct = HoldersGrowth(agg.HoldersStart, agg.HoldersCurrent)
	return agg
}

// HoldersGrowth is the percentage change from start to current holders.
// A zero baseline yields 0.
func HoldersGrowth(start, current int64) float64 {
	if start <= 0 {
		return 0
	}
	return float64(current-start) / float64(start) * 100
}

// SelectCandidates keeps at most size aggregates with the highest volume,
// ties broken by address. Survivors keep their aggregation order.
// size <= 0 means unlimited.
func SelectCandidates(aggs []models.TokenAggregate, size int) []models.TokenAggregate {
	if size <= 0 || len(aggs) <= size {
		return aggs
	}
	idx := make([]int, len(aggs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		x, y := aggs[idx[a]], aggs[idx[b]]
		if x.Volume24h != y.Volume24h {
			return x.Volume24h > y.Volume24h
		}
		return x.TokenAddress < y.TokenAddress
	})
	keep := make([]bool, len(aggs))
	for _, i := range idx[:size] {
		keep[i] = true
	}
	out := make([]models.TokenAggregate, 0, size)
	for i, a := range aggs {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}

// AttachMetadata copies display fields onto the aggregates it has entries for.
func AttachMetadata(aggs []models.TokenAggregate, meta map[string]models.TokenMetadata) {
	for i := range aggs {
		m, ok := meta[aggs[i].TokenAddress]
		if !ok {
			continue
		}
		aggs[i].Symbol = m.Symbol
		aggs[i].Name = m.Name
		aggs[i].LogoURL = m.LogoURL
	}
}
