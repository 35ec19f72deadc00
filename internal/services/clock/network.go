package clock

import (
	"math"
	"sort"

	"SolPulse/internal/domain/models"
	"SolPulse/pkg/util"
)

const secondsPerHour = 3600

// BuildNetworkPulse summarizes chain-wide hourly stats. The peak is the hour
// with the most transactions, the earliest on ties, so an idle window peaks
// at its first hour.
func BuildNetworkPulse(stats []models.NetworkHourlyStat) (models.NetworkPulse, error) {
	if len(stats) == 0 {
		return models.NetworkPulse{}, ErrNoData
	}
	ordered := make([]models.NetworkHourlyStat, len(stats))
	copy(ordered, stats)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Hour.Before(ordered[j].Hour) })

	p := models.NetworkPulse{HourlyStats: make([]models.NetworkHourlyStat, 0, len(ordered))}
	var wallets int64
	for _, st := range ordered {
		st.Hour = st.Hour.UTC()
		p.HourlyStats = append(p.HourlyStats, st)
		p.Summary.TotalTransactions24h += st.TotalTransactions
		p.Summary.TotalBlocks24h += st.TotalBlocks
		wallets += st.UniqueWallets
	}
	p.Summary.AvgUniqueWallets = int64(math.Round(float64(wallets) / float64(len(ordered))))

	top := p.HourlyStats[peak(p.HourlyStats, func(st models.NetworkHourlyStat) float64 {
		return float64(st.TotalTransactions)
	})]
	p.PeakHour = models.NetworkPeakHour{
		Hour:              top.Hour,
		HourLabel:         util.HourLabel(top.Hour),
		TotalTransactions: top.TotalTransactions,
	}
	return p, nil
}

// CurrentNetworkStats describes the latest hour, with TPS estimated from the
// hourly transaction count.
func CurrentNetworkStats(latest models.NetworkHourlyStat) models.NetworkStats {
	return models.NetworkStats{
		Timestamp:            latest.Hour.UTC(),
		TransactionsLastHour: latest.TotalTransactions,
		BlocksLastHour:       latest.TotalBlocks,
		UniqueWallets:        latest.UniqueWallets,
		AvgCUPerBlock:        latest.AvgCUPerBlock,
		EstimatedTPS:         int64(math.Round(float64(latest.TotalTransactions) / secondsPerHour)),
	}
}
