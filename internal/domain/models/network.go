package models

import "time"

// NetworkHourlyStat is one hour of chain-wide activity. Hour is unique and
// truncated to the hour in UTC.
type NetworkHourlyStat struct {
	Hour              time.Time `json:"hour" validate:"required"`
	TotalTransactions int64     `json:"total_transactions" validate:"gte=0"`
	TotalBlocks       int64     `json:"total_blocks" validate:"gte=0"`
	UniqueWallets     int64     `json:"unique_wallets" validate:"gte=0"`
	AvgCUPerBlock     float64   `json:"avg_cu_per_block" validate:"gte=0"`
}

type NetworkPeakHour struct {
	Hour              time.Time `json:"hour"`
	HourLabel         string    `json:"hour_label"`
	TotalTransactions int64     `json:"total_transactions"`
}

type NetworkSummary struct {
	TotalTransactions24h int64 `json:"total_transactions_24h"`
	TotalBlocks24h       int64 `json:"total_blocks_24h"`
	AvgUniqueWallets     int64 `json:"avg_unique_wallets"`
}

// NetworkPulse is the network's hourly activity over the trailing window.
type NetworkPulse struct {
	HourlyStats []NetworkHourlyStat `json:"hourly_stats"`
	PeakHour    NetworkPeakHour     `json:"peak_hour"`
	Summary     NetworkSummary      `json:"summary"`
}

// NetworkStats describes the most recent stored hour.
type NetworkStats struct {
	Timestamp            time.Time `json:"timestamp"`
	TransactionsLastHour int64     `json:"transactions_last_hour"`
	BlocksLastHour       int64     `json:"blocks_last_hour"`
	UniqueWallets        int64     `json:"unique_wallets"`
	AvgCUPerBlock        float64   `json:"avg_cu_per_block"`
	EstimatedTPS         int64     `json:"estimated_tps"`
}
