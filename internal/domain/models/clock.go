package models

import "time"

type HourlyPoint struct {
	Hour         time.Time `json:"hour"`
	HourLabel    string    `json:"hour_label"`
	TxCount      int64     `json:"tx_count"`
	TxVolumeUSD  float64   `json:"tx_volume_usd"`
	UniqueBuyers int64     `json:"unique_buyers"`
}

// TokenClock is the hourly activity histogram of one token over the window.
type TokenClock struct {
	TokenAddress         string        `json:"token_address"`
	HourlyData           []HourlyPoint `json:"hourly_data"`
	PeakHour             string        `json:"peak_hour"`
	TotalVolume24h       float64       `json:"total_volume_24h"`
	TotalTransactions24h int64         `json:"total_transactions_24h"`
	TotalUniqueBuyers24h int64         `json:"total_unique_buyers_24h"`
}

type TokenMetrics struct {
	Volume24h            float64 `json:"volume_24h_usd"`
	UniqueBuyers24h      int64   `json:"unique_buyers_24h"`
	Holders              int64   `json:"holders"`
	HoldersGrowth24h     float64 `json:"holders_growth_24h"`
	LiquidityUSD         float64 `json:"liquidity_usd"`
	TotalTransactions24h int64   `json:"total_transactions_24h"`
}

// TokenDetails combines metadata with the token's 24h aggregate.
type TokenDetails struct {
	Token    TokenMetadata `json:"token"`
	Metrics  TokenMetrics  `json:"metrics"`
	PeakHour string        `json:"peak_hour"`
}
