package models

import "time"

// TokenMetricSample is one hour of on-chain activity for one token.
// (TokenAddress, Hour) is unique; Hour is truncated to the hour in UTC.
type TokenMetricSample struct {
	TokenAddress string    `json:"token_address" validate:"required,max=64"`
	Hour         time.Time `json:"hour" validate:"required"`
	TxCount      int64     `json:"tx_count" validate:"gte=0"`
	TxVolumeUSD  float64   `json:"tx_volume_usd" validate:"gte=0"`
	UniqueBuyers int64     `json:"unique_buyers" validate:"gte=0"`
	Holders      int64     `json:"holders" validate:"gte=0"`
	LiquidityUSD float64   `json:"liquidity_usd" validate:"gte=0"`
}

// TokenMetadata is display data; scoring never reads it.
type TokenMetadata struct {
	TokenAddress string `json:"token_address" validate:"required,max=64"`
	Symbol       string `json:"symbol" validate:"max=32"`
	Name         string `json:"name" validate:"max=128"`
	LogoURL      string `json:"logo_url" validate:"omitempty,url"`
}

// TokenAggregate is the per-run roll-up of one token's samples inside the window.
type TokenAggregate struct {
	TokenAddress     string
	Symbol           string
	Name             string
	LogoURL          string
	Volume24h        float64
	Buyers24h        int64
	Transactions24h  int64
	HoldersCurrent   int64
	HoldersStart     int64
	LiquidityAvg     float64
	HoldersGrowthPct float64
	// Samples are the token's in-window samples in chronological order.
	Samples []TokenMetricSample
}

// ScoredToken is one ranked entry of a scoring run.
type ScoredToken struct {
	Rank             int     `json:"rank"`
	TokenAddress     string  `json:"token_address"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	LogoURL          string  `json:"logo_url"`
	Volume24h        float64 `json:"volume_24h_usd"`
	Buyers24h        int64   `json:"unique_buyers_24h"`
	Transactions24h  int64   `json:"transactions_24h"`
	Holders          int64   `json:"holders"`
	HoldersGrowthPct float64 `json:"holders_growth_24h"`
	LiquidityUSD     float64 `json:"liquidity_usd"`
	EngagementScore  float64 `json:"engagement_score"`
	Score            float64 `json:"score"`
	PeakHour         string  `json:"peak_hour"`
	MemeClock        []int   `json:"meme_clock"`

	VolumeNorm        float64 `json:"-"`
	BuyersNorm        float64 `json:"-"`
	LiquidityNorm     float64 `json:"-"`
	HoldersGrowthNorm float64 `json:"-"`
}

// RankingSnapshot is a persisted, timestamped ranking.
type RankingSnapshot struct {
	RankingTime time.Time     `json:"ranking_time"`
	Rankings    []ScoredToken `json:"rankings"`
}

// RankingReason is stored next to each snapshot row to explain its score.
type RankingReason struct {
	Volume float64 `json:"volume"`
	Buyers int64   `json:"buyers"`
	Growth float64 `json:"growth"`
}

// Reason returns the explanation stored with a snapshot row.
func (t ScoredToken) Reason() RankingReason {
	return RankingReason{Volume: t.Volume24h, Buyers: t.Buyers24h, Growth: t.HoldersGrowthPct}
}

// SampleEnvelope is the batch form of an ingested message: optional metadata
// plus any number of samples for that token.
type SampleEnvelope struct {
	Token   *TokenMetadata      `json:"token,omitempty"`
	Samples []TokenMetricSample `json:"samples"`
}
