package models

import "time"

// Requests for ranking HTTP endpoints.

type TopMemeRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1"`
}

type TokenAddressRequest struct {
	Address string `param:"address" validate:"required,max=64,alphanum"`
}

type RefreshRequest struct {
	Reason string `json:"reason" default:"manual" validate:"max=64"`
}

type TopMemeResponse struct {
	Rankings    []ScoredToken `json:"rankings"`
	LastUpdated time.Time     `json:"last_updated"`
	Cached      bool          `json:"cached"`
	Stale       bool          `json:"stale,omitempty"`
}

type RefreshResponse struct {
	Queued     bool       `json:"queued"`
	SnapshotAt *time.Time `json:"snapshot_at,omitempty"`
	Tokens     int        `json:"tokens,omitempty"`
}
