package candle

import (
	"time"
)

// Candle is the wire form of a lit candle.
type Candle struct {
	GraveID    string    `json:"graveId"`
	GraveType  string    `json:"graveType"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar *string   `json:"userAvatar,omitempty"`
	LitAt      time.Time `json:"litAt"`
}

type LightRequest struct {
	GraveID    string  `json:"graveId"`
	GraveType  string  `json:"graveType"`
	UserID     string  `json:"userId"`
	UserName   string  `json:"userName"`
	UserAvatar *string `json:"userAvatar,omitempty"`
}

type LightResponse struct {
	Success     bool     `json:"success"`
	Candles     []Candle `json:"candles"`
	CandleCount int64    `json:"candleCount"`
}

type CandlesResponse struct {
	Candles []Candle `json:"candles"`
}

// CandleCountResponse keeps the capitalized key the mobile client reads.
type CandleCountResponse struct {
	CandleCount int64 `json:"CandleCount"`
}

type StatusResponse struct {
	State      string     `json:"state"`
	LitAt      *time.Time `json:"litAt,omitempty"`
	RetryAfter int64      `json:"retryAfter"`
}

type ErrorResponse struct {
	Error      string     `json:"error"`
	RetryAfter *int64     `json:"retryAfter,omitempty"`
	LitAt      *time.Time `json:"litAt,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
