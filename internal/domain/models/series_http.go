package models

import "time"

// Requests for the asset analytics HTTP endpoints.

type PricesRequest struct {
	Symbol    string `param:"symbol" validate:"required,excludesall=/\\"`
	Timeframe string `query:"timeframe" default:"1h" validate:"required,excludesall=/\\"`
	Limit     int    `query:"limit" default:"500" validate:"gte=1,lte=5000"`
}

type ReturnsRequest struct {
	Symbol    string `param:"symbol" validate:"required,excludesall=/\\"`
	Timeframe string `query:"timeframe" default:"1h" validate:"required,excludesall=/\\"`
	Type      string `query:"type" default:"log" validate:"oneof=log simple"`
	Limit     int    `query:"limit" default:"500" validate:"gte=2,lte=5000"`
}

type VolatilityRequest struct {
	Symbol    string `param:"symbol" validate:"required,excludesall=/\\"`
	Timeframe string `query:"timeframe" default:"1h" validate:"required,excludesall=/\\"`
	Type      string `query:"type" default:"log" validate:"oneof=log simple"`
	Window    int    `query:"window" default:"24" validate:"gte=2,lte=1000"`
	Limit     int    `query:"limit" default:"500" validate:"gte=2,lte=5000"`
}

// Response payloads. Timestamps serialize as RFC 3339 in UTC.

type PricePointOut struct {
	Timestamp time.Time `json:"timestamp_utc"`
	Close     float64   `json:"close"`
}

type PricesOut struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Points    []PricePointOut `json:"points"`
}

type ValuePointOut struct {
	Timestamp time.Time `json:"timestamp_utc"`
	Value     float64   `json:"value"`
}
