package models

import "time"

// PricePoint is a single close price observation.
type PricePoint struct {
	Timestamp time.Time
	Close     float64
}

// ReturnPoint is a period-over-period return stamped with the later of the two prices.
type ReturnPoint struct {
	Timestamp time.Time
	Value     float64
}

// VolatilityPoint is a trailing-window standard deviation stamped with the window's last value.
type VolatilityPoint struct {
	Timestamp time.Time
	Value     float64
}

// PriceSeries is the close series of one symbol/timeframe.
type PriceSeries struct {
	Symbol    string
	Timeframe string
	Points    []PricePoint
}

// OhlcvBar is a normalized bar as written to storage by ingestion.
type OhlcvBar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    string
	Timeframe string
}
