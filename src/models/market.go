package models

import "time"

// MPricePoint represents a single observed price tick for a symbol.
type MPricePoint struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Volume    float64   `json:"volume"`
	ChangePct float64   `json:"change_pct"` // fractional change since the oldest buffered tick
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// MCandle represents one aggregated candle for a chart timeframe.
type MCandle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // e.g., "5m", "1h"
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	StartTime int64     `json:"start_time"`
	EndTime   int64     `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// MOrderBookLevel is one price level of the book ladder.
type MOrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Total float64 `json:"total"` // cumulative size from best price down to this level
}

// MOrderBook is a point-in-time bid/ask ladder around the mark price.
type MOrderBook struct {
	Symbol    string            `json:"symbol"`
	Bids      []MOrderBookLevel `json:"bids"` // best bid first
	Asks      []MOrderBookLevel `json:"asks"` // best ask first
	MidPrice  float64           `json:"mid_price"`
	Spread    float64           `json:"spread"`
	Timestamp int64             `json:"timestamp"`
	Synthetic bool              `json:"synthetic"`
}
