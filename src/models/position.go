package models

import "time"

// MPosition represents an open position as reported by the trading backend.
type MPosition struct {
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"` // "long" or "short"
	Amount        float64   `json:"amount"`
	AvgPrice      float64   `json:"avg_price"`
	Leverage      int       `json:"leverage"`
	MarginMode    string    `json:"margin_mode"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	OpenedAt      int64     `json:"opened_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// MTrade is a single entry of the trading history.
type MTrade struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	PnL       float64   `json:"pnl"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// MBotStatus mirrors the start/stop state of the upstream trading bot.
type MBotStatus struct {
	Running   bool   `json:"running"`
	Symbol    string `json:"symbol"`
	Strategy  string `json:"strategy"`
	StartedAt int64  `json:"started_at"`
	Message   string `json:"message"`
}
