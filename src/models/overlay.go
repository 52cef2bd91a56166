package models

// -----------------------------------------------------------------------------
// Chart Overlay Series
// -----------------------------------------------------------------------------

// MOverlaySeries is a named indicator output aligned to the source candles.
// Offset is the number of leading source indices with no value (period - 1),
// so Values[i] belongs to source index i + Offset.
type MOverlaySeries struct {
	Name   string    `json:"name"` // e.g., "SMA-20", "BOLL-20-2-upper"
	Offset int       `json:"offset"`
	Values []float64 `json:"values"`
}
