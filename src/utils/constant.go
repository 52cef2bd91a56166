package utils

import "math"

// -----------------------------------------------------------------------------

// Constants and helper functions for data retention sizing.
// Crypto venues trade around the clock; assuming one observed tick per
// minute gives 1440 points per day.
const (
	DefaultRetentionDays = 7
	pointsPerDay         = 1440
)

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints calculates max buffered points based on retention days.
func CalculateMaxDataPoints(days int) int {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return int(math.Ceil(float64(days) * pointsPerDay))
}
