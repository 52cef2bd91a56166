package interfaces

import "trade-deck/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the local history cache.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SavePricePointsBulk inserts a batch of raw price points.
	SavePricePointsBulk(points []models.MPricePoint) error

	// -----------------------------------------------------------------------------

	// SaveCandles persists resampled candles for their timeframes.
	SaveCandles(candles []models.MCandle) error

	// -----------------------------------------------------------------------------

	// SaveTrades caches trading history entries pulled from upstream.
	SaveTrades(trades []models.MTrade) error

	// -----------------------------------------------------------------------------

	// LoadCandles returns up to limit most recent candles, oldest first.
	LoadCandles(symbol, timeframe string, limit int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// LoadTrades returns up to limit most recent trades, newest first.
	LoadTrades(symbol string, limit int) ([]models.MTrade, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes data older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
