package storage

import (
	"database/sql"
	"fmt"
	"time"

	"trade-deck/src/logger"
	"trade-deck/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Recreate Tables
	return d.recreateTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) recreateTables() error {
	// Drop price_points
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS price_points"); err != nil {
		return fmt.Errorf("failed to drop price_points: %w", err)
	}

	// Create price_points
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE price_points (
			symbol TEXT,
			timestamp INTEGER,
			price REAL,
			bid REAL,
			ask REAL,
			volume REAL,
			PRIMARY KEY (symbol, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_points: %w", err)
	}

	// Candle table per timeframe
	for _, tf := range d.Config.Timeframes {
		candleTable := fmt.Sprintf("candles_%s", tf)
		if _, err := d.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", candleTable)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", candleTable, err)
		}

		query = fmt.Sprintf(`
			CREATE TABLE %s (
				symbol TEXT,
				start_time INTEGER,
				end_time INTEGER,
				open REAL,
				high REAL,
				low REAL,
				close REAL,
				volume REAL,
				PRIMARY KEY (symbol, start_time)
			);
		`, candleTable)
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s: %w", candleTable, err)
		}
	}

	// Trades cache
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS trades"); err != nil {
		return fmt.Errorf("failed to drop trades: %w", err)
	}

	query = `
		CREATE TABLE trades (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			amount REAL,
			price REAL,
			fee REAL,
			pnl REAL,
			timestamp INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trades: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SavePricePointsBulk(points []models.MPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_points (symbol, timestamp, price, bid, ask, volume)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.Symbol, p.Timestamp, p.Price, p.Bid, p.Ask, p.Volume)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveCandles(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Group by timeframe, one table each
	byTimeframe := make(map[string][]models.MCandle)
	for _, c := range candles {
		byTimeframe[c.Timeframe] = append(byTimeframe[c.Timeframe], c)
	}

	for tf, items := range byTimeframe {
		tableName := fmt.Sprintf("candles_%s", tf)

		query := fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (symbol, start_time, end_time, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, tableName)

		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range items {
			_, err = stmt.Exec(c.Symbol, c.StartTime, c.EndTime, c.Open, c.High, c.Low, c.Close, c.Volume)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveTrades(trades []models.MTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades (id, symbol, side, amount, price, fee, pnl, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(t.ID, t.Symbol, t.Side, t.Amount, t.Price, t.Fee, t.PnL, t.Timestamp)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadCandles(symbol, timeframe string, limit int) ([]models.MCandle, error) {
	tableName := fmt.Sprintf("candles_%s", timeframe)

	query := fmt.Sprintf(`
		SELECT symbol, start_time, end_time, open, high, low, close, volume
		FROM %s WHERE symbol = ?
		ORDER BY start_time DESC LIMIT ?
	`, tableName)

	rows, err := d.DB.Query(query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.MCandle
	for rows.Next() {
		c := models.MCandle{Timeframe: timeframe}
		if err := rows.Scan(&c.Symbol, &c.StartTime, &c.EndTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for chart consumption
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadTrades(symbol string, limit int) ([]models.MTrade, error) {
	rows, err := d.DB.Query(`
		SELECT id, symbol, side, amount, price, fee, pnl, timestamp
		FROM trades WHERE symbol = ?
		ORDER BY timestamp DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.MTrade
	for rows.Next() {
		var t models.MTrade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &t.Amount, &t.Price, &t.Fee, &t.PnL, &t.Timestamp); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Debug("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	// Clean price_points
	if _, err := d.DB.Exec("DELETE FROM price_points WHERE timestamp < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup price_points error: %v", err)
	}

	// Clean candle tables
	for _, tf := range d.Config.Timeframes {
		tableName := fmt.Sprintf("candles_%s", tf)
		if _, err := d.DB.Exec(fmt.Sprintf("DELETE FROM %s WHERE end_time < ?", tableName), cutoff); err != nil {
			d.Logger.Error("Cleanup %s error: %v", tableName, err)
		}
	}

	// Clean trades cache
	if _, err := d.DB.Exec("DELETE FROM trades WHERE timestamp < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup trades error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
