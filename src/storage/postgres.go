package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trade-deck/src/helpers"
	"trade-deck/src/logger"
	"trade-deck/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable so several deployments can
	// share one database
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString

	// Postgres may still be starting when the service comes up
	res, err := helpers.RetryWithBackoff("postgres connect", 3, time.Second, func() (interface{}, error) {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return &helpers.DatabaseError{TradeDeckError: helpers.TradeDeckError{
			Message: "failed to connect to postgres",
			Cause:   err,
		}}
	}

	d.DB = res.(*sql.DB)

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) recreateTables() error {
	query := fmt.Sprintf(`DROP TABLE IF EXISTS "%s"."price_points";`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to drop price_points: %w", err)
	}

	// Create price_points
	query = fmt.Sprintf(`
		CREATE TABLE "%s"."price_points" (
			symbol TEXT,
			timestamp BIGINT,
			price DOUBLE PRECISION,
			bid DOUBLE PRECISION,
			ask DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (symbol, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create price_points: %w", err)
	}

	// Dynamic candle table per timeframe
	for _, tf := range d.Config.Timeframes {
		candleTable := fmt.Sprintf(`"%s"."candles_%s"`, d.Schema, tf)
		if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, candleTable)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", candleTable, err)
		}

		query = fmt.Sprintf(`
			CREATE TABLE %s (
				symbol TEXT,
				start_time BIGINT,
				end_time BIGINT,
				open DOUBLE PRECISION,
				high DOUBLE PRECISION,
				low DOUBLE PRECISION,
				close DOUBLE PRECISION,
				volume DOUBLE PRECISION,
				PRIMARY KEY (symbol, start_time)
			);
		`, candleTable)
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s: %w", candleTable, err)
		}
	}

	// Trades cache
	tradesTable := fmt.Sprintf(`"%s"."trades"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tradesTable)); err != nil {
		return fmt.Errorf("failed to drop trades: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			amount DOUBLE PRECISION,
			price DOUBLE PRECISION,
			fee DOUBLE PRECISION,
			pnl DOUBLE PRECISION,
			timestamp BIGINT
		);
	`, tradesTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trades: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePricePointsBulk(points []models.MPricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."price_points" (symbol, timestamp, price, bid, ask, volume)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, timestamp) DO NOTHING
	`, d.Schema)

	stmt, err := tx.Prepare(query)
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

func (d *PostgresDB) SaveCandles(candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	byTimeframe := make(map[string][]models.MCandle)
	for _, c := range candles {
		byTimeframe[c.Timeframe] = append(byTimeframe[c.Timeframe], c)
	}

	for tf, items := range byTimeframe {
		query := fmt.Sprintf(`
			INSERT INTO "%s"."candles_%s" (symbol, start_time, end_time, open, high, low, close, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, start_time) DO UPDATE SET
				end_time = excluded.end_time,
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				volume = excluded.volume
		`, d.Schema, tf)

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

func (d *PostgresDB) SaveTrades(trades []models.MTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."trades" (id, symbol, side, amount, price, fee, pnl, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, d.Schema)

	stmt, err := tx.Prepare(query)
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

func (d *PostgresDB) LoadCandles(symbol, timeframe string, limit int) ([]models.MCandle, error) {
	query := fmt.Sprintf(`
		SELECT symbol, start_time, end_time, open, high, low, close, volume
		FROM "%s"."candles_%s" WHERE symbol = $1
		ORDER BY start_time DESC LIMIT $2
	`, d.Schema, timeframe)

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

func (d *PostgresDB) LoadTrades(symbol string, limit int) ([]models.MTrade, error) {
	query := fmt.Sprintf(`
		SELECT id, symbol, side, amount, price, fee, pnl, timestamp
		FROM "%s"."trades" WHERE symbol = $1
		ORDER BY timestamp DESC LIMIT $2
	`, d.Schema)

	rows, err := d.DB.Query(query, symbol, limit)
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

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."price_points" WHERE timestamp < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup price_points error: %v", err)
	}

	for _, tf := range d.Config.Timeframes {
		if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."candles_%s" WHERE end_time < $1`, d.Schema, tf), cutoff); err != nil {
			d.Logger.Error("Cleanup candles_%s error: %v", tf, err)
		}
	}

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."trades" WHERE timestamp < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup trades error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
