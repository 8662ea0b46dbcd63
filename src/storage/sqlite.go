package storage

import (
	"database/sql"
	"fmt"
	"time"

	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
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

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("SQLiteDB initialized successfully (%s)", dsn)
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, REAL for float64, TEXT for string
	query := `
		CREATE TABLE IF NOT EXISTS crypto_prices (
			symbol TEXT,
			timestamp INTEGER,
			price REAL,
			volume_24h REAL,
			price_change_24h REAL,
			high_24h REAL,
			low_24h REAL,
			PRIMARY KEY (symbol, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create crypto_prices: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS aggregated_metrics (
			symbol TEXT,
			window_start INTEGER,
			window_end INTEGER,
			avg_price REAL,
			min_price REAL,
			max_price REAL,
			vwap REAL,
			total_volume REAL,
			trade_count INTEGER,
			price_volatility REAL,
			price_range REAL,
			avg_sentiment REAL,
			sentiment_count INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, window_start)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create aggregated_metrics: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS market_alerts (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			alert_type TEXT,
			severity TEXT,
			message TEXT,
			trigger_value REAL,
			is_active INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create market_alerts: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SavePriceTicksBulk(ticks []models.MPriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO crypto_prices (symbol, timestamp, price, volume_24h, price_change_24h, high_24h, low_24h)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		_, err := stmt.Exec(t.Symbol, t.EventTime, t.Price, t.Volume24h, t.PriceChange24h, t.High24h, t.Low24h)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) AppendAggregatedMetrics(record models.MAggregatedMetrics) error {
	query := `
		INSERT OR IGNORE INTO aggregated_metrics
			(symbol, window_start, window_end, avg_price, min_price, max_price, vwap,
			 total_volume, trade_count, price_volatility, price_range, avg_sentiment, sentiment_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.DB.Exec(query,
		record.Symbol, record.WindowStart, record.WindowEnd,
		record.AvgPrice, record.MinPrice, record.MaxPrice, record.VWAP,
		record.TotalVolume, record.TradeCount,
		record.PriceVolatility, record.PriceRange,
		record.AvgSentiment, record.SentimentCount,
		record.CreatedAt.UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) AppendAlert(record models.MAlert) error {
	query := `
		INSERT INTO market_alerts (id, symbol, alert_type, severity, message, trigger_value, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.DB.Exec(query,
		record.ID, record.Symbol, record.AlertType, record.Severity,
		record.Message, record.TriggerValue, record.IsActive, record.CreatedAt.UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.DataRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec("DELETE FROM crypto_prices WHERE timestamp < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup crypto_prices error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM aggregated_metrics WHERE window_end < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup aggregated_metrics error: %v", err)
	}

	d.Logger.Info("Cleanup completed")
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
