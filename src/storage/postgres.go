package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

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
	// Use the executable name as schema so several deployments can share a DB
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
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	// History tables are append-only and survive restarts, so IF NOT EXISTS
	// instead of drop/recreate.
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."crypto_prices" (
			symbol TEXT,
			timestamp BIGINT,
			price DOUBLE PRECISION,
			volume_24h DOUBLE PRECISION,
			price_change_24h DOUBLE PRECISION,
			high_24h DOUBLE PRECISION,
			low_24h DOUBLE PRECISION,
			PRIMARY KEY (symbol, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create crypto_prices: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."aggregated_metrics" (
			symbol TEXT,
			window_start BIGINT,
			window_end BIGINT,
			avg_price DOUBLE PRECISION,
			min_price DOUBLE PRECISION,
			max_price DOUBLE PRECISION,
			vwap DOUBLE PRECISION,
			total_volume DOUBLE PRECISION,
			trade_count INTEGER,
			price_volatility DOUBLE PRECISION,
			price_range DOUBLE PRECISION,
			avg_sentiment DOUBLE PRECISION,
			sentiment_count INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (symbol, window_start)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create aggregated_metrics: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."market_alerts" (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			alert_type TEXT,
			severity TEXT,
			message TEXT,
			trigger_value DOUBLE PRECISION,
			is_active BOOLEAN,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create market_alerts: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePriceTicksBulk(ticks []models.MPriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO "%s"."crypto_prices" (symbol, timestamp, price, volume_24h, price_change_24h, high_24h, low_24h)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, timestamp) DO NOTHING
	`, d.Schema)
	stmt, err := tx.Prepare(query)
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

func (d *PostgresDB) AppendAggregatedMetrics(record models.MAggregatedMetrics) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."aggregated_metrics"
			(symbol, window_start, window_end, avg_price, min_price, max_price, vwap,
			 total_volume, trade_count, price_volatility, price_range, avg_sentiment, sentiment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol, window_start) DO NOTHING
	`, d.Schema)

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

func (d *PostgresDB) AppendAlert(record models.MAlert) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."market_alerts" (id, symbol, alert_type, severity, message, trigger_value, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.Schema)

	_, err := d.DB.Exec(query,
		record.ID, record.Symbol, record.AlertType, record.Severity,
		record.Message, record.TriggerValue, record.IsActive, record.CreatedAt.UTC())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.DataRetentionDays
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Info("Cleaning up data older than %d days (timestamp < %d)...", retentionDays, cutoff)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."crypto_prices" WHERE timestamp < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup crypto_prices error: %v", err)
	}

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."aggregated_metrics" WHERE window_end < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup aggregated_metrics error: %v", err)
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
