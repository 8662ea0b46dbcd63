package storage

import (
	"path/filepath"
	"testing"
	"time"

	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func newTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()

	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "test.db"),
		},
	}

	db, err := NewSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *SQLiteDB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

func TestSQLite_SavePriceTicksBulk(t *testing.T) {
	db := newTestSQLite(t)

	change := 3.5
	ticks := []models.MPriceTick{
		{Symbol: "BTCUSDT", Price: 50_000, Volume24h: 100, PriceChange24h: &change, EventTime: 1},
		{Symbol: "BTCUSDT", Price: 50_100, Volume24h: 101, EventTime: 2},
		{Symbol: "ETHUSDT", Price: 3_000, Volume24h: 50, EventTime: 1},
	}

	require.NoError(t, db.SavePriceTicksBulk(ticks))
	assert.Equal(t, 3, countRows(t, db, "crypto_prices"))

	// Duplicate (symbol, timestamp) rows are ignored, not an error.
	require.NoError(t, db.SavePriceTicksBulk(ticks))
	assert.Equal(t, 3, countRows(t, db, "crypto_prices"))

	require.NoError(t, db.SavePriceTicksBulk(nil))
}

// -----------------------------------------------------------------------------

func TestSQLite_AppendAggregatedMetrics(t *testing.T) {
	db := newTestSQLite(t)

	volatility := 2.0
	record := models.MAggregatedMetrics{
		Symbol:          "BTCUSDT",
		WindowStart:     1_755_000_000_000,
		WindowEnd:       1_755_000_300_000,
		AvgPrice:        100,
		MinPrice:        98,
		MaxPrice:        102,
		VWAP:            100.857,
		TotalVolume:     35,
		TradeCount:      3,
		PriceVolatility: &volatility,
		PriceRange:      4,
		CreatedAt:       time.Now().UTC(),
	}

	require.NoError(t, db.AppendAggregatedMetrics(record))
	assert.Equal(t, 1, countRows(t, db, "aggregated_metrics"))

	// A window is emitted once; a replayed record must not duplicate it.
	require.NoError(t, db.AppendAggregatedMetrics(record))
	assert.Equal(t, 1, countRows(t, db, "aggregated_metrics"))

	// Nil volatility round-trips as NULL.
	var vol *float64
	require.NoError(t, db.DB.QueryRow(
		"SELECT price_volatility FROM aggregated_metrics WHERE symbol = ?", "BTCUSDT").Scan(&vol))
	require.NotNil(t, vol)
	assert.InDelta(t, 2.0, *vol, 1e-9)
}

// -----------------------------------------------------------------------------

func TestSQLite_AppendAlert(t *testing.T) {
	db := newTestSQLite(t)

	alert := models.MAlert{
		ID:           "alert-1",
		Symbol:       "BTCUSDT",
		AlertType:    models.AlertTypePriceSpike,
		Severity:     models.SeverityHigh,
		Message:      "BTCUSDT: 24h price change 12.00% (high)",
		TriggerValue: 12,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	require.NoError(t, db.AppendAlert(alert))
	assert.Equal(t, 1, countRows(t, db, "market_alerts"))

	var severity string
	require.NoError(t, db.DB.QueryRow(
		"SELECT severity FROM market_alerts WHERE id = ?", "alert-1").Scan(&severity))
	assert.Equal(t, models.SeverityHigh, severity)
}

// -----------------------------------------------------------------------------

func TestSQLite_CleanupOldData(t *testing.T) {
	db := newTestSQLite(t)
	db.Config.Storage.DataRetentionDays = 7

	now := time.Now().UTC().UnixMilli()
	old := time.Now().UTC().AddDate(0, 0, -30).UnixMilli()

	require.NoError(t, db.SavePriceTicksBulk([]models.MPriceTick{
		{Symbol: "BTCUSDT", Price: 1, EventTime: old},
		{Symbol: "BTCUSDT", Price: 2, EventTime: now},
	}))

	require.NoError(t, db.CleanupOldData())
	assert.Equal(t, 1, countRows(t, db, "crypto_prices"))
}

// -----------------------------------------------------------------------------

// Initialize twice must not wipe existing history.
func TestSQLite_ReinitializeKeepsData(t *testing.T) {
	db := newTestSQLite(t)

	require.NoError(t, db.SavePriceTicksBulk([]models.MPriceTick{
		{Symbol: "BTCUSDT", Price: 1, EventTime: 1},
	}))
	require.NoError(t, db.Close())

	db2, err := NewSQLiteDB(db.Config, db.Logger)
	require.NoError(t, err)
	require.NoError(t, db2.Initialize())
	defer db2.Close()

	assert.Equal(t, 1, countRows(t, db2, "crypto_prices"))
}
