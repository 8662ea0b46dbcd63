package storage

import (
	"context"
	"fmt"
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

type captureStore struct {
	batches [][]models.MPriceTick
}

func (s *captureStore) Initialize() error { return nil }
func (s *captureStore) AppendAggregatedMetrics(record models.MAggregatedMetrics) error {
	return nil
}
func (s *captureStore) AppendAlert(record models.MAlert) error { return nil }
func (s *captureStore) SavePriceTicksBulk(ticks []models.MPriceTick) error {
	batch := make([]models.MPriceTick, len(ticks))
	copy(batch, ticks)
	s.batches = append(s.batches, batch)
	return nil
}
func (s *captureStore) Close() error { return nil }

// -----------------------------------------------------------------------------

type captureCache struct {
	latest map[string]models.MPriceTick
}

func (c *captureCache) SetLatestTick(_ context.Context, tick models.MPriceTick) error {
	c.latest[tick.Symbol] = tick
	return nil
}

func (c *captureCache) GetLatestTick(_ context.Context, symbol string) (*models.MPriceTick, error) {
	tick, ok := c.latest[symbol]
	if !ok {
		return nil, fmt.Errorf("no cached tick for %s", symbol)
	}
	return &tick, nil
}

func (c *captureCache) Close() error { return nil }

// -----------------------------------------------------------------------------

func newTestRecorder(batchSize int) (*Recorder, *captureStore, *captureCache) {
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			TickBatchSize:    batchSize,
			TickFlushSeconds: 3600, // keep the timer out of the way
		},
	}
	store := &captureStore{}
	cch := &captureCache{latest: make(map[string]models.MPriceTick)}
	return NewRecorder(cfg, store, cch, logger.NewLogger("ERROR", "test")), store, cch
}

func tickEvent(symbol string, price float64, ts int64) models.MMarketEvent {
	return models.MMarketEvent{
		Type: models.EventTypeTicker,
		Tick: &models.MPriceTick{Symbol: symbol, Price: price, EventTime: ts},
	}
}

// -----------------------------------------------------------------------------
// Tests
// -----------------------------------------------------------------------------

// A full buffer is written out as one batch.
func TestRecorder_BatchFlush(t *testing.T) {
	rec, store, _ := newTestRecorder(2)
	ctx := context.Background()

	rec.record(ctx, tickEvent("BTCUSDT", 1, 1))
	require.Empty(t, store.batches)

	rec.record(ctx, tickEvent("BTCUSDT", 2, 2))
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
}

// -----------------------------------------------------------------------------

// Every tick refreshes the latest-tick cache immediately, before any flush.
func TestRecorder_CacheAlwaysCurrent(t *testing.T) {
	rec, store, cch := newTestRecorder(100)
	ctx := context.Background()

	rec.record(ctx, tickEvent("BTCUSDT", 50_000, 1))
	rec.record(ctx, tickEvent("BTCUSDT", 50_100, 2))

	require.Empty(t, store.batches)
	tick, err := cch.GetLatestTick(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50_100.0, tick.Price)
}

// -----------------------------------------------------------------------------

// Trades are broadcast-only and never persisted as price rows.
func TestRecorder_IgnoresTrades(t *testing.T) {
	rec, store, cch := newTestRecorder(1)
	ctx := context.Background()

	rec.record(ctx, models.MMarketEvent{
		Type:  models.EventTypeTrade,
		Trade: &models.MTradeEvent{Symbol: "BTCUSDT", Price: 1, Quantity: 1, EventTime: 1},
	})

	assert.Empty(t, store.batches)
	assert.Empty(t, cch.latest)
}

// -----------------------------------------------------------------------------

// Closing the event channel flushes the partial batch.
func TestRecorder_FlushOnShutdown(t *testing.T) {
	rec, store, _ := newTestRecorder(100)

	events := make(chan models.MMarketEvent, 4)
	events <- tickEvent("BTCUSDT", 1, 1)
	events <- tickEvent("ETHUSDT", 2, 2)
	close(events)

	done := make(chan struct{})
	go func() {
		rec.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop on channel close")
	}

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
}
