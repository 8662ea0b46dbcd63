package storage

import (
	"context"
	"time"

	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Recorder
//
// Consumes the raw event stream, keeps the latest-tick cache current and
// persists ticks in batches. Runs as its own dispatcher consumer so a slow
// database never stalls broadcasting or aggregation.
// -----------------------------------------------------------------------------

const cleanupInterval = 24 * time.Hour

type cleaner interface {
	CleanupOldData() error
}

type Recorder struct {
	Config *models.MConfig
	Logger *logger.Logger
	Store  interfaces.IStorage
	Cache  interfaces.ICache

	buffer []models.MPriceTick
}

// -----------------------------------------------------------------------------

func NewRecorder(cfg *models.MConfig, store interfaces.IStorage, cache interfaces.ICache, log *logger.Logger) *Recorder {
	return &Recorder{
		Config: cfg,
		Logger: log,
		Store:  store,
		Cache:  cache,
		buffer: make([]models.MPriceTick, 0, cfg.Storage.TickBatchSize),
	}
}

// -----------------------------------------------------------------------------

// Run drains the event channel until it closes, then flushes the remainder.
func (r *Recorder) Run(ctx context.Context, events <-chan models.MMarketEvent) {
	flushEvery := time.Duration(r.Config.Storage.TickFlushSeconds) * time.Second
	flushTicker := time.NewTicker(flushEvery)
	defer flushTicker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	defer r.Flush()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.record(ctx, ev)

		case <-flushTicker.C:
			r.Flush()

		case <-cleanupTicker.C:
			if c, ok := r.Store.(cleaner); ok {
				if err := c.CleanupOldData(); err != nil {
					r.Logger.Error("Recorder: cleanup failed: %v", err)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (r *Recorder) record(ctx context.Context, ev models.MMarketEvent) {
	// Trades are broadcast-only, nothing to persist here.
	if ev.Type != models.EventTypeTicker || ev.Tick == nil {
		return
	}
	tick := *ev.Tick

	if r.Cache != nil {
		if err := r.Cache.SetLatestTick(ctx, tick); err != nil {
			r.Logger.Debug("Recorder: cache write failed for %s: %v", tick.Symbol, err)
		}
	}

	r.buffer = append(r.buffer, tick)
	if len(r.buffer) >= r.Config.Storage.TickBatchSize {
		r.Flush()
	}
}

// -----------------------------------------------------------------------------

// Flush writes out whatever is buffered. Failures drop the batch: raw tick
// history is best-effort and must not back up the stream.
func (r *Recorder) Flush() {
	if len(r.buffer) == 0 {
		return
	}

	if err := r.Store.SavePriceTicksBulk(r.buffer); err != nil {
		r.Logger.Error("Recorder: failed to persist %d ticks: %v", len(r.buffer), err)
	} else {
		r.Logger.Debug("Recorder: persisted %d ticks", len(r.buffer))
	}

	r.buffer = r.buffer[:0]
}
