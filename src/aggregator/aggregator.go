package aggregator

import (
	"context"
	"time"

	"crypto-analytics/src/analysis/core"
	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Window Aggregator
//
// Consumes the normalized event stream and folds ticks into per-symbol
// tumbling windows aligned to epoch boundaries. A window opens implicitly on
// the first tick of its interval and closes once the watermark
// (max observed event time minus the late tolerance) passes its end. Closed
// windows are emitted to storage and discarded from memory; ticks arriving
// for an interval the watermark already passed are dropped and counted.
//
// The open-window table is owned exclusively by the single Run goroutine,
// so it needs no locking.
// -----------------------------------------------------------------------------

// SentimentPolicy maps a 24h price change percentage to (score, confidence).
type SentimentPolicy func(priceChangePercent float64) (float64, float64)

// -----------------------------------------------------------------------------

type windowKey struct {
	symbol      string
	windowStart int64
}

// window accumulates running sums; derived metrics are computed on close.
type window struct {
	symbol      string
	windowStart int64
	windowEnd   int64

	count          int
	priceSum       float64
	priceSumSq     float64
	minPrice       float64
	maxPrice       float64
	volumeSum      float64
	priceVolumeSum float64
	sentimentSum   float64
	sentimentCount int
}

// -----------------------------------------------------------------------------

type Aggregator struct {
	Storage interfaces.IStorage
	Logger  *logger.Logger
	Metrics *instrumentation.Metrics

	windowMillis    int64
	toleranceMillis int64
	policy          SentimentPolicy

	open         map[windowKey]*window
	maxEventTime int64
}

// -----------------------------------------------------------------------------

func NewAggregator(cfg models.MAggregatorConfig, policy SentimentPolicy, store interfaces.IStorage, log *logger.Logger, metrics *instrumentation.Metrics) *Aggregator {
	return &Aggregator{
		Storage:         store,
		Logger:          log,
		Metrics:         metrics,
		windowMillis:    int64(cfg.WindowSeconds) * 1000,
		toleranceMillis: int64(cfg.LateToleranceSeconds) * 1000,
		policy:          policy,
		open:            make(map[windowKey]*window),
	}
}

// -----------------------------------------------------------------------------
// Folding
// -----------------------------------------------------------------------------

// watermark is maxObservedEventTime - lateTolerance. Windows whose end lies
// at or before it are closed; ticks for such windows are late.
func (a *Aggregator) watermark() int64 {
	return a.maxEventTime - a.toleranceMillis
}

// -----------------------------------------------------------------------------

// Fold accumulates one tick into its window, closing every window the
// advanced watermark has passed.
func (a *Aggregator) Fold(tick models.MPriceTick) {
	if tick.EventTime > a.maxEventTime {
		a.maxEventTime = tick.EventTime
	}

	windowStart := tick.EventTime - tick.EventTime%a.windowMillis
	windowEnd := windowStart + a.windowMillis

	if windowEnd <= a.watermark() {
		// Late data policy: best effort, dropped, never corrected.
		a.Metrics.LateEventsTotal.Inc()
		a.Logger.Debug("Dropping late tick for %s at %d (watermark %d)", tick.Symbol, tick.EventTime, a.watermark())
		a.closeExpired()
		return
	}

	key := windowKey{symbol: tick.Symbol, windowStart: windowStart}
	w, ok := a.open[key]
	if !ok {
		w = &window{
			symbol:      tick.Symbol,
			windowStart: windowStart,
			windowEnd:   windowEnd,
			minPrice:    tick.Price,
			maxPrice:    tick.Price,
		}
		a.open[key] = w
	}

	w.count++
	w.priceSum += tick.Price
	w.priceSumSq += tick.Price * tick.Price
	if tick.Price < w.minPrice {
		w.minPrice = tick.Price
	}
	if tick.Price > w.maxPrice {
		w.maxPrice = tick.Price
	}
	w.volumeSum += tick.Volume24h
	w.priceVolumeSum += tick.Price * tick.Volume24h

	if tick.PriceChange24h != nil {
		score, _ := a.policy(*tick.PriceChange24h)
		w.sentimentSum += score
		w.sentimentCount++
	}

	a.closeExpired()
}

// -----------------------------------------------------------------------------
// Closing
// -----------------------------------------------------------------------------

func (a *Aggregator) closeExpired() {
	wm := a.watermark()
	for key, w := range a.open {
		if w.windowEnd <= wm {
			a.emit(w)
			delete(a.open, key)
		}
	}
}

// -----------------------------------------------------------------------------

// emit derives the metrics record from the accumulator and hands it to the
// storage collaborator. Fire-and-forget: failures are logged, not retried.
func (a *Aggregator) emit(w *window) {
	record := models.MAggregatedMetrics{
		Symbol:      w.symbol,
		WindowStart: w.windowStart,
		WindowEnd:   w.windowEnd,
		AvgPrice:    w.priceSum / float64(w.count),
		MinPrice:    w.minPrice,
		MaxPrice:    w.maxPrice,
		TotalVolume: w.volumeSum,
		TradeCount:  w.count,
		PriceRange:  w.maxPrice - w.minPrice,
		CreatedAt:   time.Now().UTC(),
	}

	record.VWAP = core.VWAP(w.priceVolumeSum, w.volumeSum, record.AvgPrice)

	if stddev, ok := core.SampleStdDev(w.count, w.priceSum, w.priceSumSq); ok {
		record.PriceVolatility = &stddev
	}

	if w.sentimentCount > 0 {
		avg := w.sentimentSum / float64(w.sentimentCount)
		record.AvgSentiment = &avg
		record.SentimentCount = w.sentimentCount
	}

	a.Metrics.WindowsClosedTotal.Inc()
	a.Logger.Info("Closed window %s [%d, %d): %d ticks, vwap %.4f",
		w.symbol, w.windowStart, w.windowEnd, record.TradeCount, record.VWAP)

	if err := a.Storage.AppendAggregatedMetrics(record); err != nil {
		a.Logger.Error("Failed to append metrics for %s: %v", w.symbol, err)
	}
}

// -----------------------------------------------------------------------------

// Flush closes and emits every open window. Shutdown policy: flush, not
// discard, so a restart loses at most the in-flight socket reads.
func (a *Aggregator) Flush() {
	for key, w := range a.open {
		a.emit(w)
		delete(a.open, key)
	}
}

// -----------------------------------------------------------------------------

// OpenWindows reports the current number of open windows.
func (a *Aggregator) OpenWindows() int {
	return len(a.open)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run consumes the fan-out queue until cancellation or channel close, then
// flushes. Only ticker events are folded; trades are broadcast-only.
func (a *Aggregator) Run(ctx context.Context, events <-chan models.MMarketEvent) {
	defer a.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == models.EventTypeTicker && ev.Tick != nil {
				a.Fold(*ev.Tick)
			}
		}
	}
}
