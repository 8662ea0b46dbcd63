package anomaly

import (
	"fmt"
	"strings"
	"time"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/interfaces"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"
	"crypto-analytics/src/utils"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Detector evaluates the anomaly rules on every tick. The rules themselves
// are stateless; the only state kept is a rolling per-symbol volume history
// (for the ratio annotation) and the last-alert times backing the cooldown.
// -----------------------------------------------------------------------------

type Detector struct {
	Config  models.MAnomalyConfig
	Storage interfaces.IStorage
	Logger  *logger.Logger
	Metrics *instrumentation.Metrics

	cooldown      time.Duration
	volumeHistory map[string]*utils.RingBuffer
	lastAlert     map[string]time.Time // keyed symbol|alertType

	// Overridable clock for tests.
	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewDetector(cfg models.MAnomalyConfig, store interfaces.IStorage, log *logger.Logger, metrics *instrumentation.Metrics) *Detector {
	return &Detector{
		Config:        cfg,
		Storage:       store,
		Logger:        log,
		Metrics:       metrics,
		cooldown:      time.Duration(cfg.CooldownSeconds) * time.Second,
		volumeHistory: make(map[string]*utils.RingBuffer),
		lastAlert:     make(map[string]time.Time),
		now:           time.Now,
	}
}

// -----------------------------------------------------------------------------
// Rule evaluation
// -----------------------------------------------------------------------------

// priceSpikeSeverity applies the symmetric 24h change thresholds.
func (d *Detector) priceSpikeSeverity(changePct float64) string {
	switch {
	case changePct > d.Config.PriceSpikeHighPct || changePct < -d.Config.PriceSpikeHighPct:
		return models.SeverityHigh
	case changePct > d.Config.PriceSpikeMediumPct || changePct < -d.Config.PriceSpikeMediumPct:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// -----------------------------------------------------------------------------

func (d *Detector) volumeSurgeSeverity(volume float64) string {
	switch {
	case volume > d.Config.VolumeSurgeHigh:
		return models.SeverityHigh
	case volume > d.Config.VolumeSurgeMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// -----------------------------------------------------------------------------

// Evaluate runs both rules on a tick and returns the alert to emit, or nil.
// Both rules may fire from the same tick; they collapse into one alert whose
// severity is the higher of the two and whose message names every condition.
func (d *Detector) Evaluate(tick models.MPriceTick) *models.MAlert {
	// Rolling average volume is tracked for every tick, qualifying or not.
	history, ok := d.volumeHistory[tick.Symbol]
	if !ok {
		history = utils.NewRingBuffer(d.Config.VolumeHistorySize)
		d.volumeHistory[tick.Symbol] = history
	}
	avgVolume := history.Mean()
	history.Append(tick.Volume24h)

	priceSeverity := models.SeverityLow
	changePct := 0.0
	if tick.PriceChange24h != nil {
		changePct = *tick.PriceChange24h
		priceSeverity = d.priceSpikeSeverity(changePct)
	}
	volumeSeverity := d.volumeSurgeSeverity(tick.Volume24h)

	priceFired := models.SeverityRank(priceSeverity) > models.SeverityRank(models.SeverityLow)
	volumeFired := models.SeverityRank(volumeSeverity) > models.SeverityRank(models.SeverityLow)
	if !priceFired && !volumeFired {
		return nil
	}

	// The price rule names the alert when it fired; volume otherwise.
	alertType := models.AlertTypeVolumeSurge
	triggerValue := tick.Volume24h
	if priceFired {
		alertType = models.AlertTypePriceSpike
		triggerValue = changePct
	}

	var conditions []string
	if priceFired {
		conditions = append(conditions, fmt.Sprintf("24h price change %.2f%% (%s)", changePct, priceSeverity))
	}
	if volumeFired {
		cond := fmt.Sprintf("24h volume %.0f (%s)", tick.Volume24h, volumeSeverity)
		if avgVolume > 0 {
			cond += fmt.Sprintf(", %.1fx rolling average", tick.Volume24h/avgVolume)
		}
		conditions = append(conditions, cond)
	}

	return &models.MAlert{
		ID:           uuid.NewString(),
		Symbol:       tick.Symbol,
		AlertType:    alertType,
		Severity:     models.MaxSeverity(priceSeverity, volumeSeverity),
		Message:      fmt.Sprintf("%s: %s", tick.Symbol, strings.Join(conditions, "; ")),
		TriggerValue: triggerValue,
		IsActive:     true,
		CreatedAt:    d.now(),
	}
}

// -----------------------------------------------------------------------------
// Processing
// -----------------------------------------------------------------------------

// Process evaluates one tick and appends a qualifying alert to storage.
// A cooldown of zero re-alerts on every qualifying tick.
func (d *Detector) Process(tick models.MPriceTick) {
	alert := d.Evaluate(tick)
	if alert == nil {
		return
	}

	if d.cooldown > 0 {
		key := tick.Symbol + "|" + alert.AlertType
		if last, ok := d.lastAlert[key]; ok && alert.CreatedAt.Sub(last) < d.cooldown {
			return
		}
		d.lastAlert[key] = alert.CreatedAt
	}

	d.Metrics.AlertsTotal.WithLabelValues(alert.AlertType, alert.Severity).Inc()
	d.Logger.Info("Alert %s %s: %s", alert.Severity, alert.AlertType, alert.Message)

	// Fire-and-forget: storage failures are logged, never retried.
	if err := d.Storage.AppendAlert(*alert); err != nil {
		d.Logger.Error("Failed to append alert for %s: %v", alert.Symbol, err)
	}
}

// -----------------------------------------------------------------------------

// Run consumes the fan-out queue until it closes.
func (d *Detector) Run(events <-chan models.MMarketEvent) {
	for ev := range events {
		if ev.Type == models.EventTypeTicker && ev.Tick != nil {
			d.Process(*ev.Tick)
		}
	}
}
