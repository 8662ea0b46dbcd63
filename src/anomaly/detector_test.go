package anomaly

import (
	"testing"
	"time"

	"crypto-analytics/src/instrumentation"
	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type stubStorage struct {
	alerts []models.MAlert
}

func (s *stubStorage) Initialize() error { return nil }
func (s *stubStorage) AppendAggregatedMetrics(record models.MAggregatedMetrics) error {
	return nil
}
func (s *stubStorage) AppendAlert(record models.MAlert) error {
	s.alerts = append(s.alerts, record)
	return nil
}
func (s *stubStorage) SavePriceTicksBulk(ticks []models.MPriceTick) error { return nil }
func (s *stubStorage) Close() error                                       { return nil }

// -----------------------------------------------------------------------------

func defaultAnomalyConfig() models.MAnomalyConfig {
	return models.MAnomalyConfig{
		PriceSpikeMediumPct: 5,
		PriceSpikeHighPct:   10,
		VolumeSurgeMedium:   5e8,
		VolumeSurgeHigh:     1e9,
		VolumeHistorySize:   10,
	}
}

func newTestDetector(cfg models.MAnomalyConfig, store *stubStorage) *Detector {
	return NewDetector(cfg, store, logger.NewLogger("ERROR", "test"), instrumentation.NewTestMetrics())
}

func tickWithChange(symbol string, changePct, volume float64) models.MPriceTick {
	return models.MPriceTick{
		Symbol:         symbol,
		Price:          50_000,
		Volume24h:      volume,
		PriceChange24h: &changePct,
		EventTime:      time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------
// Rule tests
// -----------------------------------------------------------------------------

func TestDetector_PriceSpikeThresholds(t *testing.T) {
	d := newTestDetector(defaultAnomalyConfig(), &stubStorage{})

	cases := []struct {
		changePct float64
		severity  string
		fires     bool
	}{
		{12, models.SeverityHigh, true},
		{-12, models.SeverityHigh, true},
		{7, models.SeverityMedium, true},
		{-7, models.SeverityMedium, true},
		{3, "", false},
		{-3, "", false},
		{5, "", false},  // boundary is strict
		{10, models.SeverityMedium, true},
	}

	for _, tc := range cases {
		alert := d.Evaluate(tickWithChange("BTCUSDT", tc.changePct, 1000))
		if !tc.fires {
			assert.Nil(t, alert, "change %.1f%% must not alert", tc.changePct)
			continue
		}
		require.NotNil(t, alert, "change %.1f%% must alert", tc.changePct)
		assert.Equal(t, models.AlertTypePriceSpike, alert.AlertType)
		assert.Equal(t, tc.severity, alert.Severity)
		assert.Equal(t, tc.changePct, alert.TriggerValue)
	}
}

// -----------------------------------------------------------------------------

func TestDetector_VolumeSurgeThresholds(t *testing.T) {
	d := newTestDetector(defaultAnomalyConfig(), &stubStorage{})

	alert := d.Evaluate(tickWithChange("BTCUSDT", 0, 2e9))
	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeVolumeSurge, alert.AlertType)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, 2e9, alert.TriggerValue)

	alert = d.Evaluate(tickWithChange("BTCUSDT", 0, 6e8))
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityMedium, alert.Severity)

	alert = d.Evaluate(tickWithChange("BTCUSDT", 0, 4e8))
	assert.Nil(t, alert)

	// Exactly at a threshold does not fire.
	alert = d.Evaluate(tickWithChange("BTCUSDT", 0, 5e8))
	assert.Nil(t, alert)
}

// -----------------------------------------------------------------------------

// Both rules firing on one tick collapse into a single alert: price names the
// type, severity is the higher of the two, and the message lists both.
func TestDetector_CombinedAlert(t *testing.T) {
	d := newTestDetector(defaultAnomalyConfig(), &stubStorage{})

	alert := d.Evaluate(tickWithChange("BTCUSDT", 7, 2e9))
	require.NotNil(t, alert)

	assert.Equal(t, models.AlertTypePriceSpike, alert.AlertType)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, 7.0, alert.TriggerValue)
	assert.Contains(t, alert.Message, "price change")
	assert.Contains(t, alert.Message, "volume")
	assert.True(t, alert.IsActive)
	assert.NotEmpty(t, alert.ID)
}

// -----------------------------------------------------------------------------

// A tick with no 24h change field can still trip the volume rule.
func TestDetector_NoChangeField(t *testing.T) {
	d := newTestDetector(defaultAnomalyConfig(), &stubStorage{})

	tick := models.MPriceTick{Symbol: "ETHUSDT", Price: 3000, Volume24h: 2e9}
	alert := d.Evaluate(tick)

	require.NotNil(t, alert)
	assert.Equal(t, models.AlertTypeVolumeSurge, alert.AlertType)
}

// -----------------------------------------------------------------------------

// The message annotates the surge with the ratio against the rolling average.
func TestDetector_VolumeRatioAnnotation(t *testing.T) {
	d := newTestDetector(defaultAnomalyConfig(), &stubStorage{})

	// Seed history with quiet volume.
	for i := 0; i < 5; i++ {
		d.Evaluate(tickWithChange("BTCUSDT", 0, 1e8))
	}

	alert := d.Evaluate(tickWithChange("BTCUSDT", 0, 2e9))
	require.NotNil(t, alert)
	assert.Contains(t, alert.Message, "20.0x rolling average")
}

// -----------------------------------------------------------------------------
// Processing tests
// -----------------------------------------------------------------------------

// Zero cooldown re-alerts on every qualifying tick.
func TestDetector_ProcessNoCooldown(t *testing.T) {
	store := &stubStorage{}
	d := newTestDetector(defaultAnomalyConfig(), store)

	for i := 0; i < 3; i++ {
		d.Process(tickWithChange("BTCUSDT", 12, 1000))
	}

	assert.Len(t, store.alerts, 3)
}

// -----------------------------------------------------------------------------

// With a cooldown only the first alert per (symbol, type) passes until the
// interval has elapsed.
func TestDetector_ProcessCooldown(t *testing.T) {
	cfg := defaultAnomalyConfig()
	cfg.CooldownSeconds = 60

	store := &stubStorage{}
	d := newTestDetector(cfg, store)

	current := time.Unix(1_755_000_000, 0)
	d.now = func() time.Time { return current }

	d.Process(tickWithChange("BTCUSDT", 12, 1000))
	d.Process(tickWithChange("BTCUSDT", 12, 1000))
	require.Len(t, store.alerts, 1)

	// A different symbol has its own cooldown bucket.
	d.Process(tickWithChange("ETHUSDT", 12, 1000))
	require.Len(t, store.alerts, 2)

	// After the interval the same symbol alerts again.
	current = current.Add(61 * time.Second)
	d.Process(tickWithChange("BTCUSDT", 12, 1000))
	assert.Len(t, store.alerts, 3)
}

// -----------------------------------------------------------------------------

// Non-qualifying ticks leave storage untouched.
func TestDetector_ProcessQuietTick(t *testing.T) {
	store := &stubStorage{}
	d := newTestDetector(defaultAnomalyConfig(), store)

	d.Process(tickWithChange("BTCUSDT", 1, 1000))

	assert.Empty(t, store.alerts)
}
