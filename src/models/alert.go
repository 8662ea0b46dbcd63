package models

import "time"

// -----------------------------------------------------------------------------
// Market alerts
// -----------------------------------------------------------------------------

// Alert types.
const (
	AlertTypePriceSpike  = "price_spike"
	AlertTypeVolumeSurge = "volume_surge"
)

// Alert severities, ordered.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// MAlert is an append-only anomaly record. Resolution and expiry belong to
// the storage collaborator, not to this core.
type MAlert struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	AlertType    string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	TriggerValue float64   `json:"trigger_value"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

// SeverityRank maps a severity to its ordering, unknown values below low.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b string) string {
	if SeverityRank(a) >= SeverityRank(b) {
		return a
	}
	return b
}
