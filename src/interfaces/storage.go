package interfaces

import "crypto-analytics/src/models"

// -----------------------------------------------------------------------------
// IStorage is the append-only storage collaborator. Every call is
// fire-and-forget from the core's perspective: implementations log their own
// failures and the core never retries.
// -----------------------------------------------------------------------------

type IStorage interface {

	// Initialize opens the connection and creates the schema.
	Initialize() error

	// -----------------------------------------------------------------------------

	// AppendAggregatedMetrics stores one closed window record.
	AppendAggregatedMetrics(record models.MAggregatedMetrics) error

	// -----------------------------------------------------------------------------

	// AppendAlert stores one anomaly alert record.
	AppendAlert(record models.MAlert) error

	// -----------------------------------------------------------------------------

	// SavePriceTicksBulk stores raw ticks in one transaction.
	SavePriceTicksBulk(ticks []models.MPriceTick) error

	// -----------------------------------------------------------------------------

	// Close releases the underlying connection.
	Close() error
}
