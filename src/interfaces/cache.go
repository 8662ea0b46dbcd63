package interfaces

import (
	"context"

	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// ICache holds the latest tick per symbol for the REST layer and for the
// courtesy snapshot sent on subscribe.
// -----------------------------------------------------------------------------

type ICache interface {

	// SetLatestTick stores the most recent tick for its symbol.
	SetLatestTick(ctx context.Context, tick models.MPriceTick) error

	// -----------------------------------------------------------------------------

	// GetLatestTick returns the most recent tick for a symbol, or an error
	// when nothing is cached.
	GetLatestTick(ctx context.Context, symbol string) (*models.MPriceTick, error)

	// -----------------------------------------------------------------------------

	// Close releases the underlying connection.
	Close() error
}
