package interfaces

import (
	"context"
	"sync"

	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// IFeedSource is the upstream market-data connection. One instance owns one
// multiplexed socket and is the sole producer of normalized events.
// -----------------------------------------------------------------------------

type IFeedSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Start begins reading the upstream stream and pushing normalized events.
	// The out channel behaves as one continuous sequence across reconnects.
	// ctx: controls the lifecycle (cancellation stops the source)
	// wg: signals when the source has fully stopped
	Start(ctx context.Context, out chan<- models.MMarketEvent, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Healthy reports false once consecutive reconnect attempts exceed the
	// configured budget, until a connection succeeds again.
	Healthy() bool

	// -----------------------------------------------------------------------------

	// Stop terminates the source (cancelling the Start context is equivalent).
	Stop()
}
