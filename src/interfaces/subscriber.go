package interfaces

import (
	"errors"

	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// ISubscriber is the capability a downstream client hands to the hub.
// The ID is stable for the lifetime of the connection and usable as a map key.
// -----------------------------------------------------------------------------

// ErrDelivery is returned by Send when the subscriber's transport is closed,
// errored, or too slow to keep up. The hub treats it as an implicit disconnect.
var ErrDelivery = errors.New("subscriber delivery failed")

type ISubscriber interface {

	// ID returns the stable identity of this subscriber.
	ID() string

	// -----------------------------------------------------------------------------

	// Send queues one frame for delivery. Fails with ErrDelivery when the
	// underlying transport cannot accept it; it never blocks the caller.
	Send(frame models.MOutboundFrame) error

	// -----------------------------------------------------------------------------

	// Close tears down the underlying transport. Idempotent.
	Close()
}
