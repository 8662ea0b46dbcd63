package models

// -----------------------------------------------------------------------------
// Subscriber wire protocol
// -----------------------------------------------------------------------------

// Frame types pushed to subscribers.
const (
	FrameTypeConnection   = "connection"
	FrameTypeSubscription = "subscription"
	FrameTypePriceUpdate  = "price_update"
	FrameTypeTrade        = "trade"
	FrameTypeSnapshot     = "snapshot"
)

// MClientCommand is what a subscriber sends over its socket.
type MClientCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

// -----------------------------------------------------------------------------

// MOutboundFrame is a server-to-subscriber message. Exactly one of
// Tick/Trade is set for data frames; control frames carry Status/Symbol.
type MOutboundFrame struct {
	Type      string       `json:"type"`
	Status    string       `json:"status,omitempty"`
	Symbol    string       `json:"symbol,omitempty"`
	Tick      *MPriceTick  `json:"tick,omitempty"`
	Trade     *MTradeEvent `json:"trade,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// -----------------------------------------------------------------------------

// EventFrame converts a normalized market event to its outbound frame.
func EventFrame(ev MMarketEvent) MOutboundFrame {
	switch ev.Type {
	case EventTypeTrade:
		return MOutboundFrame{
			Type:      FrameTypeTrade,
			Symbol:    ev.Symbol(),
			Trade:     ev.Trade,
			Timestamp: ev.EventTime(),
		}
	default:
		return MOutboundFrame{
			Type:      FrameTypePriceUpdate,
			Symbol:    ev.Symbol(),
			Tick:      ev.Tick,
			Timestamp: ev.EventTime(),
		}
	}
}
