package models

// -----------------------------------------------------------------------------
// Normalized feed events
// -----------------------------------------------------------------------------

// Event type discriminators for MMarketEvent.
const (
	EventTypeTicker = "ticker"
	EventTypeTrade  = "trade"
)

// MPriceTick represents one normalized ticker update for a symbol.
// Immutable once constructed by the feed client.
type MPriceTick struct {
	Symbol         string   `json:"symbol"`
	Price          float64  `json:"price"`
	Volume24h      float64  `json:"volume_24h"`
	PriceChange24h *float64 `json:"price_change_24h,omitempty"`
	High24h        *float64 `json:"high_24h,omitempty"`
	Low24h         *float64 `json:"low_24h,omitempty"`
	EventTime      int64    `json:"timestamp"` // epoch milliseconds
}

// -----------------------------------------------------------------------------

// MTradeEvent represents one executed trade. Trades are broadcast to
// subscribers but never folded into windows.
type MTradeEvent struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	IsBuyerMaker bool    `json:"is_buyer_maker"`
	EventTime    int64   `json:"timestamp"` // epoch milliseconds
}

// -----------------------------------------------------------------------------

// MMarketEvent is the demultiplexed event handed to every consumer.
// Exactly one of Tick/Trade is set, matching Type.
type MMarketEvent struct {
	Type  string
	Tick  *MPriceTick
	Trade *MTradeEvent
}

// -----------------------------------------------------------------------------

// Symbol returns the symbol of the underlying event.
func (e MMarketEvent) Symbol() string {
	switch e.Type {
	case EventTypeTicker:
		if e.Tick != nil {
			return e.Tick.Symbol
		}
	case EventTypeTrade:
		if e.Trade != nil {
			return e.Trade.Symbol
		}
	}
	return ""
}

// -----------------------------------------------------------------------------

// EventTime returns the event time in epoch milliseconds.
func (e MMarketEvent) EventTime() int64 {
	switch e.Type {
	case EventTypeTicker:
		if e.Tick != nil {
			return e.Tick.EventTime
		}
	case EventTypeTrade:
		if e.Trade != nil {
			return e.Trade.EventTime
		}
	}
	return 0
}
