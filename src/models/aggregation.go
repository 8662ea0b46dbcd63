package models

import "time"

// MAggregatedMetrics represents one closed tumbling window for a symbol.
// Emitted exactly once per (symbol, window_start) and immutable afterwards.
type MAggregatedMetrics struct {
	Symbol      string `json:"symbol"`
	WindowStart int64  `json:"window_start"` // epoch milliseconds, aligned
	WindowEnd   int64  `json:"window_end"`

	AvgPrice float64 `json:"avg_price"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	VWAP     float64 `json:"vwap"`

	TotalVolume float64 `json:"total_volume"`
	TradeCount  int     `json:"trade_count"`

	// Nil when the window holds fewer than 2 samples.
	PriceVolatility *float64 `json:"price_volatility,omitempty"`
	PriceRange      float64  `json:"price_range"`

	// Nil when no folded tick carried a 24h change.
	AvgSentiment   *float64 `json:"avg_sentiment,omitempty"`
	SentimentCount int      `json:"sentiment_count"`

	CreatedAt time.Time `json:"created_at"`
}
