package sentiment

// -----------------------------------------------------------------------------
// Sentiment Policy
//
// Pure, total mapping from a 24h price-change percentage to a sentiment
// score in [-1, 1] with a confidence in [0, 1]. Stateless by contract: the
// aggregator invokes it per fold and keeps its own running mean.
// -----------------------------------------------------------------------------

// Labels returned by Label, from most bullish to most bearish.
const (
	LabelVeryBullish     = "very_bullish"
	LabelBullish         = "bullish"
	LabelSlightlyBullish = "slightly_bullish"
	LabelNeutral         = "neutral"
	LabelSlightlyBearish = "slightly_bearish"
	LabelBearish         = "bearish"
	LabelVeryBearish     = "very_bearish"
)

// -----------------------------------------------------------------------------

// Score maps a price-change percentage to (sentiment, confidence).
// Never fails; boundary inputs resolve to the band below them, so 0 is neutral.
func Score(priceChangePercent float64) (float64, float64) {
	switch {
	case priceChangePercent > 10:
		return 1.0, 0.9
	case priceChangePercent > 5:
		return 0.7, 0.8
	case priceChangePercent > 2:
		return 0.4, 0.6
	case priceChangePercent > -2:
		return 0.0, 0.5
	case priceChangePercent > -5:
		return -0.4, 0.6
	case priceChangePercent > -10:
		return -0.7, 0.8
	default:
		return -1.0, 0.9
	}
}

// -----------------------------------------------------------------------------

// Label names the band a price change falls into.
func Label(priceChangePercent float64) string {
	switch {
	case priceChangePercent > 10:
		return LabelVeryBullish
	case priceChangePercent > 5:
		return LabelBullish
	case priceChangePercent > 2:
		return LabelSlightlyBullish
	case priceChangePercent > -2:
		return LabelNeutral
	case priceChangePercent > -5:
		return LabelSlightlyBearish
	case priceChangePercent > -10:
		return LabelBearish
	default:
		return LabelVeryBearish
	}
}
