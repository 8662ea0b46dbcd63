package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// -----------------------------------------------------------------------------

func TestScore_Bands(t *testing.T) {
	cases := []struct {
		changePct  float64
		score      float64
		confidence float64
	}{
		{15, 1.0, 0.9},
		{10.01, 1.0, 0.9},
		{7, 0.7, 0.8},
		{3, 0.4, 0.6},
		{1, 0.0, 0.5},
		{0, 0.0, 0.5},
		{-1, 0.0, 0.5},
		{-3, -0.4, 0.6},
		{-7, -0.7, 0.8},
		{-15, -1.0, 0.9},
	}

	for _, tc := range cases {
		score, confidence := Score(tc.changePct)
		assert.Equal(t, tc.score, score, "score for %.2f%%", tc.changePct)
		assert.Equal(t, tc.confidence, confidence, "confidence for %.2f%%", tc.changePct)
	}
}

// -----------------------------------------------------------------------------

// Boundary values resolve to the band below: exactly +10 is bullish, not
// very bullish, and exactly -10 is very bearish.
func TestScore_Boundaries(t *testing.T) {
	score, _ := Score(10)
	assert.Equal(t, 0.7, score)

	score, _ = Score(5)
	assert.Equal(t, 0.4, score)

	score, _ = Score(2)
	assert.Equal(t, 0.0, score)

	score, _ = Score(-2)
	assert.Equal(t, -0.4, score)

	score, _ = Score(-5)
	assert.Equal(t, -0.7, score)

	score, _ = Score(-10)
	assert.Equal(t, -1.0, score)
}

// -----------------------------------------------------------------------------

func TestLabel(t *testing.T) {
	assert.Equal(t, LabelVeryBullish, Label(12))
	assert.Equal(t, LabelBullish, Label(7))
	assert.Equal(t, LabelSlightlyBullish, Label(3))
	assert.Equal(t, LabelNeutral, Label(0))
	assert.Equal(t, LabelSlightlyBearish, Label(-3))
	assert.Equal(t, LabelBearish, Label(-7))
	assert.Equal(t, LabelVeryBearish, Label(-12))
}
