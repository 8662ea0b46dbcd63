package cache

import (
	"context"
	"testing"

	"crypto-analytics/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.GetLatestTick(ctx, "BTCUSDT")
	assert.Error(t, err)

	require.NoError(t, c.SetLatestTick(ctx, models.MPriceTick{Symbol: "BTCUSDT", Price: 50_000, EventTime: 1}))
	require.NoError(t, c.SetLatestTick(ctx, models.MPriceTick{Symbol: "BTCUSDT", Price: 50_100, EventTime: 2}))

	tick, err := c.GetLatestTick(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50_100.0, tick.Price, "latest write wins")

	_, err = c.GetLatestTick(ctx, "ETHUSDT")
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

// The returned tick is a copy; mutating it does not affect the cache.
func TestMemoryCache_Isolation(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.SetLatestTick(ctx, models.MPriceTick{Symbol: "BTCUSDT", Price: 50_000}))

	tick, err := c.GetLatestTick(ctx, "BTCUSDT")
	require.NoError(t, err)
	tick.Price = 1

	again, err := c.GetLatestTick(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 50_000.0, again.Price)
}
