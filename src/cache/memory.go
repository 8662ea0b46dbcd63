package cache

import (
	"context"
	"fmt"
	"sync"

	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// MemoryCache is the fallback when Redis is disabled. Same contract, process
// local, no TTL.
// -----------------------------------------------------------------------------

type MemoryCache struct {
	mu    sync.RWMutex
	ticks map[string]models.MPriceTick
}

// -----------------------------------------------------------------------------

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ticks: make(map[string]models.MPriceTick),
	}
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) SetLatestTick(_ context.Context, tick models.MPriceTick) error {
	c.mu.Lock()
	c.ticks[tick.Symbol] = tick
	c.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) GetLatestTick(_ context.Context, symbol string) (*models.MPriceTick, error) {
	c.mu.RLock()
	tick, ok := c.ticks[symbol]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no cached tick for %s", symbol)
	}
	return &tick, nil
}

// -----------------------------------------------------------------------------

func (c *MemoryCache) Close() error {
	return nil
}
