package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crypto-analytics/src/logger"
	"crypto-analytics/src/models"

	"github.com/redis/go-redis/v9"
)

// -----------------------------------------------------------------------------
// RedisCache
//
// Latest tick per symbol under price:{SYMBOL}, JSON encoded with a TTL so a
// stale feed cannot serve old prices forever.
// -----------------------------------------------------------------------------

type RedisCache struct {
	Config *models.MConfig
	Logger *logger.Logger

	client *redis.Client
	ttl    time.Duration
}

// -----------------------------------------------------------------------------

func NewRedisCache(cfg *models.MConfig, log *logger.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info("RedisCache connected to %s (db %d)", cfg.Redis.Addr, cfg.Redis.DB)

	return &RedisCache{
		Config: cfg,
		Logger: log,
		client: client,
		ttl:    time.Duration(cfg.Redis.TTLSeconds) * time.Second,
	}, nil
}

// -----------------------------------------------------------------------------

func tickKey(symbol string) string {
	return "price:" + symbol
}

// -----------------------------------------------------------------------------

func (c *RedisCache) SetLatestTick(ctx context.Context, tick models.MPriceTick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tickKey(tick.Symbol), data, c.ttl).Err()
}

// -----------------------------------------------------------------------------

func (c *RedisCache) GetLatestTick(ctx context.Context, symbol string) (*models.MPriceTick, error) {
	data, err := c.client.Get(ctx, tickKey(symbol)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("no cached tick for %s", symbol)
		}
		return nil, err
	}

	var tick models.MPriceTick
	if err := json.Unmarshal(data, &tick); err != nil {
		return nil, fmt.Errorf("corrupt cached tick for %s: %w", symbol, err)
	}
	return &tick, nil
}

// -----------------------------------------------------------------------------

func (c *RedisCache) Close() error {
	return c.client.Close()
}
