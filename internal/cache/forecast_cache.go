package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	forecastKeyPrefix      = "forecast:v1"
	forecastScanBatchSize  = 100
	defaultMemoryCacheSize = 1024
)

// ForecastKey identifies one cached forecast. Date is "today" in the shop's
// timezone so entries roll over at local midnight.
type ForecastKey struct {
	ShopID string
	Days   int
	Date   string
}

func (k ForecastKey) String() string {
	return fmt.Sprintf("%s%d:%s", shopKeyPrefix(k.ShopID), k.Days, k.Date)
}

func shopKeyPrefix(shopID string) string {
	return fmt.Sprintf("%s:%s:", forecastKeyPrefix, shopID)
}

type ForecastCache interface {
	Get(ctx context.Context, key ForecastKey) (*forecast.Output, bool, error)
	Set(ctx context.Context, key ForecastKey, out *forecast.Output) error
	InvalidateShop(ctx context.Context, shopID string) error
}

// NewForecastCache picks the backend configured in cfg. A disabled cache
// is a noop.
func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return NewNoopForecastCache(), nil
	}

	switch cfg.Backend {
	case config.CacheBackendMemory:
		ttl := time.Duration(cfg.ForecastTTLSeconds) * time.Second
		return NewMemoryForecastCache(cfg.MemorySize, ttl), nil
	case config.CacheBackendRedis, "":
		client, ttl, err := newRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return &redisForecastCache{client: client, ttl: ttl}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisForecastCache) Get(ctx context.Context, key ForecastKey) (*forecast.Output, bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	out, err := decodeForecast(payload)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, key ForecastKey, out *forecast.Output) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateShop(ctx context.Context, shopID string) error {
	return deleteKeysWithPrefix(ctx, c.client, shopKeyPrefix(shopID), forecastScanBatchSize)
}

// memoryForecastCache keeps encoded forecasts in a process-local LRU. Every
// Get decodes a fresh copy.
type memoryForecastCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryForecastCache(size int, ttl time.Duration) ForecastCache {
	if size <= 0 {
		size = defaultMemoryCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &memoryForecastCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (c *memoryForecastCache) Get(ctx context.Context, key ForecastKey) (*forecast.Output, bool, error) {
	payload, ok := c.lru.Get(key.String())
	if !ok {
		return nil, false, nil
	}

	out, err := decodeForecast(payload)
	if err != nil {
		c.lru.Remove(key.String())
		return nil, false, err
	}
	return out, true, nil
}

func (c *memoryForecastCache) Set(ctx context.Context, key ForecastKey, out *forecast.Output) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}
	c.lru.Add(key.String(), payload)
	return nil
}

func (c *memoryForecastCache) InvalidateShop(ctx context.Context, shopID string) error {
	prefix := shopKeyPrefix(shopID)
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

type noopForecastCache struct{}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (n *noopForecastCache) Get(ctx context.Context, key ForecastKey) (*forecast.Output, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, key ForecastKey, out *forecast.Output) error {
	return nil
}

func (n *noopForecastCache) InvalidateShop(ctx context.Context, shopID string) error {
	return nil
}

func decodeForecast(payload []byte) (*forecast.Output, error) {
	var out forecast.Output
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode forecast cache: %w", err)
	}
	return &out, nil
}
