package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// MarketDataCache implements domain.MarketDataCache with one JSON blob
// per chain under key "marketdata:{chainID}".
type MarketDataCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.MarketDataCache = (*MarketDataCache)(nil)

// NewMarketDataCache creates a MarketDataCache with the given entry
// TTL.
func NewMarketDataCache(c *Client, ttl time.Duration) *MarketDataCache {
	return &MarketDataCache{rdb: c.Underlying(), ttl: ttl}
}

func marketDataKey(chainID uint64) string {
	return fmt.Sprintf("marketdata:%d", chainID)
}

// Get returns the cached price table for a chain. The second return is
// false on a miss.
func (mc *MarketDataCache) Get(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, bool, error) {
	raw, err := mc.rdb.Get(ctx, marketDataKey(chainID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get market data %d: %w", chainID, err)
	}
	var prices map[string]domain.TokenPrice
	if err := json.Unmarshal(raw, &prices); err != nil {
		return nil, false, fmt.Errorf("redis: decode market data %d: %w", chainID, err)
	}
	return prices, true, nil
}

// Set stores the price table for a chain.
func (mc *MarketDataCache) Set(ctx context.Context, chainID uint64, prices map[string]domain.TokenPrice) error {
	raw, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("redis: encode market data %d: %w", chainID, err)
	}
	if err := mc.rdb.Set(ctx, marketDataKey(chainID), raw, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market data %d: %w", chainID, err)
	}
	return nil
}
