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

// NetworkConfigCache implements domain.NetworkConfigCache with one JSON
// blob per chain under key "netconfig:{chainID}".
type NetworkConfigCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.NetworkConfigCache = (*NetworkConfigCache)(nil)

func NewNetworkConfigCache(c *Client, ttl time.Duration) *NetworkConfigCache {
	return &NetworkConfigCache{rdb: c.Underlying(), ttl: ttl}
}

func networkConfigKey(chainID uint64) string {
	return fmt.Sprintf("netconfig:%d", chainID)
}

func (nc *NetworkConfigCache) Get(ctx context.Context, chainID uint64) (domain.NetworkConfig, bool, error) {
	raw, err := nc.rdb.Get(ctx, networkConfigKey(chainID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NetworkConfig{}, false, nil
	}
	if err != nil {
		return domain.NetworkConfig{}, false, fmt.Errorf("redis: get network config %d: %w", chainID, err)
	}
	var cfg domain.NetworkConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.NetworkConfig{}, false, fmt.Errorf("redis: decode network config %d: %w", chainID, err)
	}
	return cfg, true, nil
}

func (nc *NetworkConfigCache) Set(ctx context.Context, chainID uint64, cfg domain.NetworkConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("redis: encode network config %d: %w", chainID, err)
	}
	if err := nc.rdb.Set(ctx, networkConfigKey(chainID), raw, nc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set network config %d: %w", chainID, err)
	}
	return nil
}
