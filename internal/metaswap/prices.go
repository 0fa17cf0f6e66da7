package metaswap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// PriceClient fetches token spot prices, in the chain's native unit,
// from the price API.
type PriceClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ domain.TokenPriceTable = (*PriceClient)(nil)

// NewPriceClient creates a price API client.
//
// baseURL is the API root, e.g. "https://price.api.cx.metamask.io".
func NewPriceClient(baseURL string) *PriceClient {
	return &PriceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// MarketData returns the spot price table for a chain, keyed by
// lowercase token address.
func (c *PriceClient) MarketData(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, error) {
	u := fmt.Sprintf("%s/v2/chains/%d/spot-prices?vsCurrency=eth", c.baseURL, chainID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("metaswap: create prices request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metaswap: fetch spot prices: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("metaswap: read spot prices: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metaswap: spot prices status %d", resp.StatusCode)
	}

	var apiPrices map[string]APITokenPrice
	if err := json.Unmarshal(body, &apiPrices); err != nil {
		return nil, fmt.Errorf("metaswap: decode spot prices: %w", err)
	}

	out := make(map[string]domain.TokenPrice, len(apiPrices))
	for addr, p := range apiPrices {
		out[strings.ToLower(addr)] = domain.TokenPrice{Price: p.Price}
	}
	return out, nil
}

// CachedPriceTable serves market data from a TTL cache, falling back to
// the upstream table on miss. Cache failures degrade to direct fetches.
type CachedPriceTable struct {
	upstream domain.TokenPriceTable
	cache    domain.MarketDataCache
	logger   *slog.Logger
}

var _ domain.TokenPriceTable = (*CachedPriceTable)(nil)

func NewCachedPriceTable(upstream domain.TokenPriceTable, cache domain.MarketDataCache, logger *slog.Logger) *CachedPriceTable {
	return &CachedPriceTable{upstream: upstream, cache: cache, logger: logger}
}

func (t *CachedPriceTable) MarketData(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, error) {
	if prices, ok, err := t.cache.Get(ctx, chainID); err != nil {
		t.logger.Warn("market data cache read failed",
			slog.Uint64("chain_id", chainID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return prices, nil
	}

	prices, err := t.upstream.MarketData(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if err := t.cache.Set(ctx, chainID, prices); err != nil {
		t.logger.Warn("market data cache write failed",
			slog.Uint64("chain_id", chainID),
			slog.String("error", err.Error()),
		)
	}
	return prices, nil
}

// CachedNetworkConfigSource is the same TTL-cache decorator for the
// network config source.
type CachedNetworkConfigSource struct {
	upstream domain.NetworkConfigSource
	cache    domain.NetworkConfigCache
	logger   *slog.Logger
}

var _ domain.NetworkConfigSource = (*CachedNetworkConfigSource)(nil)

func NewCachedNetworkConfigSource(upstream domain.NetworkConfigSource, cache domain.NetworkConfigCache, logger *slog.Logger) *CachedNetworkConfigSource {
	return &CachedNetworkConfigSource{upstream: upstream, cache: cache, logger: logger}
}

func (s *CachedNetworkConfigSource) FetchNetworkConfig(ctx context.Context, chainID uint64) (domain.NetworkConfig, error) {
	if cfg, ok, err := s.cache.Get(ctx, chainID); err != nil {
		s.logger.Warn("network config cache read failed",
			slog.Uint64("chain_id", chainID),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return cfg, nil
	}

	cfg, err := s.upstream.FetchNetworkConfig(ctx, chainID)
	if err != nil {
		return domain.NetworkConfig{}, err
	}
	if err := s.cache.Set(ctx, chainID, cfg); err != nil {
		s.logger.Warn("network config cache write failed",
			slog.Uint64("chain_id", chainID),
			slog.String("error", err.Error()),
		)
	}
	return cfg, nil
}
