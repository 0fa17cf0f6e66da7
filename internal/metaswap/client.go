// Package metaswap is the REST client for the swap aggregation API:
// trade quotes, per-network config, and token spot prices.
package metaswap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// fetchTimeoutParam is the per-aggregator timeout the API applies
// server side, in milliseconds.
const fetchTimeoutParam = "10000"

// Client talks to the swap API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ domain.QuoteSource         = (*Client)(nil)
	_ domain.NetworkConfigSource = (*Client)(nil)
)

// NewClient creates a swap API client.
//
// baseURL is the API root, e.g. "https://swap.api.cx.metamask.io".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// FetchQuotes requests competing trade quotes for the swap intent.
// Quotes without an executable trade, and quotes the aggregator flagged
// with an error, are filtered out here.
func (c *Client) FetchQuotes(ctx context.Context, params domain.FetchParams, chainID uint64) (domain.QuoteSet, error) {
	q := url.Values{}
	q.Set("sourceToken", strings.ToLower(params.SourceToken.Hex()))
	q.Set("destinationToken", strings.ToLower(params.DestinationToken.Hex()))
	q.Set("sourceAmount", params.SourceAmount)
	q.Set("slippage", strconv.FormatFloat(params.Slippage, 'f', -1, 64))
	q.Set("walletAddress", strings.ToLower(params.FromAddress.Hex()))
	q.Set("timeout", fetchTimeoutParam)
	q.Set("enableDirectWrapping", "true")
	for _, ex := range params.ExchangeList {
		q.Add("exchangeList", ex)
	}

	path := fmt.Sprintf("/networks/%d/trades?%s", chainID, q.Encode())
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("metaswap: fetch trades: %w", err)
	}

	var apiQuotes []APIQuote
	if err := json.Unmarshal(body, &apiQuotes); err != nil {
		return nil, fmt.Errorf("metaswap: decode trades: %w", err)
	}

	quotes := make(domain.QuoteSet, 0, len(apiQuotes))
	for i := range apiQuotes {
		aq := &apiQuotes[i]
		if aq.Trade == nil || aq.hasError() {
			c.logger.Debug("skipping unusable quote",
				slog.String("aggregator", aq.Aggregator),
				slog.Bool("has_trade", aq.Trade != nil),
			)
			continue
		}
		quotes = append(quotes, aq.toDomainQuote())
	}
	return quotes, nil
}

// FetchNetworkConfig returns the network's refresh cadence and smart
// transaction parameters, with defaults filling any gaps.
func (c *Client) FetchNetworkConfig(ctx context.Context, chainID uint64) (domain.NetworkConfig, error) {
	body, err := c.doGet(ctx, fmt.Sprintf("/networks/%d", chainID))
	if err != nil {
		return domain.NetworkConfig{}, fmt.Errorf("metaswap: fetch network config: %w", err)
	}
	var cfg APINetworkConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return domain.NetworkConfig{}, fmt.Errorf("metaswap: decode network config: %w", err)
	}
	return cfg.toDomainConfig(), nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
