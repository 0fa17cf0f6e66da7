package metaswap

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestClientFetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/1/trades", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0x6b175474e89094c44da98b954eedeac495271d0f", q.Get("sourceToken"))
		assert.Equal(t, "0x0000000000000000000000000000000000000000", q.Get("destinationToken"))
		assert.Equal(t, "10000000000000000000", q.Get("sourceAmount"))
		assert.Equal(t, "2", q.Get("slippage"))
		assert.Equal(t, "0x9999999999999999999999999999999999999999", q.Get("walletAddress"))
		assert.Equal(t, "10000", q.Get("timeout"))
		assert.Equal(t, "true", q.Get("enableDirectWrapping"))
		assert.Equal(t, []string{"oneInch", "airswap"}, q["exchangeList"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"aggregator": "oneInch", "aggType": "AGG", "destinationAmount": "1", "trade": {"to": "0x1", "value": "0x0"}},
			{"aggregator": "noTrade", "aggType": "AGG", "destinationAmount": "2"},
			{"aggregator": "failed", "aggType": "AGG", "destinationAmount": "3", "trade": {"to": "0x1"}, "error": "no routes"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	quotes, err := c.FetchQuotes(context.Background(), domain.FetchParams{
		Slippage:     2,
		SourceToken:  common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"),
		SourceAmount: "10000000000000000000",
		FromAddress:  common.HexToAddress("0x9999999999999999999999999999999999999999"),
		ExchangeList: []string{"oneInch", "airswap"},
	}, 1)
	require.NoError(t, err)

	// Quotes without a trade or with an aggregator error are dropped.
	assert.Equal(t, []string{"oneInch"}, quotes.IDs())
}

func TestClientFetchQuotesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.FetchQuotes(context.Background(), domain.FetchParams{SourceAmount: "1"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestClientFetchNetworkConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/networks/10", r.URL.Path)
		w.Write([]byte(`{"refreshRates": {"quotes": 30}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	cfg, err := c.FetchNetworkConfig(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), cfg.QuoteRefreshMillis)
	assert.Equal(t, domain.DefaultNetworkConfig.StxStatusDeadline, cfg.StxStatusDeadline)
}

func TestPriceClientMarketData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/chains/1/spot-prices", r.URL.Path)
		assert.Equal(t, "eth", r.URL.Query().Get("vsCurrency"))
		w.Write([]byte(`{
			"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2": {"price": 1},
			"0x6b175474e89094c44da98b954eedeac495271d0f": {"price": 0.00023}
		}`))
	}))
	defer srv.Close()

	c := NewPriceClient(srv.URL)
	prices, err := c.MarketData(context.Background(), 1)
	require.NoError(t, err)

	// Keys are normalised to lowercase.
	require.Len(t, prices, 2)
	assert.Equal(t, 1.0, prices["0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"].Price)
	assert.Equal(t, 0.00023, prices["0x6b175474e89094c44da98b954eedeac495271d0f"].Price)
}

type staticPriceTable struct {
	calls  int
	prices map[string]domain.TokenPrice
}

func (s *staticPriceTable) MarketData(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, error) {
	s.calls++
	return s.prices, nil
}

type memoryMarketCache struct {
	data map[uint64]map[string]domain.TokenPrice
}

func (m *memoryMarketCache) Get(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, bool, error) {
	p, ok := m.data[chainID]
	return p, ok, nil
}

func (m *memoryMarketCache) Set(ctx context.Context, chainID uint64, prices map[string]domain.TokenPrice) error {
	m.data[chainID] = prices
	return nil
}

func TestCachedPriceTable(t *testing.T) {
	upstream := &staticPriceTable{prices: map[string]domain.TokenPrice{"0xabc": {Price: 0.5}}}
	cache := &memoryMarketCache{data: map[uint64]map[string]domain.TokenPrice{}}
	table := NewCachedPriceTable(upstream, cache, testLogger())

	for i := 0; i < 3; i++ {
		prices, err := table.MarketData(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 0.5, prices["0xabc"].Price)
	}
	assert.Equal(t, 1, upstream.calls)
}
