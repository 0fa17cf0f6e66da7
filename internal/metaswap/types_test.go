package metaswap

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

func TestFlexUint64(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want uint64
	}{
		{"json number", `624874`, 624_874},
		{"decimal string", `"624874"`, 624_874},
		{"hex string", `"0x989680"`, 10_000_000},
		{"uppercase hex prefix", `"0X10"`, 16},
		{"empty string", `""`, 0},
		{"zero", `0`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexUint64
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, uint64(f))
		})
	}

	var f flexUint64
	assert.Error(t, json.Unmarshal([]byte(`"12.5"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
}

func TestAPIQuoteHasError(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"absent", `{}`, false},
		{"null", `{"error": null}`, false},
		{"string", `{"error": "insufficient liquidity"}`, true},
		{"object", `{"error": {"code": 123}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q APIQuote
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &q))
			assert.Equal(t, tt.want, q.hasError())
		})
	}
}

func TestAPIQuoteToDomain(t *testing.T) {
	raw := `{
		"aggregator": "oneInch",
		"aggType": "AGG",
		"sourceToken": "0x6b175474e89094c44da98b954eedeac495271d0f",
		"destinationToken": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		"sourceAmount": "10000000000000000000",
		"destinationAmount": "20295000000000000000",
		"maxGas": 2750000,
		"averageGas": 637198,
		"estimatedRefund": "80000",
		"fee": 0.875,
		"trade": {
			"to": "0x881d40237659c251811cec9c364ef91dc08d300c",
			"from": "0x9999999999999999999999999999999999999999",
			"data": "0xdeadbeef",
			"value": "0x0",
			"gas": "0x2dc6c0"
		},
		"approvalNeeded": {
			"to": "0x6b175474e89094c44da98b954eedeac495271d0f",
			"from": "0x9999999999999999999999999999999999999999",
			"data": "0x095ea7b3",
			"gas": "70000"
		}
	}`
	var aq APIQuote
	require.NoError(t, json.Unmarshal([]byte(raw), &aq))

	q := aq.toDomainQuote()
	assert.Equal(t, "oneInch", q.AggregatorID)
	assert.Equal(t, domain.KindAggregated, q.AggregatorKind)
	assert.Equal(t, common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"), q.SourceToken)
	assert.Equal(t, "20295000000000000000", q.DestinationAmount)
	assert.Equal(t, uint64(2_750_000), q.MaxGasLimit)
	assert.Equal(t, uint64(637_198), q.AverageGasLimit)
	assert.Equal(t, uint64(80_000), q.EstimatedGasRefund)
	assert.Equal(t, "0.875", q.FeePercent.String())

	require.NotNil(t, q.Trade)
	assert.Equal(t, common.HexToAddress("0x881d40237659c251811cec9c364ef91dc08d300c"), q.Trade.To)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, []byte(q.Trade.Data))
	assert.Equal(t, "0x0", q.Trade.Value)
	assert.Equal(t, uint64(3_000_000), q.Trade.Gas)

	require.NotNil(t, q.ApprovalNeeded)
	assert.Equal(t, uint64(70_000), q.ApprovalNeeded.GasLimit)
	// An approval call without a value defaults to zero.
	assert.Equal(t, "0x0", q.ApprovalNeeded.Value)
}

func TestAPINetworkConfigToDomain(t *testing.T) {
	raw := `{"refreshRates": {
		"quotes": 30,
		"quotesPrefetching": 45,
		"stxGetTransactions": 5,
		"stxBatchStatus": 3,
		"stxStatusDeadline": 150,
		"stxMaxFeeMultiplier": 1.5
	}}`
	var ac APINetworkConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &ac))

	cfg := ac.toDomainConfig()
	assert.Equal(t, int64(30_000), cfg.QuoteRefreshMillis)
	assert.Equal(t, int64(45_000), cfg.QuotePrefetchingRefreshMillis)
	assert.Equal(t, int64(5_000), cfg.StxGetTransactionsMillis)
	assert.Equal(t, int64(3_000), cfg.StxBatchStatusMillis)
	assert.Equal(t, int64(150), cfg.StxStatusDeadline)
	assert.Equal(t, 1.5, cfg.StxMaxFeeMultiplier)
}

func TestAPINetworkConfigMissingRatesKeepDefaults(t *testing.T) {
	var ac APINetworkConfig
	require.NoError(t, json.Unmarshal([]byte(`{"refreshRates": {"quotes": 40}}`), &ac))

	cfg := ac.toDomainConfig()
	assert.Equal(t, int64(40_000), cfg.QuoteRefreshMillis)
	assert.Equal(t, domain.DefaultNetworkConfig.QuotePrefetchingRefreshMillis, cfg.QuotePrefetchingRefreshMillis)
	assert.Equal(t, domain.DefaultNetworkConfig.StxMaxFeeMultiplier, cfg.StxMaxFeeMultiplier)
}
