package metaswap

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// flexUint64 unmarshals from a JSON number, a decimal string, or a
// 0x-prefixed hex string. The trades API mixes all three for gas
// fields.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexUint64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return err
		}
		*f = flexUint64(v)
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexUint64(v)
	return nil
}

// APICall is a transaction descriptor in a trades response.
type APICall struct {
	To    string     `json:"to"`
	From  string     `json:"from"`
	Data  string     `json:"data"`
	Value string     `json:"value"`
	Gas   flexUint64 `json:"gas"`
}

func (c *APICall) toTradeCall() domain.TradeCall {
	value := c.Value
	if value == "" {
		value = "0x0"
	}
	return domain.TradeCall{
		To:    common.HexToAddress(c.To),
		From:  common.HexToAddress(c.From),
		Data:  common.FromHex(c.Data),
		Value: value,
		Gas:   uint64(c.Gas),
	}
}

// APIQuote is one aggregator entry of a trades response.
type APIQuote struct {
	Aggregator        string          `json:"aggregator"`
	AggType           string          `json:"aggType"`
	SourceToken       string          `json:"sourceToken"`
	DestinationToken  string          `json:"destinationToken"`
	SourceAmount      string          `json:"sourceAmount"`
	DestinationAmount string          `json:"destinationAmount"`
	Trade             *APICall        `json:"trade"`
	ApprovalNeeded    *APICall        `json:"approvalNeeded"`
	MaxGas            flexUint64      `json:"maxGas"`
	AverageGas        flexUint64      `json:"averageGas"`
	EstimatedRefund   flexUint64      `json:"estimatedRefund"`
	Fee               json.Number     `json:"fee"`
	Error             json.RawMessage `json:"error"`
}

// hasError reports whether the aggregator attached an error object.
// The API sends null, a string, or an object; anything non-null counts.
func (q *APIQuote) hasError() bool {
	s := strings.TrimSpace(string(q.Error))
	return s != "" && s != "null"
}

func (q *APIQuote) toDomainQuote() *domain.Quote {
	fee, err := decimal.NewFromString(q.Fee.String())
	if err != nil {
		fee = decimal.Zero
	}
	out := &domain.Quote{
		AggregatorID:       q.Aggregator,
		AggregatorKind:     domain.AggregatorKind(q.AggType),
		SourceToken:        common.HexToAddress(q.SourceToken),
		DestinationToken:   common.HexToAddress(q.DestinationToken),
		SourceAmount:       q.SourceAmount,
		DestinationAmount:  q.DestinationAmount,
		MaxGasLimit:        uint64(q.MaxGas),
		AverageGasLimit:    uint64(q.AverageGas),
		EstimatedGasRefund: uint64(q.EstimatedRefund),
		FeePercent:         fee,
	}
	if q.Trade != nil {
		t := q.Trade.toTradeCall()
		out.Trade = &t
	}
	if q.ApprovalNeeded != nil {
		a := q.ApprovalNeeded.toTradeCall()
		out.ApprovalNeeded = &domain.ApprovalCall{TradeCall: a, GasLimit: a.Gas}
	}
	return out
}

// APINetworkRefreshRates is the refreshRates block of a network config
// response. Values are seconds.
type APINetworkRefreshRates struct {
	Quotes              int64   `json:"quotes"`
	QuotesPrefetching   int64   `json:"quotesPrefetching"`
	StxGetTransactions  int64   `json:"stxGetTransactions"`
	StxBatchStatus      int64   `json:"stxBatchStatus"`
	StxStatusDeadline   int64   `json:"stxStatusDeadline"`
	StxMaxFeeMultiplier float64 `json:"stxMaxFeeMultiplier"`
}

// APINetworkConfig is a network config response.
type APINetworkConfig struct {
	RefreshRates APINetworkRefreshRates `json:"refreshRates"`
}

func (c *APINetworkConfig) toDomainConfig() domain.NetworkConfig {
	out := domain.DefaultNetworkConfig
	r := c.RefreshRates
	if r.Quotes > 0 {
		out.QuoteRefreshMillis = r.Quotes * 1000
	}
	if r.QuotesPrefetching > 0 {
		out.QuotePrefetchingRefreshMillis = r.QuotesPrefetching * 1000
	}
	if r.StxGetTransactions > 0 {
		out.StxGetTransactionsMillis = r.StxGetTransactions * 1000
	}
	if r.StxBatchStatus > 0 {
		out.StxBatchStatusMillis = r.StxBatchStatus * 1000
	}
	if r.StxStatusDeadline > 0 {
		out.StxStatusDeadline = r.StxStatusDeadline
	}
	if r.StxMaxFeeMultiplier > 0 {
		out.StxMaxFeeMultiplier = r.StxMaxFeeMultiplier
	}
	return out
}

// APITokenPrice is one entry of a spot prices response.
type APITokenPrice struct {
	Price float64 `json:"price"`
}
