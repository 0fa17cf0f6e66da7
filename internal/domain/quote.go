package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// AggregatorKind classifies the venue behind a quote.
type AggregatorKind string

const (
	KindDEX           AggregatorKind = "DEX"
	KindRFQ           AggregatorKind = "RFQ"
	KindContract      AggregatorKind = "CONTRACT"
	KindAggregated    AggregatorKind = "AGG"
	KindComposite     AggregatorKind = "COMPOSITE"
	KindWrappedNative AggregatorKind = "wrappedNative"
)

// TradeCall is an on-chain call descriptor supplied by an aggregator.
type TradeCall struct {
	To    common.Address `json:"to"`
	From  common.Address `json:"from"`
	Data  hexutil.Bytes  `json:"data"`
	Value string         `json:"value"` // hex wei
	Gas   uint64         `json:"gas,omitempty"`
}

// ApprovalCall is the ERC-20 approve call a wallet must send before the
// trade can pull tokens, plus the gas limit stamped onto it.
type ApprovalCall struct {
	TradeCall
	GasLimit uint64 `json:"gasLimit"`
}

// TokenInfo carries the token metadata tagged onto fetched quotes.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals int            `json:"decimals"`
}

// Quote is one aggregator's complete offer for a swap.
//
// Amount fields are decimal strings in token base units, exactly as the
// aggregator API returns them. The computed fields are filled in by gas
// estimation and best-quote selection and are decimal strings in the
// chain's native unit.
type Quote struct {
	AggregatorID   string         `json:"aggregator"`
	AggregatorKind AggregatorKind `json:"aggType"`

	SourceToken       common.Address `json:"sourceToken"`
	DestinationToken  common.Address `json:"destinationToken"`
	SourceAmount      string         `json:"sourceAmount"`
	DestinationAmount string         `json:"destinationAmount"`

	SourceTokenInfo      TokenInfo `json:"sourceTokenInfo"`
	DestinationTokenInfo TokenInfo `json:"destinationTokenInfo"`

	// Trade is nil only for simulation-failed quotes, which are excluded
	// from ranking unless an approval is still pending.
	Trade          *TradeCall    `json:"trade"`
	ApprovalNeeded *ApprovalCall `json:"approvalNeeded"`

	MaxGasLimit        uint64 `json:"maxGas"`
	AverageGasLimit    uint64 `json:"averageGas"`
	EstimatedGasRefund uint64 `json:"estimatedRefund"`

	// FeePercent is the aggregator's cut as a percentage of the
	// destination amount (fee=1 means 1%).
	FeePercent decimal.Decimal `json:"fee"`

	// MultiLayerL1FeeTotal is the layer-1 data fee surcharge in hex wei
	// on rollup chains, nil elsewhere.
	MultiLayerL1FeeTotal *string `json:"multiLayerL1FeeTotal"`

	// Computed fields.
	GasEstimate           *uint64  `json:"gasEstimate,omitempty"`
	GasEstimateWithRefund *uint64  `json:"gasEstimateWithRefund,omitempty"`
	EthFee                string   `json:"ethFee,omitempty"`
	EthValueOfDestination string   `json:"ethValueOfTokens,omitempty"`
	OverallValue          string   `json:"overallValueOfQuote,omitempty"`
	MetaMaskFeeInEth      string   `json:"metaMaskFeeInEth,omitempty"`
	IsBestQuote           bool     `json:"isBestQuote,omitempty"`
	Savings               *Savings `json:"savings,omitempty"`
}

// Clone returns a deep copy of the quote.
func (q *Quote) Clone() *Quote {
	cp := *q
	if q.Trade != nil {
		t := *q.Trade
		t.Data = append([]byte(nil), q.Trade.Data...)
		cp.Trade = &t
	}
	if q.ApprovalNeeded != nil {
		a := *q.ApprovalNeeded
		a.Data = append([]byte(nil), q.ApprovalNeeded.Data...)
		cp.ApprovalNeeded = &a
	}
	if q.MultiLayerL1FeeTotal != nil {
		v := *q.MultiLayerL1FeeTotal
		cp.MultiLayerL1FeeTotal = &v
	}
	if q.GasEstimate != nil {
		v := *q.GasEstimate
		cp.GasEstimate = &v
	}
	if q.GasEstimateWithRefund != nil {
		v := *q.GasEstimateWithRefund
		cp.GasEstimateWithRefund = &v
	}
	if q.Savings != nil {
		s := *q.Savings
		cp.Savings = &s
	}
	return &cp
}

// QuoteSet is an insertion-ordered collection of quotes. Ranking
// tie-breaks depend on this order, so it is preserved from the
// aggregator API response through to the committed state.
type QuoteSet []*Quote

// Get returns the quote with the given aggregator id, or nil.
func (qs QuoteSet) Get(id string) *Quote {
	for _, q := range qs {
		if q.AggregatorID == id {
			return q
		}
	}
	return nil
}

// IDs returns the aggregator ids in insertion order.
func (qs QuoteSet) IDs() []string {
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.AggregatorID)
	}
	return ids
}

// Clone deep-copies the set.
func (qs QuoteSet) Clone() QuoteSet {
	if qs == nil {
		return nil
	}
	out := make(QuoteSet, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Clone())
	}
	return out
}
