package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FetchParams describes one swap intent to fetch quotes for.
type FetchParams struct {
	Slippage         float64        `json:"slippage"`
	SourceToken      common.Address `json:"sourceToken"`
	DestinationToken common.Address `json:"destinationToken"`
	SourceAmount     string         `json:"sourceAmount"` // base units, decimal string
	SourceDecimals   int            `json:"sourceDecimals"`
	FromAddress      common.Address `json:"fromAddress"`
	ExchangeList     []string       `json:"exchangeList,omitempty"`
	BalanceError     bool           `json:"balanceError,omitempty"`
}

// FetchMeta carries the per-request metadata that accompanies fetch
// params: which network client to quote against and the token metadata
// tagged onto every returned quote.
type FetchMeta struct {
	NetworkClientID      string    `json:"networkClientId"`
	SourceTokenInfo      TokenInfo `json:"sourceTokenInfo"`
	DestinationTokenInfo TokenInfo `json:"destinationTokenInfo"`
}

// NetworkClient identifies one configured RPC endpoint.
type NetworkClient struct {
	ID      string
	ChainID uint64
	RPCURL  string
}

// NetworkConfig is the aggregator-level network configuration: quote
// refresh cadence plus smart-transaction parameters. Values fall back
// to hardcoded defaults when the config fetch fails.
type NetworkConfig struct {
	QuoteRefreshMillis            int64   `json:"quotes"`
	QuotePrefetchingRefreshMillis int64   `json:"quotesPrefetching"`
	StxGetTransactionsMillis      int64   `json:"stxGetTransactions"`
	StxBatchStatusMillis          int64   `json:"stxBatchStatus"`
	StxStatusDeadline             int64   `json:"stxStatusDeadline"`
	StxMaxFeeMultiplier           float64 `json:"stxMaxFeeMultiplier"`
}

// GasEstimateType enumerates the shapes a fee estimate can take.
type GasEstimateType string

const (
	GasEstimateFeeMarket   GasEstimateType = "fee-market"
	GasEstimateLegacy      GasEstimateType = "legacy"
	GasEstimateEthGasPrice GasEstimateType = "eth_gasPrice"
)

// FeeEstimates is the per-cycle gas price basis from the fee provider.
// Which fields are set depends on Type: fee-market populates
// MaxPriorityFeeWei and BaseFeeWei, the other two populate GasPriceWei.
type FeeEstimates struct {
	Type              GasEstimateType
	MaxPriorityFeeWei *big.Int
	BaseFeeWei        *big.Int
	GasPriceWei       *big.Int
}

// GasSimulation is the outcome of one gas-limit probe.
type GasSimulation struct {
	GasLimit         uint64
	SimulationFailed bool
}

// TokenPrice is one entry of the market data table, a spot price in the
// chain's native unit.
type TokenPrice struct {
	Price float64 `json:"price"`
}
