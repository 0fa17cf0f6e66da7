package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// QuoteSource fetches competing quotes for a swap intent from the
// aggregator API.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, params FetchParams, chainID uint64) (QuoteSet, error)
}

// NetworkConfigSource fetches the aggregator-level network config.
type NetworkConfigSource interface {
	FetchNetworkConfig(ctx context.Context, chainID uint64) (NetworkConfig, error)
}

// AllowanceReader reads the current ERC-20 allowance an owner has
// granted the chain's swap spender contract.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner common.Address, client NetworkClient) (*big.Int, error)
}

// GasProbe simulates a call to estimate its gas limit. It must be
// ignorable after a timeout: a late result goes nowhere.
type GasProbe interface {
	Simulate(ctx context.Context, call TradeCall, client NetworkClient) (GasSimulation, error)
}

// FeeEstimateProvider supplies the per-cycle gas price basis.
type FeeEstimateProvider interface {
	Estimates(ctx context.Context, client NetworkClient) (FeeEstimates, error)
}

// L1FeeProvider reads the layer-1 data fee surcharge for a trade on
// rollup chains. Only called for chains known to require it.
type L1FeeProvider interface {
	Layer1Fee(ctx context.Context, call TradeCall, client NetworkClient) (string, error)
}

// TokenPriceTable supplies spot prices per chain, keyed by lowercase
// token address.
type TokenPriceTable interface {
	MarketData(ctx context.Context, chainID uint64) (map[string]TokenPrice, error)
}

// NetworkRegistry resolves network client ids to configured endpoints.
type NetworkRegistry interface {
	ClientByID(id string) (NetworkClient, error)
}

// Tracker receives fire-and-forget telemetry events. Implementations
// must never block the caller.
type Tracker interface {
	Track(event string, props map[string]any)
}

// NopTracker discards all events.
type NopTracker struct{}

func (NopTracker) Track(string, map[string]any) {}

// CycleHistoryStore persists committed fetch cycles for diagnostics.
type CycleHistoryStore interface {
	Insert(ctx context.Context, rec CycleRecord) error
	ListRecent(ctx context.Context, limit int) ([]CycleRecord, error)
}

// SnapshotArchiver uploads a JSON snapshot of a finished quote set to
// cold storage.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, key string, payload []byte) error
}

// MarketDataCache is a TTL cache in front of the price source.
type MarketDataCache interface {
	Get(ctx context.Context, chainID uint64) (map[string]TokenPrice, bool, error)
	Set(ctx context.Context, chainID uint64, prices map[string]TokenPrice) error
}

// NetworkConfigCache is a TTL cache in front of the network config
// source, keyed by chain id.
type NetworkConfigCache interface {
	Get(ctx context.Context, chainID uint64) (NetworkConfig, bool, error)
	Set(ctx context.Context, chainID uint64, cfg NetworkConfig) error
}
