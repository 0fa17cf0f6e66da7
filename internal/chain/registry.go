// Package chain holds the per-chain constants and the go-ethereum
// backed adapters for on-chain reads: allowance checks, gas probes,
// fee estimates, and rollup L1 fee lookups.
package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// NativeTokenAddress is the placeholder address the aggregator API uses
// for a chain's native asset in place of an ERC-20 contract address.
var NativeTokenAddress = common.Address{}

// Params captures what the quoter needs to know about one chain.
type Params struct {
	ChainID uint64

	// Spender is the swap contract that must be approved to pull ERC-20
	// source tokens.
	Spender common.Address

	// WrappedNative is the canonical wrapped native token contract.
	WrappedNative common.Address

	// HasL1Fee marks optimistic rollups whose transactions carry a
	// layer-1 data fee on top of execution gas.
	HasL1Fee bool
}

var chains = map[uint64]Params{
	1: {
		ChainID:       1,
		Spender:       common.HexToAddress("0x881d40237659c251811cec9c364ef91dc08d300c"),
		WrappedNative: common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"),
	},
	10: {
		ChainID:       10,
		Spender:       common.HexToAddress("0x9dda6ef3d919c9bc8885d5560999a3640431e8e6"),
		WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		HasL1Fee:      true,
	},
	56: {
		ChainID:       56,
		Spender:       common.HexToAddress("0x1a1ec25dc08e98e5e93f1104b5e5cdd298707d31"),
		WrappedNative: common.HexToAddress("0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c"),
	},
	137: {
		ChainID:       137,
		Spender:       common.HexToAddress("0x1a1ec25dc08e98e5e93f1104b5e5cdd298707d31"),
		WrappedNative: common.HexToAddress("0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270"),
	},
	324: {
		ChainID:       324,
		Spender:       common.HexToAddress("0xf504c1fe13d14df615e66dcd0abf39e60c697f34"),
		WrappedNative: common.HexToAddress("0x5aea5775959fbc2557cc8789bc1bf90a239d9a91"),
	},
	8453: {
		ChainID:       8453,
		Spender:       common.HexToAddress("0x9dda6ef3d919c9bc8885d5560999a3640431e8e6"),
		WrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		HasL1Fee:      true,
	},
	42161: {
		ChainID:       42161,
		Spender:       common.HexToAddress("0x9dda6ef3d919c9bc8885d5560999a3640431e8e6"),
		WrappedNative: common.HexToAddress("0x82af49447d8a07e3bd95bd0d56f35241523fbab1"),
	},
	43114: {
		ChainID:       43114,
		Spender:       common.HexToAddress("0x1a1ec25dc08e98e5e93f1104b5e5cdd298707d31"),
		WrappedNative: common.HexToAddress("0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7"),
	},
	59144: {
		ChainID:       59144,
		Spender:       common.HexToAddress("0x9dda6ef3d919c9bc8885d5560999a3640431e8e6"),
		WrappedNative: common.HexToAddress("0xe5d7c2a44ffddf6b295a15c148167daaaf5cf34f"),
	},
}

// ParamsFor returns the chain parameters for a chain id.
func ParamsFor(chainID uint64) (Params, error) {
	p, ok := chains[chainID]
	if !ok {
		return Params{}, domain.ErrUnsupportedChain
	}
	return p, nil
}

// IsNativeToken reports whether addr is the chain-native asset
// placeholder.
func IsNativeToken(addr common.Address) bool {
	return addr == NativeTokenAddress
}

// HasL1Fee reports whether the chain's trades carry an L1 surcharge.
func HasL1Fee(chainID uint64) bool {
	p, ok := chains[chainID]
	return ok && p.HasL1Fee
}
