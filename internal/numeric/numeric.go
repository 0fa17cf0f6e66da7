// Package numeric centralizes the fixed-point arithmetic used by quote
// valuation so every step is reproducible: decimal (not binary float)
// math, explicit rounding, and lenient hex-wei parsing.
package numeric

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the decimal scale of the native asset on every
// supported chain.
const NativeDecimals = 18

var weiPerNative = decimal.New(1, NativeDecimals)

// FromBaseUnits converts a base-unit decimal string (e.g. wei, or an
// ERC-20 amount) to a token amount using the token's decimal scale.
func FromBaseUnits(base string, decimals int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(base)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("numeric: parse base units %q: %w", base, err)
	}
	return d.Shift(int32(-decimals)), nil
}

// WeiToNative converts an integer wei amount to the native unit.
func WeiToNative(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, 0).Div(weiPerNative)
}

// RoundPlaces rounds half away from zero to the given number of decimal
// places, which matches round-half-up for the non-negative values that
// flow through quote valuation.
func RoundPlaces(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// ParseHexWei parses a 0x-prefixed hex quantity into a big integer.
// Unlike strict JSON-RPC quantity parsing it tolerates "0x", odd digit
// counts, and leading zeros, all of which appear in aggregator payloads.
func ParseHexWei(s string) (*big.Int, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if t == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(t, 16)
	if !ok {
		return nil, fmt.Errorf("numeric: invalid hex quantity %q", s)
	}
	return v, nil
}

// SumHexWei adds two hex-wei quantities and re-encodes the sum.
func SumHexWei(a, b string) (string, error) {
	av, err := ParseHexWei(a)
	if err != nil {
		return "", err
	}
	bv, err := ParseHexWei(b)
	if err != nil {
		return "", err
	}
	return "0x" + new(big.Int).Add(av, bv).Text(16), nil
}

// GweiToWei converts a decimal gwei amount to integer wei, truncating
// any sub-wei remainder.
func GweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Shift(9).BigInt()
}
