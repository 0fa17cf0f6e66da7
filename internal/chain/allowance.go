package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// allowanceSelector is the 4-byte id of allowance(address,address).
var allowanceSelector = []byte{0xdd, 0x62, 0xed, 0x3e}

// AllowanceReader reads ERC-20 allowances granted to the chain's swap
// spender contract.
type AllowanceReader struct {
	pool *ClientPool
}

var _ domain.AllowanceReader = (*AllowanceReader)(nil)

func NewAllowanceReader(pool *ClientPool) *AllowanceReader {
	return &AllowanceReader{pool: pool}
}

func (r *AllowanceReader) Allowance(ctx context.Context, token, owner common.Address, client domain.NetworkClient) (*big.Int, error) {
	params, err := ParamsFor(client.ChainID)
	if err != nil {
		return nil, err
	}
	ec, err := r.pool.Dial(ctx, client)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, 4+2*32)
	data = append(data, allowanceSelector...)
	data = append(data, common.LeftPadBytes(owner.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(params.Spender.Bytes(), 32)...)

	out, err := ec.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: allowance call on %s: %w", token, err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("chain: short allowance return (%d bytes) from %s", len(out), token)
	}
	return new(big.Int).SetBytes(out[:32]), nil
}
