package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// gasPriceOracle is the predeployed fee oracle on OP-stack rollups.
var gasPriceOracle = common.HexToAddress("0x420000000000000000000000000000000000000F")

// getL1FeeSelector is the 4-byte id of getL1Fee(bytes).
var getL1FeeSelector = []byte{0x49, 0x94, 0x8e, 0x0e}

// L1FeeProvider reads the layer-1 data fee a rollup charges for a
// transaction's calldata.
type L1FeeProvider struct {
	pool *ClientPool
}

var _ domain.L1FeeProvider = (*L1FeeProvider)(nil)

func NewL1FeeProvider(pool *ClientPool) *L1FeeProvider {
	return &L1FeeProvider{pool: pool}
}

func (p *L1FeeProvider) Layer1Fee(ctx context.Context, call domain.TradeCall, client domain.NetworkClient) (string, error) {
	ec, err := p.pool.Dial(ctx, client)
	if err != nil {
		return "", err
	}

	out, err := ec.CallContract(ctx, ethereum.CallMsg{
		To:   &gasPriceOracle,
		Data: encodeGetL1Fee(call.Data),
	}, nil)
	if err != nil {
		return "", fmt.Errorf("chain: getL1Fee call: %w", err)
	}
	if len(out) < 32 {
		return "", fmt.Errorf("chain: short getL1Fee return (%d bytes)", len(out))
	}
	return hexutil.EncodeBig(new(big.Int).SetBytes(out[:32])), nil
}

// encodeGetL1Fee ABI-encodes a getL1Fee(bytes) call for the given
// transaction data.
func encodeGetL1Fee(txData []byte) []byte {
	padded := len(txData)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}
	data := make([]byte, 0, 4+2*32+padded)
	data = append(data, getL1FeeSelector...)
	data = append(data, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(txData))).Bytes(), 32)...)
	data = append(data, txData...)
	data = append(data, make([]byte, padded-len(txData))...)
	return data
}
