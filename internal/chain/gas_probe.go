package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"

	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/numeric"
)

// GasProbe estimates gas limits through eth_estimateGas.
type GasProbe struct {
	pool *ClientPool
}

var _ domain.GasProbe = (*GasProbe)(nil)

func NewGasProbe(pool *ClientPool) *GasProbe {
	return &GasProbe{pool: pool}
}

func (p *GasProbe) Simulate(ctx context.Context, call domain.TradeCall, client domain.NetworkClient) (domain.GasSimulation, error) {
	ec, err := p.pool.Dial(ctx, client)
	if err != nil {
		return domain.GasSimulation{SimulationFailed: true}, err
	}
	value, err := numeric.ParseHexWei(call.Value)
	if err != nil {
		return domain.GasSimulation{SimulationFailed: true}, fmt.Errorf("chain: trade value: %w", err)
	}
	to := call.To
	gas, err := ec.EstimateGas(ctx, ethereum.CallMsg{
		From:  call.From,
		To:    &to,
		Data:  call.Data,
		Value: value,
	})
	if err != nil {
		return domain.GasSimulation{SimulationFailed: true}, fmt.Errorf("chain: estimate gas: %w", err)
	}
	return domain.GasSimulation{GasLimit: gas}, nil
}
