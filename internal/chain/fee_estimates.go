package chain

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// FeeEstimateProvider derives the gas price basis from the chain head:
// fee market estimates when the chain has EIP-1559 base fees, a legacy
// gas price otherwise.
type FeeEstimateProvider struct {
	pool *ClientPool
}

var _ domain.FeeEstimateProvider = (*FeeEstimateProvider)(nil)

func NewFeeEstimateProvider(pool *ClientPool) *FeeEstimateProvider {
	return &FeeEstimateProvider{pool: pool}
}

func (p *FeeEstimateProvider) Estimates(ctx context.Context, client domain.NetworkClient) (domain.FeeEstimates, error) {
	ec, err := p.pool.Dial(ctx, client)
	if err != nil {
		return domain.FeeEstimates{}, err
	}

	head, err := ec.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.FeeEstimates{}, fmt.Errorf("chain: head header: %w", err)
	}

	if head.BaseFee != nil {
		tip, err := ec.SuggestGasTipCap(ctx)
		if err != nil {
			return domain.FeeEstimates{}, fmt.Errorf("chain: suggest tip cap: %w", err)
		}
		return domain.FeeEstimates{
			Type:              domain.GasEstimateFeeMarket,
			MaxPriorityFeeWei: tip,
			BaseFeeWei:        head.BaseFee,
		}, nil
	}

	price, err := ec.SuggestGasPrice(ctx)
	if err != nil {
		return domain.FeeEstimates{}, fmt.Errorf("chain: suggest gas price: %w", err)
	}
	return domain.FeeEstimates{
		Type:        domain.GasEstimateLegacy,
		GasPriceWei: price,
	}, nil
}
