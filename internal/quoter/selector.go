package quoter

import (
	"log/slog"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/swapquoter/internal/chain"
	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/numeric"
)

// MaxGasLimitFloor is the trade gas limit assumed for quotes that carry
// neither a simulated estimate nor an aggregator average.
const MaxGasLimitFloor uint64 = 2_500_000

// Ranking is the outcome of scoring a quote set: the annotated quotes
// and the id of the highest-value one.
type Ranking struct {
	Quotes   domain.QuoteSet
	TopAggID string
}

// Selector scores quotes by overall value, the destination value in
// native-token terms minus the total fee paid to get it, and computes
// savings of the winner against the median quote.
type Selector struct {
	logger *slog.Logger
}

func NewSelector(logger *slog.Logger) *Selector {
	return &Selector{logger: logger}
}

// quoteStats holds the intermediate per-quote figures so the median
// pass does not have to re-parse annotated strings.
type quoteStats struct {
	quote        *domain.Quote
	ethFee       decimal.Decimal
	ethValue     decimal.Decimal
	overallValue decimal.Decimal
	mmFeeInEth   decimal.Decimal
	overallSort  decimal.Decimal
	hasRate      bool
}

// Rank annotates every executable quote with its fee and value figures
// and picks the top one. The comparison rate falls back to 1 when the
// destination token has no market price; value annotations and savings
// are only produced when a real conversion basis exists.
func (s *Selector) Rank(
	quotes domain.QuoteSet,
	sourceToken common.Address,
	sourceAmount string,
	chainID uint64,
	gasPriceWei *big.Int,
	marketData map[string]domain.TokenPrice,
) (*Ranking, error) {
	if len(quotes) == 0 {
		return nil, domain.ErrEmptyQuoteList
	}

	sourceIsNative := chain.IsNativeToken(sourceToken)
	sourceAmountWei, ok := new(big.Int).SetString(sourceAmount, 10)
	if !ok {
		sourceAmountWei = big.NewInt(0)
	}

	ranked := quotes.Clone()
	stats := make([]*quoteStats, 0, len(ranked))
	var top *quoteStats

	for _, q := range ranked {
		if q.Trade == nil {
			continue
		}

		limit := MaxGasLimitFloor
		if q.GasEstimateWithRefund != nil {
			limit = *q.GasEstimateWithRefund
		} else if q.AverageGasLimit > 0 {
			limit = q.AverageGasLimit
		}
		if q.ApprovalNeeded != nil {
			limit += q.ApprovalNeeded.GasLimit
		}

		gasCostWei := new(big.Int).Mul(new(big.Int).SetUint64(limit), gasPriceWei)
		if q.MultiLayerL1FeeTotal != nil {
			l1, err := numeric.ParseHexWei(*q.MultiLayerL1FeeTotal)
			if err != nil {
				s.logger.Warn("invalid layer 1 fee on quote",
					slog.String("aggregator", q.AggregatorID),
					slog.String("error", err.Error()),
				)
			} else {
				gasCostWei.Add(gasCostWei, l1)
			}
		}

		tradeValueWei, err := numeric.ParseHexWei(q.Trade.Value)
		if err != nil {
			s.logger.Warn("invalid trade value on quote",
				slog.String("aggregator", q.AggregatorID),
				slog.String("error", err.Error()),
			)
			continue
		}
		totalWei := new(big.Int).Add(gasCostWei, tradeValueWei)

		// For native-token swaps the trade value includes the amount
		// being swapped, which is not a fee.
		feeWei := totalWei
		if sourceIsNative {
			feeWei = new(big.Int).Sub(totalWei, sourceAmountWei)
		}
		ethFee := numeric.RoundPlaces(numeric.WeiToNative(feeWei), 6)

		destTokens, err := numeric.FromBaseUnits(q.DestinationAmount, q.DestinationTokenInfo.Decimals)
		if err != nil {
			s.logger.Warn("invalid destination amount on quote",
				slog.String("aggregator", q.AggregatorID),
				slog.String("error", err.Error()),
			)
			continue
		}
		preFeeShare := decimal.NewFromInt(100).Sub(q.FeePercent).Div(decimal.NewFromInt(100))
		mmFeeTokens := destTokens.Div(preFeeShare).Sub(destTokens)

		price, priceKnown := marketData[strings.ToLower(q.DestinationToken.Hex())]
		destIsNative := chain.IsNativeToken(q.DestinationToken)

		sortRate := decimal.NewFromInt(1)
		if priceKnown && price.Price != 0 {
			sortRate = decimal.NewFromFloat(price.Price)
		}

		var calcRate decimal.Decimal
		hasRate := true
		switch {
		case destIsNative:
			calcRate = decimal.NewFromInt(1)
		case priceKnown && price.Price != 0:
			calcRate = decimal.NewFromFloat(price.Price)
		default:
			hasRate = false
		}

		// Without a price basis the fee cannot be netted against the
		// destination value, so the raw value alone orders the quote.
		overallSort := destTokens.Mul(sortRate)
		if hasRate {
			overallSort = overallSort.Sub(ethFee)
		}

		st := &quoteStats{
			quote:       q,
			ethFee:      ethFee,
			overallSort: overallSort,
			hasRate:     hasRate,
		}
		q.EthFee = ethFee.String()

		if hasRate {
			st.ethValue = destTokens.Mul(calcRate)
			st.overallValue = st.ethValue.Sub(ethFee)
			st.mmFeeInEth = numeric.RoundPlaces(mmFeeTokens.Mul(calcRate), 6)
			q.EthValueOfDestination = st.ethValue.String()
			q.OverallValue = st.overallValue.String()
			q.MetaMaskFeeInEth = st.mmFeeInEth.String()
		}

		stats = append(stats, st)
		if top == nil || st.overallSort.GreaterThan(top.overallSort) {
			top = st
		}
	}

	if top == nil {
		return nil, domain.ErrEmptyQuoteList
	}

	if top.hasRate {
		top.quote.IsBestQuote = true
		median := medianStats(stats)
		top.quote.Savings = &domain.Savings{
			Performance:       top.ethValue.Sub(median.ethValue).String(),
			FeeSavings:        median.ethFee.Sub(top.ethFee).String(),
			MetaMaskFee:       top.mmFeeInEth.String(),
			MedianMetaMaskFee: median.mmFeeInEth.String(),
			Total: top.ethValue.Sub(median.ethValue).
				Add(median.ethFee.Sub(top.ethFee)).
				Sub(top.mmFeeInEth).String(),
		}
	}

	return &Ranking{Quotes: ranked, TopAggID: top.quote.AggregatorID}, nil
}

// medianStats returns the median fee and value figures of a quote set,
// ordered by overall value. For an even count the two central quotes
// are averaged field by field.
func medianStats(stats []*quoteStats) quoteStats {
	sorted := make([]*quoteStats, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].overallValue.LessThan(sorted[j].overallValue)
	})

	if len(sorted)%2 == 1 {
		return *sorted[len(sorted)/2]
	}

	two := decimal.NewFromInt(2)
	upper := sorted[len(sorted)/2]
	lower := sorted[len(sorted)/2-1]
	return quoteStats{
		ethFee:     upper.ethFee.Add(lower.ethFee).Div(two),
		ethValue:   upper.ethValue.Add(lower.ethValue).Div(two),
		mmFeeInEth: upper.mmFeeInEth.Add(lower.mmFeeInEth).Div(two),
	}
}
