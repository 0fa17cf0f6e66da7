package quoter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/swapquoter/internal/chain"
	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/numeric"
)

const (
	persistTimeout = 10 * time.Second

	eventCycleCommitted = "quote_cycle_committed"
	eventCycleExpired   = "quote_cycle_expired"
)

// Orchestrator runs fetch cycles end to end: fetch quotes, apply the
// approval policy, race gas probes, rank, and commit, then schedule the
// next poll. Exactly one cycle may commit per sequence number; a cycle
// that loses the sequence race discards its work.
type Orchestrator struct {
	source    domain.QuoteSource
	netConfig domain.NetworkConfigSource
	allowance domain.AllowanceReader
	racer     *GasRacer
	fees      domain.FeeEstimateProvider
	l1Fees    domain.L1FeeProvider
	prices    domain.TokenPriceTable
	registry  domain.NetworkRegistry
	selector  *Selector
	scheduler *PollScheduler
	projector *Projector
	tracker   domain.Tracker
	history   domain.CycleHistoryStore
	archiver  domain.SnapshotArchiver
	clock     Clock
	logger    *slog.Logger

	seq atomic.Uint64

	mu         sync.Mutex
	pollParams *domain.FetchParams
	pollMeta   domain.FetchMeta
}

// OrchestratorDeps bundles the collaborators for construction. History
// and Archiver are optional; everything else is required.
type OrchestratorDeps struct {
	Source    domain.QuoteSource
	NetConfig domain.NetworkConfigSource
	Allowance domain.AllowanceReader
	Racer     *GasRacer
	Fees      domain.FeeEstimateProvider
	L1Fees    domain.L1FeeProvider
	Prices    domain.TokenPriceTable
	Registry  domain.NetworkRegistry
	Selector  *Selector
	Scheduler *PollScheduler
	Projector *Projector
	Tracker   domain.Tracker
	History   domain.CycleHistoryStore
	Archiver  domain.SnapshotArchiver
	Clock     Clock
	Logger    *slog.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Tracker == nil {
		deps.Tracker = domain.NopTracker{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	return &Orchestrator{
		source:    deps.Source,
		netConfig: deps.NetConfig,
		allowance: deps.Allowance,
		racer:     deps.Racer,
		fees:      deps.Fees,
		l1Fees:    deps.L1Fees,
		prices:    deps.Prices,
		registry:  deps.Registry,
		selector:  deps.Selector,
		scheduler: deps.Scheduler,
		projector: deps.Projector,
		tracker:   deps.Tracker,
		history:   deps.History,
		archiver:  deps.Archiver,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

// FetchAndSetQuotes runs one quote cycle. A nil params is a no-op so a
// late poll timer firing after a reset does nothing. The returned set
// is the committed, annotated one; ErrStaleFetch means a newer cycle
// superseded this one before it could commit.
func (o *Orchestrator) FetchAndSetQuotes(ctx context.Context, params *domain.FetchParams, meta domain.FetchMeta, isPolled bool) (domain.QuoteSet, string, error) {
	if params == nil {
		return nil, "", nil
	}

	client, err := o.registry.ClientByID(meta.NetworkClientID)
	if err != nil {
		return nil, "", fmt.Errorf("quoter: resolve network client %q: %w", meta.NetworkClientID, err)
	}
	if _, err := chain.ParamsFor(client.ChainID); err != nil {
		return nil, "", fmt.Errorf("quoter: chain %d: %w", client.ChainID, err)
	}

	cycleSeq := o.seq.Add(1)
	started := o.clock.Now()

	o.mu.Lock()
	p := *params
	o.pollParams = &p
	o.pollMeta = meta
	o.mu.Unlock()

	o.scheduler.BeginCycle(!isPolled)
	o.projector.BeginFetch(*params, meta, !isPolled)

	var (
		quotes     domain.QuoteSet
		marketData map[string]domain.TokenPrice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = o.source.FetchQuotes(gctx, *params, client.ChainID)
		if err != nil {
			return fmt.Errorf("quoter: fetch quotes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		prices, err := o.prices.MarketData(gctx, client.ChainID)
		if err != nil {
			o.logger.Warn("market data unavailable, ranking without prices",
				slog.Uint64("chain_id", client.ChainID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		marketData = prices
		return nil
	})
	g.Go(func() error {
		cfg, err := o.netConfig.FetchNetworkConfig(gctx, client.ChainID)
		if err != nil {
			o.logger.Warn("network config refresh failed, keeping current values",
				slog.Uint64("chain_id", client.ChainID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		o.projector.SetNetworkConfig(cfg)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	for _, q := range quotes {
		q.SourceTokenInfo = meta.SourceTokenInfo
		q.DestinationTokenInfo = meta.DestinationTokenInfo
	}

	var topAggID string
	if len(quotes) > 0 {
		approvalRequired, err := o.applyApprovalPolicy(ctx, quotes, *params, client, isPolled)
		if err != nil {
			return nil, "", err
		}

		// Probing is pointless when the trade cannot be executed yet:
		// an unapproved spender or an insufficient balance makes every
		// simulation revert, so the aggregator-reported gas figures
		// stand.
		if !approvalRequired && !params.BalanceError {
			quotes = o.raceGasEstimates(ctx, quotes, client)
		}
		o.attachLayer1Fees(ctx, quotes, client)
	}

	if len(quotes) > 0 {
		gasPriceWei, err := o.gasPriceBasis(ctx, client)
		if err != nil {
			return nil, "", err
		}
		ranking, err := o.selector.Rank(quotes, params.SourceToken, params.SourceAmount, client.ChainID, gasPriceWei, marketData)
		if err != nil {
			return nil, "", fmt.Errorf("quoter: rank quotes: %w", err)
		}
		quotes = ranking.Quotes
		topAggID = ranking.TopAggID
	}

	// Re-check right before committing so a newer cycle's result can
	// never be overwritten by a slower, older one.
	if o.seq.Load() != cycleSeq {
		return nil, "", domain.ErrStaleFetch
	}
	if !o.projector.SaveFetchedQuotes() {
		return nil, "", nil
	}

	o.projector.CommitQuotes(quotes, topAggID, o.clock.Now())
	if len(quotes) == 0 {
		o.projector.SetErrorKey(domain.ErrorKeyQuotesNotAvailable)
	}

	o.tracker.Track(eventCycleCommitted, map[string]any{
		"chain_id":    client.ChainID,
		"quote_count": len(quotes),
		"top_agg_id":  topAggID,
		"is_polled":   isPolled,
		"duration_ms": o.clock.Now().Sub(started).Milliseconds(),
	})
	o.persistCycle(*params, client.ChainID, quotes, topAggID, isPolled)

	netCfg := o.projector.NetworkConfig()
	limitEnabled := o.projector.Snapshot().PollingLimitEnabled
	interval := time.Duration(netCfg.QuotePrefetchingRefreshMillis) * time.Millisecond
	if limitEnabled {
		interval = time.Duration(netCfg.QuoteRefreshMillis) * time.Millisecond
	}
	expired := o.scheduler.FinishCycle(limitEnabled, interval, func() {
		o.pollOnce()
	})
	if expired {
		o.expire(client.ChainID)
	}

	return quotes, topAggID, nil
}

// pollOnce is the timer callback for a background refresh.
func (o *Orchestrator) pollOnce() {
	o.mu.Lock()
	params := o.pollParams
	meta := o.pollMeta
	o.mu.Unlock()

	if _, _, err := o.FetchAndSetQuotes(context.Background(), params, meta, true); err != nil {
		o.logger.Error("polled quote refresh failed", slog.String("error", err.Error()))
	}
}

// SafeRefetchQuotes starts a polled refresh only if no timer is armed
// and a previous fetch left params to reuse.
func (o *Orchestrator) SafeRefetchQuotes() {
	o.mu.Lock()
	params := o.pollParams
	o.mu.Unlock()
	if params == nil || o.scheduler.TimerArmed() {
		return
	}
	go o.pollOnce()
}

// StopPolling cancels the poll timer and resets the counter. In-flight
// cycles are not interrupted; the sequence guard handles them.
func (o *Orchestrator) StopPolling() {
	o.scheduler.Stop()
}

// ResetPostFetchState drops results, stops polling, and clears the
// stored poll params so a stray timer cannot revive the session.
func (o *Orchestrator) ResetPostFetchState() {
	o.scheduler.Stop()
	o.seq.Add(1)
	o.mu.Lock()
	o.pollParams = nil
	o.mu.Unlock()
	o.projector.ResetPostFetchState()
}

// ResetState is ResetPostFetchState plus a full return to the initial
// session state.
func (o *Orchestrator) ResetState() {
	o.scheduler.Stop()
	o.seq.Add(1)
	o.mu.Lock()
	o.pollParams = nil
	o.mu.Unlock()
	o.projector.ResetState()
}

// SetInitialGasEstimate races a fresh gas probe for one quote's trade
// and stamps the result onto it for fee display.
func (o *Orchestrator) SetInitialGasEstimate(ctx context.Context, aggID string) error {
	snap := o.projector.Snapshot()
	q := snap.Quotes.Get(aggID)
	if q == nil {
		return fmt.Errorf("quoter: initial gas estimate for %q: %w", aggID, domain.ErrNotFound)
	}
	if q.Trade == nil || snap.FetchMeta == nil {
		return nil
	}
	client, err := o.registry.ClientByID(snap.FetchMeta.NetworkClientID)
	if err != nil {
		return fmt.Errorf("quoter: resolve network client: %w", err)
	}
	sim := o.racer.Estimate(ctx, *q.Trade, client, aggID)
	if sim.SimulationFailed {
		return nil
	}
	withRefund := GasEstimateWithRefund(q.MaxGasLimit, q.EstimatedGasRefund, sim.GasLimit)
	o.projector.SetInitialGasEstimate(aggID, sim.GasLimit, withRefund)
	return nil
}

// applyApprovalPolicy decides whether the user must approve the spender
// before trading. When no approval is needed the per-quote approval
// calls are cleared; when one is needed its gas limit is probed once
// (on manual fetches only) and stamped onto every quote.
func (o *Orchestrator) applyApprovalPolicy(
	ctx context.Context,
	quotes domain.QuoteSet,
	params domain.FetchParams,
	client domain.NetworkClient,
	isPolled bool,
) (bool, error) {
	first := quotes[0]
	if first.ApprovalNeeded == nil || first.AggregatorKind == domain.KindWrappedNative {
		for _, q := range quotes {
			q.ApprovalNeeded = nil
		}
		return false, nil
	}

	allowance, err := o.allowance.Allowance(ctx, params.SourceToken, params.FromAddress, client)
	if err != nil {
		return false, fmt.Errorf("quoter: %w: %v", domain.ErrAllowanceRead, err)
	}
	sourceAmount, ok := new(big.Int).SetString(params.SourceAmount, 10)
	if !ok {
		return false, fmt.Errorf("quoter: invalid source amount %q", params.SourceAmount)
	}

	required := allowance.Sign() == 0 || allowance.Cmp(sourceAmount) < 0
	if !required {
		for _, q := range quotes {
			q.ApprovalNeeded = nil
		}
		return false, nil
	}

	// Polled refreshes reuse the approval gas already stamped during
	// the manual fetch.
	if !isPolled {
		sim := o.racer.Estimate(ctx, first.ApprovalNeeded.TradeCall, client, first.AggregatorID)
		gas := DefaultApproveGasLimit
		if !sim.SimulationFailed && sim.GasLimit > 0 {
			gas = sim.GasLimit
		}
		for _, q := range quotes {
			if q.ApprovalNeeded != nil {
				q.ApprovalNeeded.GasLimit = gas
			}
		}
	}
	return true, nil
}

// raceGasEstimates probes every quote's trade concurrently. A quote
// whose probe fails keeps its aggregator-reported gas figures if it
// still carries an approval call, and is dropped otherwise.
func (o *Orchestrator) raceGasEstimates(ctx context.Context, quotes domain.QuoteSet, client domain.NetworkClient) domain.QuoteSet {
	sims := make([]domain.GasSimulation, len(quotes))
	var wg sync.WaitGroup
	for i, q := range quotes {
		if q.Trade == nil {
			sims[i] = domain.GasSimulation{SimulationFailed: true}
			continue
		}
		wg.Add(1)
		go func(i int, q *domain.Quote) {
			defer wg.Done()
			sims[i] = o.racer.Estimate(ctx, *q.Trade, client, q.AggregatorID)
		}(i, q)
	}
	wg.Wait()

	kept := make(domain.QuoteSet, 0, len(quotes))
	for i, q := range quotes {
		sim := sims[i]
		if sim.SimulationFailed {
			if q.ApprovalNeeded != nil {
				kept = append(kept, q)
				continue
			}
			o.logger.Debug("dropping quote after failed gas simulation",
				slog.String("aggregator", q.AggregatorID))
			continue
		}
		estimate := sim.GasLimit
		withRefund := GasEstimateWithRefund(q.MaxGasLimit, q.EstimatedGasRefund, estimate)
		q.GasEstimate = &estimate
		q.GasEstimateWithRefund = &withRefund
		kept = append(kept, q)
	}
	return kept
}

// attachLayer1Fees looks up the rollup data fee for each trade on
// chains that charge one. Lookup failures leave the quote without a
// surcharge rather than failing the cycle.
func (o *Orchestrator) attachLayer1Fees(ctx context.Context, quotes domain.QuoteSet, client domain.NetworkClient) {
	if !chain.HasL1Fee(client.ChainID) || o.l1Fees == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range quotes {
		if q.Trade == nil {
			continue
		}
		q := q
		g.Go(func() error {
			fee, err := o.l1Fees.Layer1Fee(gctx, *q.Trade, client)
			if err != nil {
				o.logger.Warn("layer 1 fee lookup failed",
					slog.String("aggregator", q.AggregatorID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			q.MultiLayerL1FeeTotal = &fee
			return nil
		})
	}
	_ = g.Wait()
}

// gasPriceBasis resolves the wei gas price used for fee math, honoring
// user overrides over provider estimates.
func (o *Orchestrator) gasPriceBasis(ctx context.Context, client domain.NetworkClient) (*big.Int, error) {
	est, err := o.fees.Estimates(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("quoter: fee estimates: %w", err)
	}
	snap := o.projector.Snapshot()

	if est.Type == domain.GasEstimateFeeMarket {
		priority := est.MaxPriorityFeeWei
		if snap.CustomPriorityFee != "" {
			if v, err := numeric.ParseHexWei(snap.CustomPriorityFee); err == nil {
				priority = v
			}
		}
		if priority == nil || est.BaseFeeWei == nil {
			return nil, fmt.Errorf("quoter: incomplete fee market estimate")
		}
		return new(big.Int).Add(priority, est.BaseFeeWei), nil
	}

	if snap.CustomGasPrice != "" {
		if v, err := numeric.ParseHexWei(snap.CustomGasPrice); err == nil {
			return v, nil
		}
	}
	if est.GasPriceWei == nil {
		return nil, fmt.Errorf("quoter: no gas price in estimate")
	}
	return est.GasPriceWei, nil
}

// expire archives the final snapshot and tears the session down to the
// expired state.
func (o *Orchestrator) expire(chainID uint64) {
	snap := o.projector.Snapshot()
	o.projector.ResetPostFetchState()
	o.projector.SetErrorKey(domain.ErrorKeyQuotesExpired)
	o.tracker.Track(eventCycleExpired, map[string]any{"chain_id": chainID})

	if o.archiver == nil || len(snap.Quotes) == 0 {
		return
	}
	payload, err := json.Marshal(snap.Quotes)
	if err != nil {
		o.logger.Error("marshal expired quote snapshot", slog.String("error", err.Error()))
		return
	}
	key := fmt.Sprintf("cycles/%d/%s-expired.json", chainID, snap.QuotesLastFetched.UTC().Format(time.RFC3339))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := o.archiver.ArchiveSnapshot(ctx, key, payload); err != nil {
			o.logger.Error("archive expired quote snapshot",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// persistCycle writes a history record in the background. Failures are
// logged, never surfaced.
func (o *Orchestrator) persistCycle(params domain.FetchParams, chainID uint64, quotes domain.QuoteSet, topAggID string, isPolled bool) {
	if o.history == nil || len(quotes) == 0 {
		return
	}
	rec := domain.CycleRecord{
		CycleID:      uuid.NewString(),
		ChainID:      chainID,
		SourceToken:  params.SourceToken.Hex(),
		DestToken:    params.DestinationToken.Hex(),
		SourceAmount: params.SourceAmount,
		BestAggID:    topAggID,
		QuoteCount:   len(quotes),
		IsPolled:     isPolled,
		CommittedAt:  o.clock.Now(),
	}
	if top := quotes.Get(topAggID); top != nil && top.Savings != nil {
		rec.SavingsTotal = top.Savings.Total
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := o.history.Insert(ctx, rec); err != nil {
			o.logger.Error("persist cycle record",
				slog.String("cycle_id", rec.CycleID),
				slog.String("error", err.Error()),
			)
		}
	}()
}
