package quoter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

var (
	tradeAddr = common.HexToAddress("0x8888888888888888888888888888888888888888")
	fromAddr  = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

type fakeQuoteSource struct {
	mu    sync.Mutex
	calls int
	fetch func(call int) (domain.QuoteSet, error)
}

func (f *fakeQuoteSource) FetchQuotes(ctx context.Context, params domain.FetchParams, chainID uint64) (domain.QuoteSet, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fetch(n)
}

func (f *fakeQuoteSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNetConfigSource struct {
	cfg domain.NetworkConfig
	err error
}

func (f *fakeNetConfigSource) FetchNetworkConfig(ctx context.Context, chainID uint64) (domain.NetworkConfig, error) {
	return f.cfg, f.err
}

type fakeAllowanceReader struct {
	mu     sync.Mutex
	calls  int
	amount *big.Int
	err    error
}

func (f *fakeAllowanceReader) Allowance(ctx context.Context, token, owner common.Address, client domain.NetworkClient) (*big.Int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.amount), nil
}

func (f *fakeAllowanceReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFeeProvider struct {
	est domain.FeeEstimates
	err error
}

func (f *fakeFeeProvider) Estimates(ctx context.Context, client domain.NetworkClient) (domain.FeeEstimates, error) {
	return f.est, f.err
}

type fakePriceTable struct {
	prices map[string]domain.TokenPrice
	err    error
}

func (f *fakePriceTable) MarketData(ctx context.Context, chainID uint64) (map[string]domain.TokenPrice, error) {
	return f.prices, f.err
}

type fakeRegistry struct {
	clients map[string]domain.NetworkClient
}

func (f *fakeRegistry) ClientByID(id string) (domain.NetworkClient, error) {
	c, ok := f.clients[id]
	if !ok {
		return domain.NetworkClient{}, fmt.Errorf("registry: %q: %w", id, domain.ErrUnknownNetworkClient)
	}
	return c, nil
}

type fakeHistoryStore struct {
	records chan domain.CycleRecord
}

func (f *fakeHistoryStore) Insert(ctx context.Context, rec domain.CycleRecord) error {
	select {
	case f.records <- rec:
	default:
	}
	return nil
}

func (f *fakeHistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	return nil, nil
}

type fakeArchiver struct {
	keys chan string
}

func (f *fakeArchiver) ArchiveSnapshot(ctx context.Context, key string, payload []byte) error {
	select {
	case f.keys <- key:
	default:
	}
	return nil
}

// orchFixture wires an Orchestrator over fakes. It doubles as the gas
// probe, dispatching on the call target so trades and approvals can be
// configured independently.
type orchFixture struct {
	source    *fakeQuoteSource
	netCfg    *fakeNetConfigSource
	allowance *fakeAllowanceReader
	fees      *fakeFeeProvider
	prices    *fakePriceTable
	registry  *fakeRegistry
	history   *fakeHistoryStore
	archiver  *fakeArchiver
	tracker   *recordingTracker
	clock     *fakeClock
	projector *Projector
	scheduler *PollScheduler
	orch      *Orchestrator

	mu         sync.Mutex
	probeGas   map[common.Address]uint64
	probeCalls map[common.Address]int
}

func (f *orchFixture) Simulate(ctx context.Context, call domain.TradeCall, client domain.NetworkClient) (domain.GasSimulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls[call.To]++
	gas, ok := f.probeGas[call.To]
	if !ok {
		return domain.GasSimulation{SimulationFailed: true}, errors.New("execution reverted")
	}
	return domain.GasSimulation{GasLimit: gas}, nil
}

func (f *orchFixture) setProbeGas(to common.Address, gas uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeGas[to] = gas
}

func (f *orchFixture) failProbe(to common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.probeGas, to)
}

func (f *orchFixture) probeCallCount(to common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeCalls[to]
}

func newOrchFixture(t *testing.T) *orchFixture {
	t.Helper()
	f := &orchFixture{
		source: &fakeQuoteSource{fetch: func(int) (domain.QuoteSet, error) {
			return domain.QuoteSet{
				orchQuote("AGG1", "20295000000000000000"),
				orchQuote("AGG2", "19998000000000000000"),
			}, nil
		}},
		netCfg: &fakeNetConfigSource{cfg: domain.NetworkConfig{
			QuoteRefreshMillis:            30_000,
			QuotePrefetchingRefreshMillis: 45_000,
			StxGetTransactionsMillis:      10_000,
			StxBatchStatusMillis:          10_000,
			StxStatusDeadline:             160,
			StxMaxFeeMultiplier:           2,
		}},
		allowance: &fakeAllowanceReader{amount: new(big.Int).Lsh(big.NewInt(1), 128)},
		fees: &fakeFeeProvider{est: domain.FeeEstimates{
			Type:        domain.GasEstimateLegacy,
			GasPriceWei: big.NewInt(100_000_000_000),
		}},
		prices: &fakePriceTable{prices: testMarketData},
		registry: &fakeRegistry{clients: map[string]domain.NetworkClient{
			"mainnet":     {ID: "mainnet", ChainID: 1, RPCURL: "http://localhost:8545"},
			"unsupported": {ID: "unsupported", ChainID: 999},
		}},
		history:    &fakeHistoryStore{records: make(chan domain.CycleRecord, 16)},
		archiver:   &fakeArchiver{keys: make(chan string, 16)},
		tracker:    newRecordingTracker(),
		clock:      newFakeClock(),
		projector:  NewProjector(),
		probeGas:   map[common.Address]uint64{tradeAddr: 400_000, testSourceToken: 55_000},
		probeCalls: map[common.Address]int{},
	}
	f.scheduler = NewPollScheduler(f.clock)
	f.orch = NewOrchestrator(OrchestratorDeps{
		Source:    f.source,
		NetConfig: f.netCfg,
		Allowance: f.allowance,
		Racer:     NewGasRacer(f, f.tracker, f.clock, testLogger()),
		Fees:      f.fees,
		Prices:    f.prices,
		Registry:  f.registry,
		Selector:  NewSelector(testLogger()),
		Scheduler: f.scheduler,
		Projector: f.projector,
		Tracker:   f.tracker,
		History:   f.history,
		Archiver:  f.archiver,
		Clock:     f.clock,
		Logger:    testLogger(),
	})
	return f
}

// orchQuote is a fixture quote whose trade targets the shared router
// address the fake probe knows about.
func orchQuote(aggID, destAmount string) *domain.Quote {
	q := rankQuote(aggID, destAmount)
	q.Trade.To = tradeAddr
	return q
}

func withApproval(q *domain.Quote) *domain.Quote {
	q.ApprovalNeeded = &domain.ApprovalCall{
		TradeCall: domain.TradeCall{To: testSourceToken, From: fromAddr},
	}
	return q
}

func fetchArgs() (domain.FetchParams, domain.FetchMeta) {
	params := domain.FetchParams{
		Slippage:         2,
		SourceToken:      testSourceToken,
		DestinationToken: testDestToken,
		SourceAmount:     "10000000000000000000",
		SourceDecimals:   18,
		FromAddress:      fromAddr,
	}
	meta := domain.FetchMeta{
		NetworkClientID:      "mainnet",
		SourceTokenInfo:      domain.TokenInfo{Address: testSourceToken, Symbol: "SRC", Decimals: 18},
		DestinationTokenInfo: domain.TokenInfo{Address: testDestToken, Symbol: "FOO", Decimals: 18},
	}
	return params, meta
}

func TestOrchestratorManualFetchCommits(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Equal(t, "AGG1", topAggID)
	require.Len(t, quotes, 2)

	top := quotes.Get("AGG1")
	require.NotNil(t, top)
	require.NotNil(t, top.GasEstimate)
	assert.Equal(t, uint64(400_000), *top.GasEstimate)
	assert.Equal(t, "0.04", top.EthFee)
	assert.True(t, top.IsBestQuote)

	state := f.projector.Snapshot()
	assert.Equal(t, []string{"AGG1", "AGG2"}, state.Quotes.IDs())
	assert.Equal(t, "AGG1", state.TopAggID)
	assert.Empty(t, state.ErrorKey)
	assert.Equal(t, f.clock.Now(), state.QuotesLastFetched)
	assert.Equal(t, int64(30_000), state.NetworkConfig.QuoteRefreshMillis)

	// Polling limit disabled, so the prefetching cadence applies.
	require.True(t, f.scheduler.TimerArmed())
	assert.Equal(t, 45*time.Second, f.clock.lastTimer().d)

	assert.Contains(t, f.tracker.eventNames(), "quote_cycle_committed")

	select {
	case rec := <-f.history.records:
		assert.Equal(t, "AGG1", rec.BestAggID)
		assert.Equal(t, uint64(1), rec.ChainID)
		assert.Equal(t, 2, rec.QuoteCount)
		assert.False(t, rec.IsPolled)
		assert.NotEmpty(t, rec.SavingsTotal)
	case <-time.After(time.Second):
		t.Fatal("cycle record never persisted")
	}
}

func TestOrchestratorNilParamsIsNoOp(t *testing.T) {
	f := newOrchFixture(t)
	_, meta := fetchArgs()

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), nil, meta, true)
	require.NoError(t, err)
	assert.Nil(t, quotes)
	assert.Empty(t, topAggID)
	assert.Zero(t, f.source.callCount())
}

func TestOrchestratorRejectsUnknownClientAndChain(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	meta.NetworkClientID = "nope"
	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	assert.ErrorIs(t, err, domain.ErrUnknownNetworkClient)

	meta.NetworkClientID = "unsupported"
	_, _, err = f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestOrchestratorStaleFetchIsDiscarded(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	gate := make(chan struct{})
	f.source.fetch = func(call int) (domain.QuoteSet, error) {
		if call == 1 {
			<-gate
			return domain.QuoteSet{orchQuote("OLD", "20295000000000000000")}, nil
		}
		return domain.QuoteSet{orchQuote("NEW", "20295000000000000000")}, nil
	}

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.source.callCount() == 1 }, time.Second, time.Millisecond)

	_, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	assert.Equal(t, "NEW", topAggID)

	close(gate)
	assert.ErrorIs(t, <-firstErr, domain.ErrStaleFetch)
	assert.Equal(t, []string{"NEW"}, f.projector.Snapshot().Quotes.IDs())
}

func TestOrchestratorDiscardsWhenSavingDisabled(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.projector.SetSaveFetchedQuotes(false)

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	assert.Nil(t, quotes)
	assert.Empty(t, topAggID)
	assert.Empty(t, f.projector.Snapshot().Quotes)
	assert.False(t, f.scheduler.TimerArmed())
}

func TestOrchestratorApprovalRequiredStampsProbedGas(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.amount = big.NewInt(0)
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{
			withApproval(orchQuote("AGG1", "20295000000000000000")),
			withApproval(orchQuote("AGG2", "19998000000000000000")),
		}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	for _, q := range quotes {
		require.NotNil(t, q.ApprovalNeeded, q.AggregatorID)
		assert.Equal(t, uint64(55_000), q.ApprovalNeeded.GasLimit, q.AggregatorID)
		assert.Nil(t, q.GasEstimate, q.AggregatorID)
	}
	// One probe for the shared approval; unapproved trades would only
	// revert, so they are never simulated.
	assert.Equal(t, 1, f.probeCallCount(testSourceToken))
	assert.Zero(t, f.probeCallCount(tradeAddr))
}

func TestOrchestratorSufficientAllowanceClearsApprovals(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{withApproval(orchQuote("AGG1", "20295000000000000000"))}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Nil(t, quotes.Get("AGG1").ApprovalNeeded)
	assert.Zero(t, f.probeCallCount(testSourceToken))
}

func TestOrchestratorPartialAllowanceStillRequiresApproval(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.amount = big.NewInt(1) // below the source amount
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{withApproval(orchQuote("AGG1", "20295000000000000000"))}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	require.NotNil(t, quotes.Get("AGG1").ApprovalNeeded)
	assert.Equal(t, uint64(55_000), quotes.Get("AGG1").ApprovalNeeded.GasLimit)
}

func TestOrchestratorWrappedNativeSkipsAllowanceCheck(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		q := withApproval(orchQuote("WRAP", "20295000000000000000"))
		q.AggregatorKind = domain.KindWrappedNative
		return domain.QuoteSet{q}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Nil(t, quotes.Get("WRAP").ApprovalNeeded)
	assert.Zero(t, f.allowance.callCount())
}

func TestOrchestratorApprovalProbeFailureUsesFallbackGas(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.amount = big.NewInt(0)
	f.failProbe(testSourceToken)
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{withApproval(orchQuote("AGG1", "20295000000000000000"))}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	require.NotNil(t, quotes.Get("AGG1").ApprovalNeeded)
	assert.Equal(t, DefaultApproveGasLimit, quotes.Get("AGG1").ApprovalNeeded.GasLimit)
}

func TestOrchestratorPolledFetchKeepsStampedApprovalGas(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.amount = big.NewInt(0)
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		q := withApproval(orchQuote("AGG1", "20295000000000000000"))
		q.ApprovalNeeded.GasLimit = 77_000
		return domain.QuoteSet{q}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, true)
	require.NoError(t, err)

	require.NotNil(t, quotes.Get("AGG1").ApprovalNeeded)
	assert.Equal(t, uint64(77_000), quotes.Get("AGG1").ApprovalNeeded.GasLimit)
	assert.Zero(t, f.probeCallCount(testSourceToken))
}

func TestOrchestratorAllowanceReadFailureFailsCycle(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.err = errors.New("rpc unreachable")
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{withApproval(orchQuote("AGG1", "20295000000000000000"))}, nil
	}

	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	assert.ErrorIs(t, err, domain.ErrAllowanceRead)
}

func TestOrchestratorDropsQuotesWithFailedSimulation(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	badAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		bad := orchQuote("BAD", "99000000000000000000")
		bad.Trade.To = badAddr
		return domain.QuoteSet{orchQuote("AGG1", "20295000000000000000"), bad}, nil
	}

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Equal(t, "AGG1", topAggID)
	assert.Equal(t, []string{"AGG1"}, quotes.IDs())
}

func TestOrchestratorApprovalPendingKeepsUnsimulatedQuotes(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.allowance.amount = big.NewInt(0)
	badAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		bad := withApproval(orchQuote("BAD", "19998000000000000000"))
		bad.Trade.To = badAddr
		return domain.QuoteSet{withApproval(orchQuote("AGG1", "20295000000000000000")), bad}, nil
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	// Every quote survives, even one whose probe would revert, because
	// no trade is simulated while approval is pending.
	require.Equal(t, []string{"AGG1", "BAD"}, quotes.IDs())
	assert.Nil(t, quotes.Get("BAD").GasEstimate)
	assert.Nil(t, quotes.Get("AGG1").GasEstimate)
	assert.Zero(t, f.probeCallCount(tradeAddr))
	assert.Zero(t, f.probeCallCount(badAddr))
}

func TestOrchestratorBalanceErrorSkipsGasProbes(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	params.BalanceError = true
	// Any probe would revert against an underfunded account.
	f.failProbe(tradeAddr)

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	require.Equal(t, []string{"AGG1", "AGG2"}, quotes.IDs())
	assert.Equal(t, "AGG1", topAggID)
	assert.Zero(t, f.probeCallCount(tradeAddr))
	top := quotes.Get("AGG1")
	assert.Nil(t, top.GasEstimate)
	// Fee math falls back to the aggregator-reported gas figures.
	assert.Equal(t, "0.25", top.EthFee)
}

func TestOrchestratorEmptyResultSetsErrorKey(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.source.fetch = func(int) (domain.QuoteSet, error) {
		return domain.QuoteSet{}, nil
	}

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Empty(t, quotes)
	assert.Empty(t, topAggID)
	assert.Equal(t, domain.ErrorKeyQuotesNotAvailable, f.projector.Snapshot().ErrorKey)
}

func TestOrchestratorMissingMarketDataCommitsWithoutSavings(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.prices.err = errors.New("price api down")

	quotes, topAggID, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	assert.Equal(t, "AGG1", topAggID)
	top := quotes.Get("AGG1")
	assert.False(t, top.IsBestQuote)
	assert.Nil(t, top.Savings)
	assert.Equal(t, "0.04", top.EthFee)
}

func TestOrchestratorCustomGasPriceOverridesEstimate(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.projector.SetCustomGasPrice("0x2e90edd000") // 200 gwei

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	assert.Equal(t, "0.08", quotes.Get("AGG1").EthFee)
}

func TestOrchestratorFeeMarketBasisSumsTipAndBaseFee(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.fees.est = domain.FeeEstimates{
		Type:              domain.GasEstimateFeeMarket,
		MaxPriorityFeeWei: big.NewInt(2_000_000_000),
		BaseFeeWei:        big.NewInt(98_000_000_000),
	}

	quotes, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	assert.Equal(t, "0.04", quotes.Get("AGG1").EthFee)
}

func TestOrchestratorPollingLimitExpiry(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()
	f.projector.SetPollingLimitEnabled(true)

	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)
	require.True(t, f.scheduler.TimerArmed())
	assert.Equal(t, 30*time.Second, f.clock.lastTimer().d)

	// The allowed polled refreshes, then one more that expires.
	for i := 0; i < PollCountLimit-1; i++ {
		f.clock.lastTimer().fire()
		require.True(t, f.scheduler.TimerArmed(), "poll %d", i)
	}
	f.clock.lastTimer().fire()

	state := f.projector.Snapshot()
	assert.Equal(t, domain.ErrorKeyQuotesExpired, state.ErrorKey)
	assert.Empty(t, state.Quotes)
	assert.False(t, f.scheduler.TimerArmed())
	assert.Contains(t, f.tracker.eventNames(), "quote_cycle_expired")

	select {
	case key := <-f.archiver.keys:
		assert.True(t, strings.HasPrefix(key, "cycles/1/"), key)
		assert.True(t, strings.HasSuffix(key, "-expired.json"), key)
	case <-time.After(time.Second):
		t.Fatal("expired snapshot never archived")
	}
}

func TestOrchestratorSafeRefetch(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	// No previous fetch, nothing to refetch.
	f.orch.SafeRefetchQuotes()
	assert.Zero(t, f.source.callCount())

	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	// Timer armed, refetch declined.
	f.orch.SafeRefetchQuotes()
	assert.Equal(t, 1, f.source.callCount())

	f.orch.StopPolling()
	f.orch.SafeRefetchQuotes()
	require.Eventually(t, func() bool { return f.source.callCount() == 2 }, time.Second, time.Millisecond)
}

func TestOrchestratorResetClearsPollParams(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	f.orch.ResetPostFetchState()
	assert.False(t, f.scheduler.TimerArmed())
	assert.Empty(t, f.projector.Snapshot().Quotes)

	f.orch.SafeRefetchQuotes()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, f.source.callCount())
}

func TestOrchestratorSetInitialGasEstimate(t *testing.T) {
	f := newOrchFixture(t)
	params, meta := fetchArgs()

	_, _, err := f.orch.FetchAndSetQuotes(context.Background(), &params, meta, false)
	require.NoError(t, err)

	f.setProbeGas(tradeAddr, 450_000)
	require.NoError(t, f.orch.SetInitialGasEstimate(context.Background(), "AGG1"))

	q := f.projector.Snapshot().Quotes.Get("AGG1")
	require.NotNil(t, q.GasEstimate)
	assert.Equal(t, uint64(450_000), *q.GasEstimate)
	assert.Equal(t, uint64(450_000), *q.GasEstimateWithRefund)

	err = f.orch.SetInitialGasEstimate(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
