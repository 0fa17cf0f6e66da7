package quoter

import (
	"sync"
	"time"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// Projector is the single owner of the session state. All mutation goes
// through its semantic methods; readers only ever get deep copies, so a
// snapshot can never alias a quote that a later cycle mutates.
type Projector struct {
	mu       sync.RWMutex
	state    domain.SwapsState
	onChange func(domain.SwapsState)
}

func NewProjector() *Projector {
	return &Projector{state: domain.InitialSwapsState()}
}

// OnChange registers the observer notified with a snapshot after every
// mutation. Must be set before the projector is shared across
// goroutines.
func (p *Projector) OnChange(fn func(domain.SwapsState)) {
	p.onChange = fn
}

// Snapshot returns a deep copy of the current state.
func (p *Projector) Snapshot() domain.SwapsState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Clone()
}

func (p *Projector) mutate(fn func(*domain.SwapsState)) {
	p.mu.Lock()
	fn(&p.state)
	snap := p.state.Clone()
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange(snap)
	}
}

// BeginFetch records the intent of a new fetch cycle. A manual fetch
// also clears any prior error key.
func (p *Projector) BeginFetch(params domain.FetchParams, meta domain.FetchMeta, manual bool) {
	p.mutate(func(s *domain.SwapsState) {
		s.FetchParams = &params
		s.FetchMeta = &meta
		if manual {
			s.ErrorKey = ""
		}
	})
}

// CommitQuotes replaces the quote set with the outcome of a cycle. The
// user's selection survives a polled refresh as long as the selected
// aggregator is still quoting.
func (p *Projector) CommitQuotes(quotes domain.QuoteSet, topAggID string, fetchedAt time.Time) {
	p.mutate(func(s *domain.SwapsState) {
		s.Quotes = quotes
		s.TopAggID = topAggID
		s.QuotesLastFetched = fetchedAt
		s.ErrorKey = ""
		if s.SelectedAggID != "" && quotes.Get(s.SelectedAggID) == nil {
			s.SelectedAggID = ""
		}
	})
}

// ClearQuotes drops the current quote set and any selection without
// touching the rest of the session.
func (p *Projector) ClearQuotes() {
	p.mutate(func(s *domain.SwapsState) {
		s.Quotes = domain.QuoteSet{}
		s.TopAggID = ""
		s.SelectedAggID = ""
	})
}

// TopQuote returns a copy of the best-value quote from the last
// committed cycle. The second return is false when no cycle has
// committed or the top aggregator is gone.
func (p *Projector) TopQuote() (domain.Quote, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q := p.state.Quotes.Get(p.state.TopAggID)
	if q == nil {
		return domain.Quote{}, false
	}
	return *q.Clone(), true
}

// SetErrorKey records a user-facing error condition.
func (p *Projector) SetErrorKey(key string) {
	p.mutate(func(s *domain.SwapsState) { s.ErrorKey = key })
}

// SetSelectedAggID records which quote the user picked. An empty id
// clears the selection.
func (p *Projector) SetSelectedAggID(id string) {
	p.mutate(func(s *domain.SwapsState) { s.SelectedAggID = id })
}

// SetInitialGasEstimate stamps a simulated gas limit onto the selected
// quote, replacing the aggregator's static figures for fee display.
func (p *Projector) SetInitialGasEstimate(aggID string, estimate, withRefund uint64) {
	p.mutate(func(s *domain.SwapsState) {
		q := s.Quotes.Get(aggID)
		if q == nil {
			return
		}
		e, r := estimate, withRefund
		q.GasEstimate = &e
		q.GasEstimateWithRefund = &r
	})
}

func (p *Projector) SetCustomGasPrice(hexWei string) {
	p.mutate(func(s *domain.SwapsState) { s.CustomGasPrice = hexWei })
}

func (p *Projector) SetCustomMaxFeePerGas(hexWei string) {
	p.mutate(func(s *domain.SwapsState) { s.CustomMaxFeePerGas = hexWei })
}

func (p *Projector) SetCustomPriorityFee(hexWei string) {
	p.mutate(func(s *domain.SwapsState) { s.CustomPriorityFee = hexWei })
}

func (p *Projector) SetCustomMaxGas(gas uint64) {
	p.mutate(func(s *domain.SwapsState) { s.CustomMaxGas = gas })
}

func (p *Projector) SetCustomApproveTxData(data string) {
	p.mutate(func(s *domain.SwapsState) { s.CustomApproveTxData = data })
}

func (p *Projector) SetUserFeeLevel(level string) {
	p.mutate(func(s *domain.SwapsState) { s.UserFeeLevel = level })
}

func (p *Projector) SetPollingLimitEnabled(enabled bool) {
	p.mutate(func(s *domain.SwapsState) { s.PollingLimitEnabled = enabled })
}

func (p *Projector) SetSaveFetchedQuotes(save bool) {
	p.mutate(func(s *domain.SwapsState) { s.SaveFetchedQuotes = save })
}

// SaveFetchedQuotes reports whether an in-flight fetch may still commit.
func (p *Projector) SaveFetchedQuotes() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.SaveFetchedQuotes
}

func (p *Projector) SetTokens(tokens []string) {
	p.mutate(func(s *domain.SwapsState) {
		s.Tokens = append([]string(nil), tokens...)
	})
}

func (p *Projector) SetFeatureFlags(flags map[string]bool) {
	p.mutate(func(s *domain.SwapsState) {
		s.FeatureFlags = make(map[string]bool, len(flags))
		for k, v := range flags {
			s.FeatureFlags[k] = v
		}
	})
}

func (p *Projector) SetFeatureLive(live bool) {
	p.mutate(func(s *domain.SwapsState) { s.FeatureLive = live })
}

func (p *Projector) SetRouteState(route string) {
	p.mutate(func(s *domain.SwapsState) { s.RouteState = route })
}

func (p *Projector) SetApproveTxID(id string) {
	p.mutate(func(s *domain.SwapsState) { s.ApproveTxID = id })
}

func (p *Projector) SetTradeTxID(id string) {
	p.mutate(func(s *domain.SwapsState) { s.TradeTxID = id })
}

func (p *Projector) SetNetworkConfig(cfg domain.NetworkConfig) {
	p.mutate(func(s *domain.SwapsState) { s.NetworkConfig = cfg })
}

// NetworkConfig returns the active refresh and smart-transaction
// parameters.
func (p *Projector) NetworkConfig() domain.NetworkConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.NetworkConfig
}

// ResetPostFetchState drops quote results while keeping the inputs a
// user would expect to survive: tokens, fetch params, feature flags,
// liveness, the polling limit flag, and the current network config.
func (p *Projector) ResetPostFetchState() {
	p.mutate(func(s *domain.SwapsState) {
		next := domain.InitialSwapsState()
		next.Tokens = s.Tokens
		next.FetchParams = s.FetchParams
		next.FetchMeta = s.FetchMeta
		next.FeatureFlags = s.FeatureFlags
		next.FeatureLive = s.FeatureLive
		next.PollingLimitEnabled = s.PollingLimitEnabled
		next.NetworkConfig = s.NetworkConfig
		*s = next
	})
}

// ResetState restores the initial state, keeping the feature flags and
// the network config, which are refreshed on their own cadence.
func (p *Projector) ResetState() {
	p.mutate(func(s *domain.SwapsState) {
		next := domain.InitialSwapsState()
		next.FeatureFlags = s.FeatureFlags
		next.NetworkConfig = s.NetworkConfig
		*s = next
	})
}
