package domain

import "time"

// SwapsState is the committed per-session state, exposed read-only to
// observers. It is not a durable on-disk format; persistence of cycle
// history is a separate concern handled by the history store.
type SwapsState struct {
	Quotes            QuoteSet     `json:"quotes"`
	FetchParams       *FetchParams `json:"fetchParams"`
	FetchMeta         *FetchMeta   `json:"fetchMeta"`
	QuotesLastFetched time.Time    `json:"quotesLastFetched"`

	SelectedAggID string `json:"selectedAggId"`
	TopAggID      string `json:"topAggId"`
	ErrorKey      string `json:"errorKey"`

	// Custom fee overrides; hex wei strings, empty when unset.
	CustomGasPrice      string `json:"customGasPrice"`
	CustomMaxFeePerGas  string `json:"customMaxFeePerGas"`
	CustomPriorityFee   string `json:"customMaxPriorityFeePerGas"`
	CustomMaxGas        uint64 `json:"customMaxGas"`
	CustomApproveTxData string `json:"customApproveTxData"`
	UserFeeLevel        string `json:"swapsUserFeeLevel"`

	PollingLimitEnabled bool `json:"quotesPollingLimitEnabled"`

	// SaveFetchedQuotes is cleared when the user leaves the session; an
	// in-flight fetch observing it cleared discards its result.
	SaveFetchedQuotes bool `json:"saveFetchedQuotes"`

	Tokens       []string        `json:"tokens"`
	FeatureFlags map[string]bool `json:"featureFlags"`
	FeatureLive  bool            `json:"featureIsLive"`

	RouteState  string `json:"routeState"`
	ApproveTxID string `json:"approveTxId"`
	TradeTxID   string `json:"tradeTxId"`

	NetworkConfig NetworkConfig `json:"networkConfig"`
}

// DefaultNetworkConfig holds the fallbacks used when the network config
// fetch fails or has not completed yet.
var DefaultNetworkConfig = NetworkConfig{
	QuoteRefreshMillis:            60_000,
	QuotePrefetchingRefreshMillis: 60_000,
	StxGetTransactionsMillis:      10_000,
	StxBatchStatusMillis:          10_000,
	StxStatusDeadline:             160,
	StxMaxFeeMultiplier:           2,
}

// InitialSwapsState returns the zero session state.
func InitialSwapsState() SwapsState {
	return SwapsState{
		Quotes:            QuoteSet{},
		SaveFetchedQuotes: true,
		FeatureFlags:      map[string]bool{},
		NetworkConfig:     DefaultNetworkConfig,
	}
}

// Clone deep-copies the state so observers never alias committed quotes.
func (s SwapsState) Clone() SwapsState {
	cp := s
	cp.Quotes = s.Quotes.Clone()
	if s.FetchParams != nil {
		p := *s.FetchParams
		p.ExchangeList = append([]string(nil), s.FetchParams.ExchangeList...)
		cp.FetchParams = &p
	}
	if s.FetchMeta != nil {
		m := *s.FetchMeta
		cp.FetchMeta = &m
	}
	cp.Tokens = append([]string(nil), s.Tokens...)
	cp.FeatureFlags = make(map[string]bool, len(s.FeatureFlags))
	for k, v := range s.FeatureFlags {
		cp.FeatureFlags[k] = v
	}
	return cp
}

// CycleRecord is one committed fetch cycle, persisted for diagnostics.
type CycleRecord struct {
	CycleID      string
	ChainID      uint64
	SourceToken  string
	DestToken    string
	SourceAmount string
	BestAggID    string
	QuoteCount   int
	SavingsTotal string
	IsPolled     bool
	CommittedAt  time.Time
}
