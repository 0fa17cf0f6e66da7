// Package quoter implements the swap quote session: fetch cycles,
// gas estimation races, approval policy, best-quote selection, and the
// bounded poll loop that keeps quotes fresh.
package quoter

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// Service is the application-facing surface over the quote session.
// It is safe for concurrent use.
type Service struct {
	orch      *Orchestrator
	projector *Projector
	history   domain.CycleHistoryStore
	logger    *slog.Logger
}

func NewService(orch *Orchestrator, projector *Projector, history domain.CycleHistoryStore, logger *slog.Logger) *Service {
	return &Service{orch: orch, projector: projector, history: history, logger: logger}
}

// State returns a snapshot of the session.
func (s *Service) State() domain.SwapsState {
	return s.projector.Snapshot()
}

// FetchAndSetQuotes starts a manual fetch cycle and returns the
// committed quotes and the top aggregator id.
func (s *Service) FetchAndSetQuotes(ctx context.Context, params domain.FetchParams, meta domain.FetchMeta) (domain.QuoteSet, string, error) {
	return s.orch.FetchAndSetQuotes(ctx, &params, meta, false)
}

// SafeRefetchQuotes refreshes quotes only when no refresh is already
// pending.
func (s *Service) SafeRefetchQuotes() {
	s.orch.SafeRefetchQuotes()
}

// StopPollingForQuotes cancels the background refresh loop.
func (s *Service) StopPollingForQuotes() {
	s.orch.StopPolling()
}

// ResetPostFetchState drops quote results but keeps the session inputs.
func (s *Service) ResetPostFetchState() {
	s.orch.ResetPostFetchState()
}

// ResetState returns the whole session to its initial state.
func (s *Service) ResetState() {
	s.orch.ResetState()
}

// ClearQuotes drops the held quote set and selection without resetting
// the rest of the session.
func (s *Service) ClearQuotes() {
	s.projector.ClearQuotes()
}

// TopQuoteWithSavings returns the best-value quote from the last
// committed cycle with its savings annotations; ok is false when no
// quotes are held.
func (s *Service) TopQuoteWithSavings() (domain.Quote, bool) {
	return s.projector.TopQuote()
}

// SetSelectedQuoteAggID records the user's chosen quote.
func (s *Service) SetSelectedQuoteAggID(id string) {
	s.projector.SetSelectedAggID(id)
}

// SetInitialGasEstimate probes and stamps a fresh gas limit for one
// quote.
func (s *Service) SetInitialGasEstimate(ctx context.Context, aggID string) error {
	return s.orch.SetInitialGasEstimate(ctx, aggID)
}

func (s *Service) SetCustomGasPrice(hexWei string)     { s.projector.SetCustomGasPrice(hexWei) }
func (s *Service) SetCustomMaxFeePerGas(hexWei string) { s.projector.SetCustomMaxFeePerGas(hexWei) }
func (s *Service) SetCustomPriorityFee(hexWei string)  { s.projector.SetCustomPriorityFee(hexWei) }
func (s *Service) SetCustomMaxGas(gas uint64)          { s.projector.SetCustomMaxGas(gas) }
func (s *Service) SetCustomApproveTxData(data string)  { s.projector.SetCustomApproveTxData(data) }
func (s *Service) SetUserFeeLevel(level string)        { s.projector.SetUserFeeLevel(level) }

// SetQuotesPollingLimitEnabled toggles the bounded polling window.
func (s *Service) SetQuotesPollingLimitEnabled(enabled bool) {
	s.projector.SetPollingLimitEnabled(enabled)
}

// SetSaveFetchedQuotes, when cleared, makes any in-flight fetch discard
// its result instead of committing.
func (s *Service) SetSaveFetchedQuotes(save bool) {
	s.projector.SetSaveFetchedQuotes(save)
}

func (s *Service) SetTokens(tokens []string)             { s.projector.SetTokens(tokens) }
func (s *Service) SetFeatureFlags(flags map[string]bool) { s.projector.SetFeatureFlags(flags) }
func (s *Service) SetFeatureLive(live bool)              { s.projector.SetFeatureLive(live) }
func (s *Service) SetRouteState(route string)            { s.projector.SetRouteState(route) }
func (s *Service) SetApproveTxID(id string)              { s.projector.SetApproveTxID(id) }
func (s *Service) SetTradeTxID(id string)                { s.projector.SetTradeTxID(id) }

// RecentCycles lists the latest committed fetch cycles, newest first.
func (s *Service) RecentCycles(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRecent(ctx, limit)
}
