package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/quoter"
)

// QuotesHandler exposes the quote session over HTTP.
type QuotesHandler struct {
	svc    *quoter.Service
	logger *slog.Logger
}

func NewQuotesHandler(svc *quoter.Service, logger *slog.Logger) *QuotesHandler {
	return &QuotesHandler{svc: svc, logger: logger}
}

// fetchRequest is the body of a fetch call: the swap intent plus its
// network and token metadata.
type fetchRequest struct {
	Params domain.FetchParams `json:"params"`
	Meta   domain.FetchMeta   `json:"meta"`
}

// FetchQuotes runs a manual fetch cycle and returns the committed
// quotes.
// POST /api/quotes/fetch
func (h *QuotesHandler) FetchQuotes(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Meta.NetworkClientID == "" {
		writeError(w, http.StatusBadRequest, "meta.networkClientId is required")
		return
	}
	if req.Params.SourceAmount == "" {
		writeError(w, http.StatusBadRequest, "params.sourceAmount is required")
		return
	}

	quotes, topAggID, err := h.svc.FetchAndSetQuotes(r.Context(), req.Params, req.Meta)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStaleFetch):
			writeError(w, http.StatusConflict, "superseded by a newer fetch")
		case errors.Is(err, domain.ErrUnknownNetworkClient):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnsupportedChain):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("fetch quotes failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "quote fetch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"quotes":   quotes,
		"topAggId": topAggID,
	})
}

// GetState returns the session state snapshot.
// GET /api/quotes/state
func (h *QuotesHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State())
}

// TopQuote returns the best-value quote with its savings annotations.
// GET /api/quotes/top
func (h *QuotesHandler) TopQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := h.svc.TopQuoteWithSavings()
	if !ok {
		writeError(w, http.StatusNotFound, "no quotes held")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// ClearQuotes drops the held quote set without resetting the session.
// DELETE /api/quotes
func (h *QuotesHandler) ClearQuotes(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearQuotes()
	w.WriteHeader(http.StatusNoContent)
}

// Refresh triggers an opportunistic polled refresh.
// POST /api/quotes/refresh
func (h *QuotesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.svc.SafeRefetchQuotes()
	w.WriteHeader(http.StatusAccepted)
}

// StopPolling cancels the background refresh loop.
// POST /api/quotes/stop
func (h *QuotesHandler) StopPolling(w http.ResponseWriter, r *http.Request) {
	h.svc.StopPollingForQuotes()
	w.WriteHeader(http.StatusNoContent)
}

// Reset clears quote results. With {"keepInputs": true} the fetch
// params and tokens survive.
// POST /api/quotes/reset
func (h *QuotesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KeepInputs bool `json:"keepInputs"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.KeepInputs {
		h.svc.ResetPostFetchState()
	} else {
		h.svc.ResetState()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select records the user's chosen quote and refreshes its gas
// estimate.
// POST /api/quotes/select
func (h *QuotesHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AggID string `json:"aggId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AggID == "" {
		writeError(w, http.StatusBadRequest, "aggId is required")
		return
	}
	if h.svc.State().Quotes.Get(req.AggID) == nil {
		writeError(w, http.StatusNotFound, "no quote for aggregator "+req.AggID)
		return
	}

	h.svc.SetSelectedQuoteAggID(req.AggID)
	if err := h.svc.SetInitialGasEstimate(r.Context(), req.AggID); err != nil {
		h.logger.Warn("initial gas estimate failed",
			slog.String("agg_id", req.AggID),
			slog.String("error", err.Error()),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// preferencesRequest carries the optional session settings; only the
// fields present in the body are applied.
type preferencesRequest struct {
	PollingLimitEnabled *bool    `json:"quotesPollingLimitEnabled"`
	SaveFetchedQuotes   *bool    `json:"saveFetchedQuotes"`
	CustomGasPrice      *string  `json:"customGasPrice"`
	CustomMaxFeePerGas  *string  `json:"customMaxFeePerGas"`
	CustomPriorityFee   *string  `json:"customMaxPriorityFeePerGas"`
	CustomMaxGas        *uint64  `json:"customMaxGas"`
	CustomApproveTxData *string  `json:"customApproveTxData"`
	UserFeeLevel        *string  `json:"swapsUserFeeLevel"`
	RouteState          *string  `json:"routeState"`
	ApproveTxID         *string  `json:"approveTxId"`
	TradeTxID           *string  `json:"tradeTxId"`
	Tokens              []string `json:"tokens"`
	FeatureLive         *bool    `json:"featureIsLive"`
}

// UpdatePreferences applies session settings.
// PATCH /api/quotes/preferences
func (h *QuotesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.PollingLimitEnabled != nil {
		h.svc.SetQuotesPollingLimitEnabled(*req.PollingLimitEnabled)
	}
	if req.SaveFetchedQuotes != nil {
		h.svc.SetSaveFetchedQuotes(*req.SaveFetchedQuotes)
	}
	if req.CustomGasPrice != nil {
		h.svc.SetCustomGasPrice(*req.CustomGasPrice)
	}
	if req.CustomMaxFeePerGas != nil {
		h.svc.SetCustomMaxFeePerGas(*req.CustomMaxFeePerGas)
	}
	if req.CustomPriorityFee != nil {
		h.svc.SetCustomPriorityFee(*req.CustomPriorityFee)
	}
	if req.CustomMaxGas != nil {
		h.svc.SetCustomMaxGas(*req.CustomMaxGas)
	}
	if req.CustomApproveTxData != nil {
		h.svc.SetCustomApproveTxData(*req.CustomApproveTxData)
	}
	if req.UserFeeLevel != nil {
		h.svc.SetUserFeeLevel(*req.UserFeeLevel)
	}
	if req.RouteState != nil {
		h.svc.SetRouteState(*req.RouteState)
	}
	if req.ApproveTxID != nil {
		h.svc.SetApproveTxID(*req.ApproveTxID)
	}
	if req.TradeTxID != nil {
		h.svc.SetTradeTxID(*req.TradeTxID)
	}
	if req.Tokens != nil {
		h.svc.SetTokens(req.Tokens)
	}
	if req.FeatureLive != nil {
		h.svc.SetFeatureLive(*req.FeatureLive)
	}
	w.WriteHeader(http.StatusNoContent)
}

// History lists recent committed fetch cycles.
// GET /api/quotes/history
func (h *QuotesHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)
	recs, err := h.svc.RecentCycles(r.Context(), limit)
	if err != nil {
		h.logger.Error("list cycle history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if recs == nil {
		recs = []domain.CycleRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
