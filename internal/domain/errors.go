package domain

import "errors"

var (
	// ErrStaleFetch marks a fetch cycle superseded by a newer one. The
	// caller must discard the cycle's result entirely and not retry it.
	ErrStaleFetch = errors.New("stale fetch cycle superseded")

	// ErrAllowanceRead is fatal to a cycle: without an allowance answer
	// the approval policy cannot be decided safely.
	ErrAllowanceRead = errors.New("allowance read failed")

	ErrUnknownNetworkClient = errors.New("unknown network client")
	ErrUnsupportedChain     = errors.New("unsupported chain")
	ErrEmptyQuoteList       = errors.New("empty quote list")
	ErrNotFound             = errors.New("not found")
)

// Error keys attached to committed state, mirrored by API consumers.
// The misspelling in the not-available value is the long-lived wire key
// existing consumers match on.
const (
	ErrorKeyQuotesExpired      = "quotes-expired"
	ErrorKeyQuotesNotAvailable = "quotes-not-avilable"
)
