package domain

import "errors"

// Error taxonomy per spec.md §7. These are kinds, not type names: each
// is a sentinel comparable with errors.Is, wrapped with context by the
// package that raises it.
var (
	ErrValidation        = errors.New("validation")
	ErrIllegalAction     = errors.New("illegal action")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrStateCorruption   = errors.New("state corruption")
	ErrCancelled         = errors.New("operation cancelled")

	ErrInvalidBuyIn    = errors.New("buy-in outside table limits")
	ErrTableFull       = errors.New("table is full")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrPlayerNotActive = errors.New("player is not active")
)

// Hint carries the user-visible explanation for a rejected action:
// min/max bet and the call amount, per spec.md §7.
type Hint struct {
	MinBet     int64
	MaxBet     int64
	CallAmount int64
}

// ActionError is a typed, user-facing failure from the betting or
// table engine. It never carries internal diagnostic detail — that is
// scrubbed before this reaches ingress, per spec.md §7.
type ActionError struct {
	Kind   error
	Reason string
	Hints  Hint
}

func (e *ActionError) Error() string { return e.Reason }

func (e *ActionError) Unwrap() error { return e.Kind }

// NewActionError builds an ActionError for the given error-taxonomy
// kind, reason, and legality hints.
func NewActionError(kind error, reason string, hints Hint) *ActionError {
	return &ActionError{Kind: kind, Reason: reason, Hints: hints}
}
