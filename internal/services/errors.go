package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers lookups of pawners, transactions, tickets and items.
	ErrNotFound = errors.New("not found")
	// ErrChainConflict means another request changed the chain between read
	// and write. Callers may retry; the retry must re-validate preconditions
	// from scratch.
	ErrChainConflict = errors.New("chain changed concurrently")
	// ErrItemConflict is the optimistic-concurrency failure on an item's
	// status transition.
	ErrItemConflict = errors.New("item status changed concurrently")
)

// ValidationError is a business-rule violation detected before any write.
// Not retryable without new input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ChainStateError means the referenced predecessor is not the chain's
// current extendable member (already superseded, redeemed or closed).
// Rejected before any write.
type ChainStateError struct {
	TransactionNumber string
	Status            string
}

func (e *ChainStateError) Error() string {
	return fmt.Sprintf("transaction %s is not active (status: %s)", e.TransactionNumber, e.Status)
}

// NotEligibleError carries every unmet auction-sale precondition, not just
// the first, so the caller can display all failures at once.
type NotEligibleError struct {
	Reasons []string
}

func (e *NotEligibleError) Error() string {
	return "not eligible: " + strings.Join(e.Reasons, "; ")
}

// InvalidTransitionError rejects an item status movement the transition
// table does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid item transition %s -> %s", e.From, e.To)
}
