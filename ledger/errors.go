/*
errors.go - Error types shared by the ledger and the money-movement operations

ERROR CATEGORIES:
  1. Lookup errors     - NotFoundError
  2. Client errors     - InvalidAmountError, InsufficientBalanceError,
                         AmountExceedsRemainingError, WalletHasBalanceError
  3. Storage errors    - PersistenceError
  4. Integrity errors  - DriftError (reconciliation found a mismatch)

Every structured error unwraps to a sentinel so callers can use errors.Is
without caring about the concrete type:

    if errors.Is(err, ledger.ErrInsufficientBalance) {
        ...
    }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining")
	ErrWalletHasBalance       = errors.New("wallet has balance")
	ErrPersistence            = errors.New("persistence failure")

	// ErrInvalidMutation is returned for a malformed mutation request
	// (unknown direction or origin kind, broken arithmetic).
	ErrInvalidMutation = errors.New("invalid mutation")

	// ErrInvalidTransfer is returned when a transfer names the same wallet
	// on both sides.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrDrift is returned when a wallet balance disagrees with its mutations.
	ErrDrift = errors.New("balance drift")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError reports a record that is missing or owned by someone else.
type NotFoundError struct {
	Kind string // "wallet", "income", "debt", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidAmountError reports a non-positive (or negative) amount.
type InvalidAmountError struct {
	Field  string
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount: %s = %s", e.Field, e.Amount)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	WalletID  WalletID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance in wallet %s: available %s, requested %s, shortfall %s",
		e.WalletID, e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// AmountExceedsRemainingError is returned when a payment is larger than
// what is still owed on a debt target.
type AmountExceedsRemainingError struct {
	TargetID  string
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *AmountExceedsRemainingError) Error() string {
	return fmt.Sprintf("payment %s exceeds remaining %s on target %s",
		e.Requested, e.Remaining, e.TargetID)
}

func (e *AmountExceedsRemainingError) Unwrap() error { return ErrAmountExceedsRemaining }

// WalletHasBalanceError is returned when deleting a wallet that still holds money.
type WalletHasBalanceError struct {
	WalletID WalletID
	Balance  decimal.Decimal
}

func (e *WalletHasBalanceError) Error() string {
	return fmt.Sprintf("wallet %s still has balance %s", e.WalletID, e.Balance)
}

func (e *WalletHasBalanceError) Unwrap() error { return ErrWalletHasBalance }

// PersistenceError wraps a storage failure. errors.Is matches both
// ErrPersistence and the underlying error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// DriftError describes the first inconsistency found while verifying a wallet.
type DriftError struct {
	WalletID WalletID
	Sequence int64 // 0 when the mismatch is against the stored balance
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Reason   string
}

func (e *DriftError) Error() string {
	if e.Sequence == 0 {
		return fmt.Sprintf("wallet %s: %s (expected %s, got %s)",
			e.WalletID, e.Reason, e.Expected, e.Actual)
	}
	return fmt.Sprintf("wallet %s mutation #%d: %s (expected %s, got %s)",
		e.WalletID, e.Sequence, e.Reason, e.Expected, e.Actual)
}

func (e *DriftError) Unwrap() error { return ErrDrift }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Persistence wraps err as a PersistenceError unless it already carries a
// ledger error kind.
func Persistence(op string, err error) error {
	if err == nil || Kind(err) != "" {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAmountExceedsRemaining) ||
		errors.Is(err, ErrInvalidMutation) ||
		errors.Is(err, ErrInvalidTransfer)
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotFound, "not_found"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrAmountExceedsRemaining, "amount_exceeds_remaining"},
	{ErrWalletHasBalance, "wallet_has_balance"},
	{ErrInvalidMutation, "invalid_mutation"},
	{ErrInvalidTransfer, "invalid_transfer"},
	{ErrDrift, "drift"},
	{ErrPersistence, "persistence"},
}

// Kind returns a stable label for a ledger error, or "" for anything else.
// Used for metric labels and API error codes.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}
