/*
Package ledger provides the wallet balance engine.

PURPOSE:
  This package owns the two things that must never disagree: a wallet's
  stored balance and the trail of mutations that explains it. Every
  money-moving operation (income, expense, transfer, debt, payment,
  wallet opening) ends up here as one or more CREDIT/DEBIT mutations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Direction: CREDIT adds to a wallet, DEBIT removes from it
  - Origin: The domain record that caused a mutation (closed set of kinds)
  - Wallet: A named money-holding account with a derived balance
  - Mutation: An immutable ledger row with before/after balance snapshot

DESIGN PRINCIPLES:
  1. Single write path: balance only moves through MutationService.Record
  2. Immutability: mutations are never edited, only offset by new ones
  3. Precision: decimal.Decimal for every amount and balance
  4. Explicit ownership: every call carries the OwnerID, nothing is ambient

USAGE:
  m, err := ledger.NewMutationService().Record(ctx, store, ledger.MutationRequest{
      Origin:    ledger.Origin{Kind: ledger.OriginIncome, ID: income.ID, Name: "Salary"},
      OwnerID:   owner,
      WalletID:  walletID,
      Amount:    decimal.NewFromInt(20000),
      Direction: ledger.Credit,
  })

SEE ALSO:
  - mutation.go: The mutation service (the only balance writer)
  - store.go: Persistence interface
  - verify.go: Balance reconciliation against the mutation trail
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OwnerID string
type WalletID string
type MutationID string

// =============================================================================
// DIRECTION
// =============================================================================

type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

func (d Direction) Valid() bool { return d == Credit || d == Debit }

// Apply returns the balance after moving amount in this direction.
func (d Direction) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	if d == Debit {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

// Opposite is the direction that undoes d.
func (d Direction) Opposite() Direction {
	if d == Debit {
		return Credit
	}
	return Debit
}

// =============================================================================
// ORIGIN - What caused a mutation
// =============================================================================

// OriginKind is the closed set of records that may originate a mutation.
type OriginKind string

const (
	OriginIncome      OriginKind = "income"
	OriginTransaction OriginKind = "transaction"
	OriginTransfer    OriginKind = "wallet_transfer"
	OriginDebt        OriginKind = "debt"
	OriginDebtPayment OriginKind = "debt_payment"
	OriginWallet      OriginKind = "wallet"
)

var originLabels = map[OriginKind]string{
	OriginIncome:      "Income",
	OriginTransaction: "Expense",
	OriginTransfer:    "Transfer",
	OriginDebt:        "Debt",
	OriginDebtPayment: "Debt payment",
	OriginWallet:      "Wallet",
}

func (k OriginKind) Valid() bool {
	_, ok := originLabels[k]
	return ok
}

// Label is the human-readable prefix used in mutation descriptions.
func (k OriginKind) Label() string {
	if l, ok := originLabels[k]; ok {
		return l
	}
	return string(k)
}

// ParseOriginKind converts a stored or user-supplied kind.
func ParseOriginKind(s string) (OriginKind, error) {
	k := OriginKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown origin kind %q", ErrInvalidMutation, s)
	}
	return k, nil
}

// Origin points at the record that caused a mutation. Name is only used to
// render the description; it is not persisted separately.
type Origin struct {
	Kind OriginKind
	ID   string
	Name string
}

// Describe renders the mutation description for this origin.
func (o Origin) Describe() string {
	if o.Name == "" {
		return o.Kind.Label()
	}
	return o.Kind.Label() + ": " + o.Name
}

// =============================================================================
// WALLET
// =============================================================================

type Wallet struct {
	ID         WalletID
	OwnerID    OwnerID
	CategoryID string
	Name       string

	// Balance is read-only for business code. The store only changes it
	// while appending a mutation.
	Balance decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func (w Wallet) IsDeleted() bool { return w.DeletedAt != nil }

// =============================================================================
// MUTATION - Immutable balance change
// =============================================================================

type Mutation struct {
	ID       MutationID
	OwnerID  OwnerID
	WalletID WalletID

	// Sequence is 1-based and strictly increasing per wallet.
	Sequence int64

	Type           Direction
	LastBalance    decimal.Decimal
	Amount         decimal.Decimal
	CurrentBalance decimal.Decimal
	Description    string

	OriginKind OriginKind
	OriginID   string

	CreatedAt time.Time
}

// Signed returns the amount with the sign of its effect on the wallet.
func (m Mutation) Signed() decimal.Decimal {
	if m.Type == Debit {
		return m.Amount.Neg()
	}
	return m.Amount
}

// Validate checks the arithmetic of a single mutation.
func (m Mutation) Validate() error {
	if !m.Type.Valid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidMutation, m.Type)
	}
	if !m.OriginKind.Valid() {
		return fmt.Errorf("%w: origin kind %q", ErrInvalidMutation, m.OriginKind)
	}
	if !m.Amount.IsPositive() {
		return &InvalidAmountError{Field: "amount", Amount: m.Amount}
	}
	if want := m.Type.Apply(m.LastBalance, m.Amount); !want.Equal(m.CurrentBalance) {
		return fmt.Errorf("%w: %s %s on %s gives %s, recorded %s",
			ErrInvalidMutation, m.Type, m.Amount, m.LastBalance, want, m.CurrentBalance)
	}
	return nil
}
