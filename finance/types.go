/*
Package finance implements the money-movement operations on top of the
wallet ledger.

PURPOSE:
  Incomes, expenses ("transactions"), wallet transfers, debts and debt
  payments are ordinary records. What makes them interesting is that each
  one originates mutations, and deleting one must offset exactly what it
  caused. This package owns that choreography; the ledger package owns the
  arithmetic.

OPERATIONS AND THEIR LEGS:
  CreateWallet          CREDIT initial balance (if > 0)
  CreateIncome          CREDIT amount
  DeleteIncome          DEBIT amount
  CreateTransaction     DEBIT amount, DEBIT fee (if > 0)
  DeleteTransaction     DEBIT every split-bill payment, CREDIT amount+fee
  CreateTransfer        DEBIT amount, DEBIT fee (if > 0), CREDIT amount
  CreateDebtReceivable  DEBIT amount, DEBIT fee (if > 0)
  RecordDebtPayment     CREDIT payment (receivable) / DEBIT payment (payable)
  DeleteDebtReceivable  reverse payments, then restore the original outflow

Every multi-write operation runs inside one database transaction.

SEE ALSO:
  - ledger/mutation.go: The single balance writer
  - store.go: Persistence interface for the records in this file
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// INCOME
// =============================================================================

type Income struct {
	ID          string
	OwnerID     ledger.OwnerID
	WalletID    ledger.WalletID
	CategoryID  string
	Title       string
	Amount      decimal.Decimal
	Description string
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// TRANSACTION (expense)
// =============================================================================

type Transaction struct {
	ID          string
	OwnerID     ledger.OwnerID
	WalletID    ledger.WalletID
	CategoryID  string
	Title       string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Description string
	PublishedAt time.Time
	IsDebt      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Total is what the expense removed from its wallet.
func (t Transaction) Total() decimal.Decimal { return t.Amount.Add(t.Fee) }

// =============================================================================
// WALLET TRANSFER
// =============================================================================

type Transfer struct {
	ID           string
	OwnerID      ledger.OwnerID
	FromWalletID ledger.WalletID
	ToWalletID   ledger.WalletID
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Description  string
	PublishedAt  time.Time
	CreatedAt    time.Time
}

// =============================================================================
// DEBT SUB-LEDGER
// =============================================================================

// DebtType says which way the money went when the debt was opened.
type DebtType string

const (
	// DebtReceivable: money lent out, recovered through payments.
	DebtReceivable DebtType = "CREDIT"
	// DebtPayable: money borrowed, repaid through payments.
	DebtPayable DebtType = "DEBIT"
)

func (t DebtType) Valid() bool { return t == DebtReceivable || t == DebtPayable }

// opening is the direction of the wallet legs written when the debt is created.
func (t DebtType) opening() ledger.Direction {
	if t == DebtPayable {
		return ledger.Credit
	}
	return ledger.Debit
}

// settlement is the direction of a payment leg.
func (t DebtType) settlement() ledger.Direction {
	return t.opening().Opposite()
}

type TargetStatus string

const (
	TargetOpen TargetStatus = "OPEN"
	TargetPaid TargetStatus = "PAID"
)

type Debt struct {
	ID            string
	OwnerID       ledger.OwnerID
	WalletID      ledger.WalletID
	Type          DebtType
	Title         string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Description   string
	PublishedAt   time.Time
	TransactionID *string // set for split bills created with an expense
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Targets is filled by reads; it is not written with the debt row.
	Targets []DebtTarget
}

// Remaining sums what is still outstanding across targets.
func (d Debt) Remaining() decimal.Decimal {
	total := decimal.Zero
	for _, t := range d.Targets {
		total = total.Add(t.RemainingAmount)
	}
	return total
}

// DebtTarget is one counterparty's share of a debt.
//
// INVARIANTS:
//   - Amount == PaidAmount + RemainingAmount
//   - Status == PAID iff RemainingAmount == 0
type DebtTarget struct {
	ID              string
	DebtID          string
	UserID          *string
	Name            string
	Amount          decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	Status          TargetStatus
	DueDate         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func newTarget(id, debtID string, in TargetInput, amount decimal.Decimal, now time.Time) DebtTarget {
	return DebtTarget{
		ID:              id,
		DebtID:          debtID,
		UserID:          in.UserID,
		Name:            in.Name,
		Amount:          amount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: amount,
		Status:          TargetOpen,
		DueDate:         in.DueDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// pay applies a payment. The caller has already checked amount <= remaining.
func (t *DebtTarget) pay(amount decimal.Decimal, now time.Time) {
	t.PaidAmount = t.PaidAmount.Add(amount)
	t.RemainingAmount = t.RemainingAmount.Sub(amount)
	if t.RemainingAmount.IsZero() {
		t.Status = TargetPaid
	}
	t.UpdatedAt = now
}

// DebtPayment is one installment against a target.
type DebtPayment struct {
	ID        string
	TargetID  string
	WalletID  ledger.WalletID
	Amount    decimal.Decimal
	Note      string
	PaidAt    time.Time
	CreatedAt time.Time
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the per-owner dashboard feed.
type Summary struct {
	OwnerID      ledger.OwnerID
	Wallets      int
	TotalBalance decimal.Decimal
	Receivable   decimal.Decimal // still owed to the owner
	Payable      decimal.Decimal // still owed by the owner
}
