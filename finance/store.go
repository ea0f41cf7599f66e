package finance

import (
	"context"

	"github.com/warp/wallet-ledger/ledger"
)

// Store persists the money-movement records alongside wallets and
// mutations. Lookups return (nil, nil) when the record does not exist for
// the owner. Deletes are hard deletes; they only run inside the operation
// that also writes the offsetting mutations.
type Store interface {
	ledger.Store

	CreateIncome(ctx context.Context, in Income) error
	UpdateIncome(ctx context.Context, in Income) error
	DeleteIncome(ctx context.Context, ownerID ledger.OwnerID, id string) error
	GetIncome(ctx context.Context, ownerID ledger.OwnerID, id string) (*Income, error)
	ListIncomes(ctx context.Context, ownerID ledger.OwnerID) ([]Income, error)

	CreateTransaction(ctx context.Context, tx Transaction) error
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, ownerID ledger.OwnerID, id string) error
	GetTransaction(ctx context.Context, ownerID ledger.OwnerID, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, ownerID ledger.OwnerID) ([]Transaction, error)

	CreateTransfer(ctx context.Context, t Transfer) error
	GetTransfer(ctx context.Context, ownerID ledger.OwnerID, id string) (*Transfer, error)
	ListTransfers(ctx context.Context, ownerID ledger.OwnerID) ([]Transfer, error)

	CreateDebt(ctx context.Context, d Debt) error
	UpdateDebt(ctx context.Context, d Debt) error
	DeleteDebt(ctx context.Context, ownerID ledger.OwnerID, id string) error
	GetDebt(ctx context.Context, ownerID ledger.OwnerID, id string) (*Debt, error)
	GetDebtByTransaction(ctx context.Context, ownerID ledger.OwnerID, transactionID string) (*Debt, error)
	ListDebts(ctx context.Context, ownerID ledger.OwnerID) ([]Debt, error)

	CreateDebtTarget(ctx context.Context, t DebtTarget) error
	UpdateDebtTarget(ctx context.Context, t DebtTarget) error
	DeleteDebtTarget(ctx context.Context, id string) error
	GetDebtTarget(ctx context.Context, ownerID ledger.OwnerID, id string) (*DebtTarget, error)
	// LockDebtTarget is GetDebtTarget holding the row until the transaction
	// ends. Payments read the remaining amount through it.
	LockDebtTarget(ctx context.Context, ownerID ledger.OwnerID, id string) (*DebtTarget, error)
	DebtTargets(ctx context.Context, debtID string) ([]DebtTarget, error)

	CreateDebtPayment(ctx context.Context, p DebtPayment) error
	DeleteDebtPayment(ctx context.Context, id string) error
	DebtPayments(ctx context.Context, targetID string) ([]DebtPayment, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
