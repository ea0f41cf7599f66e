/*
store.go - Persistence interface for wallets and mutations

APPEND-ONLY CONTRACT:
  Mutations have exactly one write method, AppendMutation. There is no
  update and no delete. A mutation only disappears when the database
  transaction that wrote it is rolled back.

BALANCE CONTRACT:
  CreateWallet always persists a zero balance, and UpdateWallet only
  touches descriptive fields. The single statement that changes
  wallets.balance runs inside AppendMutation, setting it to the
  mutation's CurrentBalance. That is what keeps the stored balance and the
  mutation trail in step.

LOCKING:
  LockWallet must be called inside a database transaction. It returns the
  wallet and holds whatever lock the backend needs so that the
  read-balance / compute / write sequence in MutationService.Record cannot
  interleave with another writer on the same wallet.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite (mattn or modernc driver) and PostgreSQL (pgx)
*/
package ledger

import (
	"context"
	"time"
)

// Store handles persistence of wallets and their mutations.
// Lookups return (nil, nil) when the record does not exist for that owner.
type Store interface {
	// CreateWallet inserts a wallet with a zero balance regardless of w.Balance.
	CreateWallet(ctx context.Context, w Wallet) error

	// UpdateWallet changes name and category only.
	UpdateWallet(ctx context.Context, w Wallet) error

	// SoftDeleteWallet marks the wallet deleted at the given time.
	SoftDeleteWallet(ctx context.Context, ownerID OwnerID, id WalletID, at time.Time) error

	GetWallet(ctx context.Context, ownerID OwnerID, id WalletID) (*Wallet, error)

	// LockWallet is GetWallet plus a write lock held until the enclosing
	// transaction ends.
	LockWallet(ctx context.Context, ownerID OwnerID, id WalletID) (*Wallet, error)

	// ListWallets returns the owner's non-deleted wallets ordered by name.
	ListWallets(ctx context.Context, ownerID OwnerID) ([]Wallet, error)

	// AppendMutation persists m and sets the wallet balance to
	// m.CurrentBalance. The store assigns m.Sequence.
	AppendMutation(ctx context.Context, m *Mutation) error

	// Mutations returns a wallet's mutations ordered by Sequence.
	Mutations(ctx context.Context, ownerID OwnerID, walletID WalletID) ([]Mutation, error)

	// MutationsByOrigin returns all mutations caused by one record.
	MutationsByOrigin(ctx context.Context, ownerID OwnerID, kind OriginKind, originID string) ([]Mutation, error)
}
