package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Reconciliation is the result of replaying a wallet's mutations.
type Reconciliation struct {
	WalletID        WalletID
	StoredBalance   decimal.Decimal
	ReplayedBalance decimal.Decimal
	TotalCredits    decimal.Decimal
	TotalDebits     decimal.Decimal
	Mutations       int
}

// Balanced reports whether the stored balance matches the replay.
func (r Reconciliation) Balanced() bool {
	return r.StoredBalance.Equal(r.ReplayedBalance)
}

// Replay walks mutations in sequence order and checks that each one is
// arithmetically sound and starts where the previous one ended. The first
// mutation of a wallet starts at zero.
func Replay(walletID WalletID, mutations []Mutation) (Reconciliation, error) {
	r := Reconciliation{
		WalletID:        walletID,
		ReplayedBalance: decimal.Zero,
		TotalCredits:    decimal.Zero,
		TotalDebits:     decimal.Zero,
	}

	running := decimal.Zero
	for _, m := range mutations {
		if err := m.Validate(); err != nil {
			return r, &DriftError{
				WalletID: walletID,
				Sequence: m.Sequence,
				Expected: m.Type.Apply(m.LastBalance, m.Amount),
				Actual:   m.CurrentBalance,
				Reason:   err.Error(),
			}
		}
		if !m.LastBalance.Equal(running) {
			return r, &DriftError{
				WalletID: walletID,
				Sequence: m.Sequence,
				Expected: running,
				Actual:   m.LastBalance,
				Reason:   "last balance does not continue the chain",
			}
		}
		running = m.CurrentBalance
		if m.Type == Credit {
			r.TotalCredits = r.TotalCredits.Add(m.Amount)
		} else {
			r.TotalDebits = r.TotalDebits.Add(m.Amount)
		}
		r.Mutations++
	}
	r.ReplayedBalance = running
	return r, nil
}

// VerifyWallet replays a wallet's mutations and compares the result with
// the stored balance. A mismatch is returned as *DriftError together with
// the partial reconciliation.
//
// The wallet is read through LockWallet, so the caller must run this inside
// a transaction. Every writer holds the same lock, which keeps the balance
// and the trail from being read on either side of a concurrent mutation.
func VerifyWallet(ctx context.Context, store Store, ownerID OwnerID, walletID WalletID) (Reconciliation, error) {
	wallet, err := store.LockWallet(ctx, ownerID, walletID)
	if err != nil {
		return Reconciliation{}, Persistence("lock wallet", err)
	}
	if wallet == nil {
		return Reconciliation{}, &NotFoundError{Kind: "wallet", ID: string(walletID)}
	}

	mutations, err := store.Mutations(ctx, ownerID, walletID)
	if err != nil {
		return Reconciliation{}, Persistence("load mutations", err)
	}

	r, err := Replay(walletID, mutations)
	r.StoredBalance = wallet.Balance
	if err != nil {
		return r, err
	}
	if !r.Balanced() {
		return r, &DriftError{
			WalletID: walletID,
			Expected: r.ReplayedBalance,
			Actual:   r.StoredBalance,
			Reason:   "stored balance differs from mutation trail",
		}
	}
	return r, nil
}
