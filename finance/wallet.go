package finance

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// CreateWallet opens a wallet at zero and, when an opening balance is given,
// credits it through the ledger so the first mutation explains the money.
func (s *Service) CreateWallet(ctx context.Context, owner ledger.OwnerID, in CreateWalletInput) (*ledger.Wallet, error) {
	if err := requireNonNegative("balance", in.Balance); err != nil {
		return nil, err
	}

	now := s.now()
	w := ledger.Wallet{
		ID:         ledger.WalletID(s.newID()),
		OwnerID:    owner,
		CategoryID: in.CategoryID,
		Name:       in.Name,
		Balance:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var created *ledger.Wallet
	err := s.run(ctx, "create_wallet", func(st Store) error {
		if err := st.CreateWallet(ctx, w); err != nil {
			return ledger.Persistence("create wallet", err)
		}
		if in.Balance.IsPositive() {
			origin := ledger.Origin{Kind: ledger.OriginWallet, ID: string(w.ID), Name: "initial balance"}
			if err := s.record(ctx, st, owner, w.ID, ledger.Credit, in.Balance, origin); err != nil {
				return err
			}
		}
		got, err := st.GetWallet(ctx, owner, w.ID)
		if err != nil {
			return ledger.Persistence("get wallet", err)
		}
		created = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateWallet renames or recategorizes a wallet. The balance is untouched.
func (s *Service) UpdateWallet(ctx context.Context, owner ledger.OwnerID, id ledger.WalletID, in UpdateWalletInput) (*ledger.Wallet, error) {
	var updated *ledger.Wallet
	err := s.run(ctx, "update_wallet", func(st Store) error {
		w, err := lockWallet(ctx, st, owner, id)
		if err != nil {
			return err
		}
		w.Name = in.Name
		w.CategoryID = in.CategoryID
		w.UpdatedAt = s.now()
		if err := st.UpdateWallet(ctx, *w); err != nil {
			return ledger.Persistence("update wallet", err)
		}
		updated = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteWallet soft-deletes an empty wallet. A non-zero balance is refused
// so money never vanishes with its wallet.
func (s *Service) DeleteWallet(ctx context.Context, owner ledger.OwnerID, id ledger.WalletID) error {
	return s.run(ctx, "delete_wallet", func(st Store) error {
		w, err := lockWallet(ctx, st, owner, id)
		if err != nil {
			return err
		}
		if !w.Balance.IsZero() {
			return &ledger.WalletHasBalanceError{WalletID: w.ID, Balance: w.Balance}
		}
		if err := st.SoftDeleteWallet(ctx, owner, id, s.now()); err != nil {
			return ledger.Persistence("delete wallet", err)
		}
		return nil
	})
}

// GetWallet returns a live wallet.
func (s *Service) GetWallet(ctx context.Context, owner ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	w, err := s.store.GetWallet(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get wallet", err)
	}
	if w == nil || w.IsDeleted() {
		return nil, &ledger.NotFoundError{Kind: "wallet", ID: string(id)}
	}
	return w, nil
}

func (s *Service) ListWallets(ctx context.Context, owner ledger.OwnerID) ([]ledger.Wallet, error) {
	ws, err := s.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list wallets", err)
	}
	return ws, nil
}
