package finance

import (
	"context"
	"fmt"

	"github.com/warp/wallet-ledger/ledger"
)

// CreateTransfer moves money between two wallets of the same owner.
// Legs, in order: DEBIT amount and DEBIT fee on the origin wallet, CREDIT
// amount on the target. The fee is not credited anywhere.
// Transfers are immutable; there is no update or delete.
func (s *Service) CreateTransfer(ctx context.Context, owner ledger.OwnerID, in CreateTransferInput) (*Transfer, error) {
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}
	if err := requireNonNegative("fee", in.Fee); err != nil {
		return nil, err
	}
	if in.FromWalletID == in.ToWalletID {
		return nil, fmt.Errorf("%w: wallet %s on both sides", ledger.ErrInvalidTransfer, in.FromWalletID)
	}

	t := Transfer{
		ID:           s.newID(),
		OwnerID:      owner,
		FromWalletID: in.FromWalletID,
		ToWalletID:   in.ToWalletID,
		Amount:       in.Amount,
		Fee:          in.Fee,
		Description:  in.Description,
		PublishedAt:  in.PublishedAt,
		CreatedAt:    s.now(),
	}

	err := s.run(ctx, "create_transfer", func(st Store) error {
		from, to, err := lockPair(ctx, st, owner, t.FromWalletID, t.ToWalletID)
		if err != nil {
			return err
		}
		if err := requireFunds(from, t.Amount.Add(t.Fee)); err != nil {
			return err
		}
		if err := st.CreateTransfer(ctx, t); err != nil {
			return ledger.Persistence("create transfer", err)
		}

		origin := ledger.Origin{Kind: ledger.OriginTransfer, ID: t.ID, Name: "to " + to.Name}
		if err := s.record(ctx, st, owner, from.ID, ledger.Debit, t.Amount, origin); err != nil {
			return err
		}
		if t.Fee.IsPositive() {
			origin.Name = "fee to " + to.Name
			if err := s.record(ctx, st, owner, from.ID, ledger.Debit, t.Fee, origin); err != nil {
				return err
			}
		}
		origin.Name = "from " + from.Name
		return s.record(ctx, st, owner, to.ID, ledger.Credit, t.Amount, origin)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// lockPair locks two wallets in ID order so two opposite transfers cannot
// deadlock on a row-locking backend.
func lockPair(ctx context.Context, st Store, owner ledger.OwnerID, a, b ledger.WalletID) (*ledger.Wallet, *ledger.Wallet, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	wFirst, err := lockWallet(ctx, st, owner, first)
	if err != nil {
		return nil, nil, err
	}
	wSecond, err := lockWallet(ctx, st, owner, second)
	if err != nil {
		return nil, nil, err
	}
	if first == a {
		return wFirst, wSecond, nil
	}
	return wSecond, wFirst, nil
}

func (s *Service) GetTransfer(ctx context.Context, owner ledger.OwnerID, id string) (*Transfer, error) {
	t, err := s.store.GetTransfer(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get transfer", err)
	}
	if t == nil {
		return nil, &ledger.NotFoundError{Kind: "transfer", ID: id}
	}
	return t, nil
}

func (s *Service) ListTransfers(ctx context.Context, owner ledger.OwnerID) ([]Transfer, error) {
	ts, err := s.store.ListTransfers(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list transfers", err)
	}
	return ts, nil
}
