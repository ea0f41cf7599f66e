package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// CreateTransaction records an expense. The amount and the fee are two
// separate DEBIT legs so the fee stays visible in the ledger. With IsDebt
// set, a receivable debt is opened for the split-bill participants; it
// writes no mutation of its own because the money already left with the
// expense.
func (s *Service) CreateTransaction(ctx context.Context, owner ledger.OwnerID, in CreateTransactionInput) (*Transaction, error) {
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}
	if err := requireNonNegative("fee", in.Fee); err != nil {
		return nil, err
	}
	if !in.IsDebt && len(in.Targets) > 0 {
		return nil, fmt.Errorf("%w: targets given for an expense that is not a split bill", ledger.ErrInvalidMutation)
	}
	if in.IsDebt {
		for _, t := range in.Targets {
			if err := requirePositive("target amount", t.Amount); err != nil {
				return nil, err
			}
		}
	}

	now := s.now()
	tx := Transaction{
		ID:          s.newID(),
		OwnerID:     owner,
		WalletID:    in.WalletID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Amount:      in.Amount,
		Fee:         in.Fee,
		Description: in.Description,
		PublishedAt: in.PublishedAt,
		IsDebt:      in.IsDebt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.run(ctx, "create_transaction", func(st Store) error {
		w, err := lockWallet(ctx, st, owner, in.WalletID)
		if err != nil {
			return err
		}
		if err := requireFunds(w, tx.Total()); err != nil {
			return err
		}
		if err := st.CreateTransaction(ctx, tx); err != nil {
			return ledger.Persistence("create transaction", err)
		}

		origin := ledger.Origin{Kind: ledger.OriginTransaction, ID: tx.ID, Name: tx.Title}
		if err := s.record(ctx, st, owner, tx.WalletID, ledger.Debit, tx.Amount, origin); err != nil {
			return err
		}
		if tx.Fee.IsPositive() {
			origin.Name = tx.Title + " fee"
			if err := s.record(ctx, st, owner, tx.WalletID, ledger.Debit, tx.Fee, origin); err != nil {
				return err
			}
		}

		if tx.IsDebt {
			return s.openSplitBill(ctx, st, tx, in.Targets)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Service) openSplitBill(ctx context.Context, st Store, tx Transaction, targets []TargetInput) error {
	txID := tx.ID
	debt := Debt{
		ID:            s.newID(),
		OwnerID:       tx.OwnerID,
		WalletID:      tx.WalletID,
		Type:          DebtReceivable,
		Title:         tx.Title,
		Amount:        tx.Amount,
		Fee:           decimal.Zero,
		Description:   tx.Description,
		PublishedAt:   tx.PublishedAt,
		TransactionID: &txID,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.CreatedAt,
	}
	if err := st.CreateDebt(ctx, debt); err != nil {
		return ledger.Persistence("create debt", err)
	}
	for _, in := range targets {
		target := newTarget(s.newID(), debt.ID, in, in.Amount, tx.CreatedAt)
		if err := st.CreateDebtTarget(ctx, target); err != nil {
			return ledger.Persistence("create debt target", err)
		}
	}
	return nil
}

// UpdateTransaction changes descriptive fields only.
func (s *Service) UpdateTransaction(ctx context.Context, owner ledger.OwnerID, id string, in UpdateTransactionInput) (*Transaction, error) {
	var updated *Transaction
	err := s.run(ctx, "update_transaction", func(st Store) error {
		tx, err := st.GetTransaction(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get transaction", err)
		}
		if tx == nil {
			return &ledger.NotFoundError{Kind: "transaction", ID: id}
		}
		tx.CategoryID = in.CategoryID
		tx.Title = in.Title
		tx.Description = in.Description
		tx.PublishedAt = in.PublishedAt
		tx.UpdatedAt = s.now()
		if err := st.UpdateTransaction(ctx, *tx); err != nil {
			return ledger.Persistence("update transaction", err)
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction unwinds a split bill first (payment reversals, then
// targets, then the debt), then credits amount+fee back in one leg and
// removes the expense.
func (s *Service) DeleteTransaction(ctx context.Context, owner ledger.OwnerID, id string) error {
	return s.run(ctx, "delete_transaction", func(st Store) error {
		tx, err := st.GetTransaction(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get transaction", err)
		}
		if tx == nil {
			return &ledger.NotFoundError{Kind: "transaction", ID: id}
		}

		debt, err := st.GetDebtByTransaction(ctx, owner, tx.ID)
		if err != nil {
			return ledger.Persistence("get debt", err)
		}
		if debt != nil {
			if err := s.unwindTargets(ctx, st, debt); err != nil {
				return err
			}
			if err := st.DeleteDebt(ctx, owner, debt.ID); err != nil {
				return ledger.Persistence("delete debt", err)
			}
		}

		origin := ledger.Origin{Kind: ledger.OriginTransaction, ID: tx.ID, Name: reversal(tx.Title)}
		if err := s.record(ctx, st, owner, tx.WalletID, ledger.Credit, tx.Total(), origin); err != nil {
			return err
		}
		if err := st.DeleteTransaction(ctx, owner, tx.ID); err != nil {
			return ledger.Persistence("delete transaction", err)
		}
		return nil
	})
}

func (s *Service) GetTransaction(ctx context.Context, owner ledger.OwnerID, id string) (*Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get transaction", err)
	}
	if tx == nil {
		return nil, &ledger.NotFoundError{Kind: "transaction", ID: id}
	}
	return tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, owner ledger.OwnerID) ([]Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list transactions", err)
	}
	return txs, nil
}

// TransactionDebt returns the split-bill debt of an expense, or NotFoundError.
func (s *Service) TransactionDebt(ctx context.Context, owner ledger.OwnerID, id string) (*Debt, error) {
	d, err := s.store.GetDebtByTransaction(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get debt", err)
	}
	if d == nil {
		return nil, &ledger.NotFoundError{Kind: "debt", ID: id}
	}
	return d, nil
}
