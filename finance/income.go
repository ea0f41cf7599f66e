package finance

import (
	"context"

	"github.com/warp/wallet-ledger/ledger"
)

// CreateIncome records an income and credits its wallet.
func (s *Service) CreateIncome(ctx context.Context, owner ledger.OwnerID, in CreateIncomeInput) (*Income, error) {
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	income := Income{
		ID:          s.newID(),
		OwnerID:     owner,
		WalletID:    in.WalletID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Amount:      in.Amount,
		Description: in.Description,
		PublishedAt: in.PublishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.run(ctx, "create_income", func(st Store) error {
		if _, err := lockWallet(ctx, st, owner, in.WalletID); err != nil {
			return err
		}
		if err := st.CreateIncome(ctx, income); err != nil {
			return ledger.Persistence("create income", err)
		}
		origin := ledger.Origin{Kind: ledger.OriginIncome, ID: income.ID, Name: income.Title}
		return s.record(ctx, st, owner, income.WalletID, ledger.Credit, income.Amount, origin)
	})
	if err != nil {
		return nil, err
	}
	return &income, nil
}

// UpdateIncome changes descriptive fields. Amount and wallet are fixed
// after creation, so no mutation is written.
func (s *Service) UpdateIncome(ctx context.Context, owner ledger.OwnerID, id string, in UpdateIncomeInput) (*Income, error) {
	var updated *Income
	err := s.run(ctx, "update_income", func(st Store) error {
		income, err := st.GetIncome(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get income", err)
		}
		if income == nil {
			return &ledger.NotFoundError{Kind: "income", ID: id}
		}
		income.CategoryID = in.CategoryID
		income.Title = in.Title
		income.Description = in.Description
		income.PublishedAt = in.PublishedAt
		income.UpdatedAt = s.now()
		if err := st.UpdateIncome(ctx, *income); err != nil {
			return ledger.Persistence("update income", err)
		}
		updated = income
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteIncome debits the income amount back out of its wallet, then
// removes the record.
func (s *Service) DeleteIncome(ctx context.Context, owner ledger.OwnerID, id string) error {
	return s.run(ctx, "delete_income", func(st Store) error {
		income, err := st.GetIncome(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get income", err)
		}
		if income == nil {
			return &ledger.NotFoundError{Kind: "income", ID: id}
		}
		origin := ledger.Origin{Kind: ledger.OriginIncome, ID: income.ID, Name: reversal(income.Title)}
		if err := s.record(ctx, st, owner, income.WalletID, ledger.Debit, income.Amount, origin); err != nil {
			return err
		}
		if err := st.DeleteIncome(ctx, owner, id); err != nil {
			return ledger.Persistence("delete income", err)
		}
		return nil
	})
}

func (s *Service) GetIncome(ctx context.Context, owner ledger.OwnerID, id string) (*Income, error) {
	income, err := s.store.GetIncome(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get income", err)
	}
	if income == nil {
		return nil, &ledger.NotFoundError{Kind: "income", ID: id}
	}
	return income, nil
}

func (s *Service) ListIncomes(ctx context.Context, owner ledger.OwnerID) ([]Income, error) {
	incomes, err := s.store.ListIncomes(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list incomes", err)
	}
	return incomes, nil
}
