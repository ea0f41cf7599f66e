package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// DEBT LIFECYCLE
// =============================================================================
//
// Target state machine:
//
//   OPEN --(payment brings remaining to 0)--> PAID
//
// There is no way back from PAID except deleting the debt, which deletes
// the targets with it.
//
// Wallet legs by debt type:
//
//                     receivable (CREDIT)       payable (DEBIT)
//   open              DEBIT amount, DEBIT fee   CREDIT amount
//   payment           CREDIT payment            DEBIT payment
//   delete            DEBIT each payment,       CREDIT each payment,
//                     CREDIT amount+fee         DEBIT amount

// CreateDebtReceivable lends money out of a wallet. The target owes the
// principal plus the fee.
func (s *Service) CreateDebtReceivable(ctx context.Context, owner ledger.OwnerID, in CreateDebtInput) (*Debt, error) {
	in.Type = DebtReceivable
	return s.CreateDebt(ctx, owner, in)
}

// CreateDebtPayable records money borrowed into a wallet.
func (s *Service) CreateDebtPayable(ctx context.Context, owner ledger.OwnerID, in CreateDebtInput) (*Debt, error) {
	in.Type = DebtPayable
	return s.CreateDebt(ctx, owner, in)
}

// CreateDebt opens a debt of either type with a single target.
func (s *Service) CreateDebt(ctx context.Context, owner ledger.OwnerID, in CreateDebtInput) (*Debt, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: debt type %q", ledger.ErrInvalidMutation, in.Type)
	}
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}
	if err := requireNonNegative("fee", in.Fee); err != nil {
		return nil, err
	}

	now := s.now()
	debt := Debt{
		ID:          s.newID(),
		OwnerID:     owner,
		WalletID:    in.WalletID,
		Type:        in.Type,
		Title:       in.Title,
		Amount:      in.Amount,
		Fee:         in.Fee,
		Description: in.Description,
		PublishedAt: in.PublishedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	target := newTarget(s.newID(), debt.ID, in.Target, in.Amount.Add(in.Fee), now)

	err := s.run(ctx, "create_debt", func(st Store) error {
		if _, err := lockWallet(ctx, st, owner, debt.WalletID); err != nil {
			return err
		}
		if err := st.CreateDebt(ctx, debt); err != nil {
			return ledger.Persistence("create debt", err)
		}
		if err := st.CreateDebtTarget(ctx, target); err != nil {
			return ledger.Persistence("create debt target", err)
		}

		dir := debt.Type.opening()
		origin := ledger.Origin{Kind: ledger.OriginDebt, ID: debt.ID, Name: debt.Title}
		if err := s.record(ctx, st, owner, debt.WalletID, dir, debt.Amount, origin); err != nil {
			return err
		}
		// A borrowed fee is owed, not received, so only lending pays it out.
		if debt.Fee.IsPositive() && debt.Type == DebtReceivable {
			origin.Name = debt.Title + " fee"
			if err := s.record(ctx, st, owner, debt.WalletID, dir, debt.Fee, origin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	debt.Targets = []DebtTarget{target}
	return &debt, nil
}

// UpdateDebtReceivable changes descriptive fields. The target name is only
// applied to single-target debts; split bills keep their participant names.
func (s *Service) UpdateDebtReceivable(ctx context.Context, owner ledger.OwnerID, id string, in UpdateDebtInput) (*Debt, error) {
	var updated *Debt
	err := s.run(ctx, "update_debt", func(st Store) error {
		debt, err := st.GetDebt(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get debt", err)
		}
		if debt == nil {
			return &ledger.NotFoundError{Kind: "debt", ID: id}
		}

		now := s.now()
		debt.Title = in.Title
		debt.Description = in.Description
		debt.PublishedAt = in.PublishedAt
		debt.UpdatedAt = now
		if err := st.UpdateDebt(ctx, *debt); err != nil {
			return ledger.Persistence("update debt", err)
		}

		for i := range debt.Targets {
			t := &debt.Targets[i]
			if in.TargetName != "" && len(debt.Targets) == 1 {
				t.Name = in.TargetName
			}
			if in.DueDate != nil {
				t.DueDate = in.DueDate
			}
			t.UpdatedAt = now
			if err := st.UpdateDebtTarget(ctx, *t); err != nil {
				return ledger.Persistence("update debt target", err)
			}
		}
		updated = debt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordDebtPayment books one installment against a target. A payment
// larger than what is still owed is refused before anything is written.
func (s *Service) RecordDebtPayment(ctx context.Context, owner ledger.OwnerID, in RecordPaymentInput) (*DebtPayment, error) {
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}

	payment := DebtPayment{
		ID:        s.newID(),
		TargetID:  in.TargetID,
		WalletID:  in.WalletID,
		Amount:    in.Amount,
		Note:      in.Note,
		PaidAt:    in.PaidAt,
		CreatedAt: s.now(),
	}

	err := s.run(ctx, "record_debt_payment", func(st Store) error {
		target, err := st.LockDebtTarget(ctx, owner, in.TargetID)
		if err != nil {
			return ledger.Persistence("lock debt target", err)
		}
		if target == nil {
			return &ledger.NotFoundError{Kind: "debt_target", ID: in.TargetID}
		}
		debt, err := st.GetDebt(ctx, owner, target.DebtID)
		if err != nil {
			return ledger.Persistence("get debt", err)
		}
		if debt == nil {
			return &ledger.NotFoundError{Kind: "debt", ID: target.DebtID}
		}
		if in.Amount.GreaterThan(target.RemainingAmount) {
			return &ledger.AmountExceedsRemainingError{
				TargetID:  target.ID,
				Remaining: target.RemainingAmount,
				Requested: in.Amount,
			}
		}
		if _, err := lockWallet(ctx, st, owner, in.WalletID); err != nil {
			return err
		}

		target.pay(in.Amount, payment.CreatedAt)
		if err := st.UpdateDebtTarget(ctx, *target); err != nil {
			return ledger.Persistence("update debt target", err)
		}
		if err := st.CreateDebtPayment(ctx, payment); err != nil {
			return ledger.Persistence("create debt payment", err)
		}
		origin := ledger.Origin{Kind: ledger.OriginDebtPayment, ID: payment.ID, Name: debt.Title}
		return s.record(ctx, st, owner, payment.WalletID, debt.Type.settlement(), payment.Amount, origin)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeleteDebtReceivable removes a debt and everything it caused: payments
// are reversed against the wallets that received them, targets go, the
// original outflow is restored to the debt wallet, and the debt row goes
// last. A split-bill debt restores nothing here because its outflow
// belongs to the expense.
func (s *Service) DeleteDebtReceivable(ctx context.Context, owner ledger.OwnerID, id string) error {
	return s.run(ctx, "delete_debt", func(st Store) error {
		debt, err := st.GetDebt(ctx, owner, id)
		if err != nil {
			return ledger.Persistence("get debt", err)
		}
		if debt == nil {
			return &ledger.NotFoundError{Kind: "debt", ID: id}
		}

		if err := s.unwindTargets(ctx, st, debt); err != nil {
			return err
		}

		if debt.TransactionID == nil {
			restore := debt.Amount
			if debt.Type == DebtReceivable {
				restore = restore.Add(debt.Fee)
			}
			origin := ledger.Origin{Kind: ledger.OriginDebt, ID: debt.ID, Name: reversal(debt.Title)}
			dir := debt.Type.opening().Opposite()
			if err := s.record(ctx, st, owner, debt.WalletID, dir, restore, origin); err != nil {
				return err
			}
		}

		if err := st.DeleteDebt(ctx, owner, debt.ID); err != nil {
			return ledger.Persistence("delete debt", err)
		}
		return nil
	})
}

// unwindTargets reverses and deletes every payment of every target, then
// deletes the targets. The debt row itself is left to the caller.
func (s *Service) unwindTargets(ctx context.Context, st Store, debt *Debt) error {
	targets, err := st.DebtTargets(ctx, debt.ID)
	if err != nil {
		return ledger.Persistence("load debt targets", err)
	}
	undo := debt.Type.settlement().Opposite()

	for _, t := range targets {
		payments, err := st.DebtPayments(ctx, t.ID)
		if err != nil {
			return ledger.Persistence("load debt payments", err)
		}
		for _, p := range payments {
			origin := ledger.Origin{Kind: ledger.OriginDebtPayment, ID: p.ID, Name: reversal(debt.Title)}
			if err := s.record(ctx, st, debt.OwnerID, p.WalletID, undo, p.Amount, origin); err != nil {
				return err
			}
			if err := st.DeleteDebtPayment(ctx, p.ID); err != nil {
				return ledger.Persistence("delete debt payment", err)
			}
		}
		if err := st.DeleteDebtTarget(ctx, t.ID); err != nil {
			return ledger.Persistence("delete debt target", err)
		}
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Service) GetDebt(ctx context.Context, owner ledger.OwnerID, id string) (*Debt, error) {
	d, err := s.store.GetDebt(ctx, owner, id)
	if err != nil {
		return nil, ledger.Persistence("get debt", err)
	}
	if d == nil {
		return nil, &ledger.NotFoundError{Kind: "debt", ID: id}
	}
	return d, nil
}

func (s *Service) ListDebts(ctx context.Context, owner ledger.OwnerID) ([]Debt, error) {
	ds, err := s.store.ListDebts(ctx, owner)
	if err != nil {
		return nil, ledger.Persistence("list debts", err)
	}
	return ds, nil
}

// DebtPayments lists the installments of one target.
func (s *Service) DebtPayments(ctx context.Context, owner ledger.OwnerID, targetID string) ([]DebtPayment, error) {
	t, err := s.store.GetDebtTarget(ctx, owner, targetID)
	if err != nil {
		return nil, ledger.Persistence("get debt target", err)
	}
	if t == nil {
		return nil, &ledger.NotFoundError{Kind: "debt_target", ID: targetID}
	}
	ps, err := s.store.DebtPayments(ctx, targetID)
	if err != nil {
		return nil, ledger.Persistence("list debt payments", err)
	}
	return ps, nil
}

// PaidTotal sums payment amounts; it equals the target's PaidAmount.
func PaidTotal(payments []DebtPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
