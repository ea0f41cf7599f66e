package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// DEBTS
// =============================================================================
//
// Debt reads attach targets in a second query once the debt rows are fully
// read. A single SQLite connection, or a pgx connection inside a
// transaction, cannot serve a new query while a result set is still open.

const debtColumns = `id, owner_id, wallet_id, type, title, amount, fee, description,
	published_at, transaction_id, created_at, updated_at`

func (q *queries) CreateDebt(ctx context.Context, d finance.Debt) error {
	_, err := q.exec(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.OwnerID), string(d.WalletID), string(d.Type), d.Title,
		d.Amount.String(), d.Fee.String(), d.Description, formatTime(d.PublishedAt),
		nullString(d.TransactionID), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (q *queries) UpdateDebt(ctx context.Context, d finance.Debt) error {
	return q.execOne(ctx, "update debt", `
		UPDATE debts SET title = ?, description = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		d.Title, d.Description, formatTime(d.PublishedAt), formatTime(d.UpdatedAt),
		d.ID, string(d.OwnerID),
	)
}

func (q *queries) DeleteDebt(ctx context.Context, ownerID ledger.OwnerID, id string) error {
	return q.execOne(ctx, "delete debt",
		`DELETE FROM debts WHERE id = ? AND owner_id = ?`, id, string(ownerID))
}

func (q *queries) GetDebt(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.Debt, error) {
	return q.getDebt(ctx, `
		SELECT `+debtColumns+` FROM debts WHERE id = ? AND owner_id = ?`,
		id, string(ownerID),
	)
}

func (q *queries) GetDebtByTransaction(ctx context.Context, ownerID ledger.OwnerID, transactionID string) (*finance.Debt, error) {
	return q.getDebt(ctx, `
		SELECT `+debtColumns+` FROM debts WHERE transaction_id = ? AND owner_id = ?`,
		transactionID, string(ownerID),
	)
}

func (q *queries) getDebt(ctx context.Context, query string, args ...any) (*finance.Debt, error) {
	d, err := scanDebt(q.queryRow(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.Targets, err = q.DebtTargets(ctx, d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (q *queries) ListDebts(ctx context.Context, ownerID ledger.OwnerID) ([]finance.Debt, error) {
	rows, err := q.query(ctx, `
		SELECT `+debtColumns+` FROM debts
		WHERE owner_id = ?
		ORDER BY published_at DESC, created_at DESC`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}

	var debts []finance.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range debts {
		if debts[i].Targets, err = q.DebtTargets(ctx, debts[i].ID); err != nil {
			return nil, err
		}
	}
	return debts, nil
}

func scanDebt(sc scanner) (finance.Debt, error) {
	var (
		d                                 finance.Debt
		owner, wallet, typ                string
		amount, fee                       string
		publishedAt, createdAt, updatedAt string
		transactionID                     sql.NullString
	)
	err := sc.Scan(&d.ID, &owner, &wallet, &typ, &d.Title, &amount, &fee, &d.Description,
		&publishedAt, &transactionID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("failed to scan debt: %w", err)
	}
	d.OwnerID = ledger.OwnerID(owner)
	d.WalletID = ledger.WalletID(wallet)
	d.Type = finance.DebtType(typ)
	d.TransactionID = stringPtr(transactionID)
	if err := decimals([]*decimal.Decimal{&d.Amount, &d.Fee}, amount, fee); err != nil {
		return d, err
	}
	err = times([]*time.Time{&d.PublishedAt, &d.CreatedAt, &d.UpdatedAt},
		publishedAt, createdAt, updatedAt)
	return d, err
}

// =============================================================================
// DEBT TARGETS
// =============================================================================

const targetColumns = `id, debt_id, user_id, name, amount, paid_amount, remaining_amount,
	status, due_date, created_at, updated_at`

func (q *queries) CreateDebtTarget(ctx context.Context, t finance.DebtTarget) error {
	_, err := q.exec(ctx, `
		INSERT INTO debt_targets (`+targetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.DebtID, nullString(t.UserID), t.Name,
		t.Amount.String(), t.PaidAmount.String(), t.RemainingAmount.String(),
		string(t.Status), nullTime(t.DueDate), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create debt target: %w", err)
	}
	return nil
}

func (q *queries) UpdateDebtTarget(ctx context.Context, t finance.DebtTarget) error {
	return q.execOne(ctx, "update debt target", `
		UPDATE debt_targets
		SET name = ?, paid_amount = ?, remaining_amount = ?, status = ?, due_date = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.PaidAmount.String(), t.RemainingAmount.String(), string(t.Status),
		nullTime(t.DueDate), formatTime(t.UpdatedAt), t.ID,
	)
}

func (q *queries) DeleteDebtTarget(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete debt target", `DELETE FROM debt_targets WHERE id = ?`, id)
}

// GetDebtTarget scopes the target to its owner through the parent debt.
func (q *queries) GetDebtTarget(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.DebtTarget, error) {
	return q.getDebtTarget(ctx, ownerID, id, "")
}

// LockDebtTarget reads the target with a row lock on the target only; the
// parent debt stays unlocked.
func (q *queries) LockDebtTarget(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.DebtTarget, error) {
	return q.getDebtTarget(ctx, ownerID, id, q.dialect.lockOf("t"))
}

func (q *queries) getDebtTarget(ctx context.Context, ownerID ledger.OwnerID, id, suffix string) (*finance.DebtTarget, error) {
	row := q.queryRow(ctx, `
		SELECT t.id, t.debt_id, t.user_id, t.name, t.amount, t.paid_amount, t.remaining_amount,
			t.status, t.due_date, t.created_at, t.updated_at
		FROM debt_targets t
		JOIN debts d ON d.id = t.debt_id
		WHERE t.id = ? AND d.owner_id = ?`+suffix,
		id, string(ownerID),
	)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) DebtTargets(ctx context.Context, debtID string) ([]finance.DebtTarget, error) {
	rows, err := q.query(ctx, `
		SELECT `+targetColumns+` FROM debt_targets
		WHERE debt_id = ?
		ORDER BY created_at, name, id`,
		debtID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt targets: %w", err)
	}
	defer rows.Close()

	var targets []finance.DebtTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func scanTarget(sc scanner) (finance.DebtTarget, error) {
	var (
		target                          finance.DebtTarget
		userID, dueDate                 sql.NullString
		amount, paid, remaining, status string
		createdAt, updatedAt            string
	)
	err := sc.Scan(&target.ID, &target.DebtID, &userID, &target.Name, &amount, &paid, &remaining,
		&status, &dueDate, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return target, err
	}
	if err != nil {
		return target, fmt.Errorf("failed to scan debt target: %w", err)
	}
	target.UserID = stringPtr(userID)
	target.Status = finance.TargetStatus(status)
	err = decimals([]*decimal.Decimal{&target.Amount, &target.PaidAmount, &target.RemainingAmount},
		amount, paid, remaining)
	if err != nil {
		return target, err
	}
	if err := times([]*time.Time{&target.CreatedAt, &target.UpdatedAt}, createdAt, updatedAt); err != nil {
		return target, err
	}
	target.DueDate, err = parseNullTime(dueDate)
	return target, err
}

// =============================================================================
// DEBT PAYMENTS
// =============================================================================

const paymentColumns = `id, target_id, wallet_id, amount, note, paid_at, created_at`

func (q *queries) CreateDebtPayment(ctx context.Context, p finance.DebtPayment) error {
	_, err := q.exec(ctx, `
		INSERT INTO debt_payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TargetID, string(p.WalletID), p.Amount.String(), p.Note,
		formatTime(p.PaidAt), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create debt payment: %w", err)
	}
	return nil
}

func (q *queries) DeleteDebtPayment(ctx context.Context, id string) error {
	return q.execOne(ctx, "delete debt payment", `DELETE FROM debt_payments WHERE id = ?`, id)
}

func (q *queries) DebtPayments(ctx context.Context, targetID string) ([]finance.DebtPayment, error) {
	rows, err := q.query(ctx, `
		SELECT `+paymentColumns+` FROM debt_payments
		WHERE target_id = ?
		ORDER BY paid_at, created_at, id`,
		targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt payments: %w", err)
	}
	defer rows.Close()

	var payments []finance.DebtPayment
	for rows.Next() {
		var (
			p                 finance.DebtPayment
			wallet, amount    string
			paidAt, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.TargetID, &wallet, &amount, &p.Note, &paidAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt payment: %w", err)
		}
		p.WalletID = ledger.WalletID(wallet)
		if p.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if err := times([]*time.Time{&p.PaidAt, &p.CreatedAt}, paidAt, createdAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
