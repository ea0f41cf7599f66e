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
// INCOMES
// =============================================================================

const incomeColumns = `id, owner_id, wallet_id, category_id, title, amount, description,
	published_at, created_at, updated_at`

func (q *queries) CreateIncome(ctx context.Context, in finance.Income) error {
	_, err := q.exec(ctx, `
		INSERT INTO incomes (`+incomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, string(in.OwnerID), string(in.WalletID), in.CategoryID, in.Title,
		in.Amount.String(), in.Description, formatTime(in.PublishedAt),
		formatTime(in.CreatedAt), formatTime(in.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

// UpdateIncome writes the descriptive fields. Amount and wallet are fixed
// once the income has credited its wallet.
func (q *queries) UpdateIncome(ctx context.Context, in finance.Income) error {
	return q.execOne(ctx, "update income", `
		UPDATE incomes SET category_id = ?, title = ?, description = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		in.CategoryID, in.Title, in.Description, formatTime(in.PublishedAt), formatTime(in.UpdatedAt),
		in.ID, string(in.OwnerID),
	)
}

func (q *queries) DeleteIncome(ctx context.Context, ownerID ledger.OwnerID, id string) error {
	return q.execOne(ctx, "delete income",
		`DELETE FROM incomes WHERE id = ? AND owner_id = ?`, id, string(ownerID))
}

func (q *queries) GetIncome(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.Income, error) {
	row := q.queryRow(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND owner_id = ?`, id, string(ownerID))
	in, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (q *queries) ListIncomes(ctx context.Context, ownerID ledger.OwnerID) ([]finance.Income, error) {
	rows, err := q.query(ctx, `
		SELECT `+incomeColumns+` FROM incomes
		WHERE owner_id = ?
		ORDER BY published_at DESC, created_at DESC`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []finance.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

func scanIncome(sc scanner) (finance.Income, error) {
	var (
		in                                finance.Income
		owner, wallet, amount             string
		publishedAt, createdAt, updatedAt string
	)
	err := sc.Scan(&in.ID, &owner, &wallet, &in.CategoryID, &in.Title, &amount, &in.Description,
		&publishedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return in, err
	}
	if err != nil {
		return in, fmt.Errorf("failed to scan income: %w", err)
	}
	in.OwnerID = ledger.OwnerID(owner)
	in.WalletID = ledger.WalletID(wallet)
	if in.Amount, err = parseDecimal(amount); err != nil {
		return in, err
	}
	err = times([]*time.Time{&in.PublishedAt, &in.CreatedAt, &in.UpdatedAt},
		publishedAt, createdAt, updatedAt)
	return in, err
}

// =============================================================================
// TRANSACTIONS (expenses)
// =============================================================================

const transactionColumns = `id, owner_id, wallet_id, category_id, title, amount, fee, description,
	published_at, is_debt, created_at, updated_at`

func (q *queries) CreateTransaction(ctx context.Context, tx finance.Transaction) error {
	_, err := q.exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.OwnerID), string(tx.WalletID), tx.CategoryID, tx.Title,
		tx.Amount.String(), tx.Fee.String(), tx.Description, formatTime(tx.PublishedAt),
		boolInt(tx.IsDebt), formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, tx finance.Transaction) error {
	return q.execOne(ctx, "update transaction", `
		UPDATE transactions SET category_id = ?, title = ?, description = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		tx.CategoryID, tx.Title, tx.Description, formatTime(tx.PublishedAt), formatTime(tx.UpdatedAt),
		tx.ID, string(tx.OwnerID),
	)
}

func (q *queries) DeleteTransaction(ctx context.Context, ownerID ledger.OwnerID, id string) error {
	return q.execOne(ctx, "delete transaction",
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, string(ownerID))
}

func (q *queries) GetTransaction(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.Transaction, error) {
	row := q.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND owner_id = ?`, id, string(ownerID))
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (q *queries) ListTransactions(ctx context.Context, ownerID ledger.OwnerID) ([]finance.Transaction, error) {
	rows, err := q.query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE owner_id = ?
		ORDER BY published_at DESC, created_at DESC`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []finance.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(sc scanner) (finance.Transaction, error) {
	var (
		tx                                finance.Transaction
		owner, wallet, amount, fee        string
		publishedAt, createdAt, updatedAt string
		isDebt                            int64
	)
	err := sc.Scan(&tx.ID, &owner, &wallet, &tx.CategoryID, &tx.Title, &amount, &fee, &tx.Description,
		&publishedAt, &isDebt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return tx, err
	}
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.OwnerID = ledger.OwnerID(owner)
	tx.WalletID = ledger.WalletID(wallet)
	tx.IsDebt = isDebt != 0
	if err := decimals([]*decimal.Decimal{&tx.Amount, &tx.Fee}, amount, fee); err != nil {
		return tx, err
	}
	err = times([]*time.Time{&tx.PublishedAt, &tx.CreatedAt, &tx.UpdatedAt},
		publishedAt, createdAt, updatedAt)
	return tx, err
}

// =============================================================================
// WALLET TRANSFERS
// =============================================================================

const transferColumns = `id, owner_id, from_wallet_id, to_wallet_id, amount, fee, description,
	published_at, created_at`

func (q *queries) CreateTransfer(ctx context.Context, t finance.Transfer) error {
	_, err := q.exec(ctx, `
		INSERT INTO wallet_transfers (`+transferColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.OwnerID), string(t.FromWalletID), string(t.ToWalletID),
		t.Amount.String(), t.Fee.String(), t.Description,
		formatTime(t.PublishedAt), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (q *queries) GetTransfer(ctx context.Context, ownerID ledger.OwnerID, id string) (*finance.Transfer, error) {
	row := q.queryRow(ctx,
		`SELECT `+transferColumns+` FROM wallet_transfers WHERE id = ? AND owner_id = ?`, id, string(ownerID))
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) ListTransfers(ctx context.Context, ownerID ledger.OwnerID) ([]finance.Transfer, error) {
	rows, err := q.query(ctx, `
		SELECT `+transferColumns+` FROM wallet_transfers
		WHERE owner_id = ?
		ORDER BY published_at DESC, created_at DESC`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []finance.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func scanTransfer(sc scanner) (finance.Transfer, error) {
	var (
		t                      finance.Transfer
		owner, from, to        string
		amount, fee            string
		publishedAt, createdAt string
	)
	err := sc.Scan(&t.ID, &owner, &from, &to, &amount, &fee, &t.Description, &publishedAt, &createdAt)
	if err == sql.ErrNoRows {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan transfer: %w", err)
	}
	t.OwnerID = ledger.OwnerID(owner)
	t.FromWalletID = ledger.WalletID(from)
	t.ToWalletID = ledger.WalletID(to)
	if err := decimals([]*decimal.Decimal{&t.Amount, &t.Fee}, amount, fee); err != nil {
		return t, err
	}
	err = times([]*time.Time{&t.PublishedAt, &t.CreatedAt}, publishedAt, createdAt)
	return t, err
}
