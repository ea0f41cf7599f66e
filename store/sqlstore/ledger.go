package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// WALLETS (ledger.Store)
// =============================================================================

const walletColumns = `id, owner_id, category_id, name, balance, created_at, updated_at, deleted_at`

func (q *queries) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	_, err := q.exec(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		string(w.ID), string(w.OwnerID), w.CategoryID, w.Name,
		decimal.Zero.String(), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (q *queries) UpdateWallet(ctx context.Context, w ledger.Wallet) error {
	return q.execOne(ctx, "update wallet", `
		UPDATE wallets SET name = ?, category_id = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		w.Name, w.CategoryID, formatTime(w.UpdatedAt), string(w.ID), string(w.OwnerID),
	)
}

func (q *queries) SoftDeleteWallet(ctx context.Context, ownerID ledger.OwnerID, id ledger.WalletID, at time.Time) error {
	return q.execOne(ctx, "delete wallet", `
		UPDATE wallets SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		formatTime(at), formatTime(at), string(id), string(ownerID),
	)
}

func (q *queries) GetWallet(ctx context.Context, ownerID ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	return q.getWallet(ctx, ownerID, id, "")
}

// LockWallet reads the wallet with the dialect's row lock. SQLite needs
// none: the single connection is already exclusive to the transaction.
func (q *queries) LockWallet(ctx context.Context, ownerID ledger.OwnerID, id ledger.WalletID) (*ledger.Wallet, error) {
	return q.getWallet(ctx, ownerID, id, q.dialect.forUpdate)
}

func (q *queries) getWallet(ctx context.Context, ownerID ledger.OwnerID, id ledger.WalletID, suffix string) (*ledger.Wallet, error) {
	row := q.queryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = ? AND owner_id = ?`+suffix,
		string(id), string(ownerID),
	)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (q *queries) ListWallets(ctx context.Context, ownerID ledger.OwnerID) ([]ledger.Wallet, error) {
	rows, err := q.query(ctx, `
		SELECT `+walletColumns+` FROM wallets
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY name, created_at`,
		string(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, *w)
	}
	return wallets, rows.Err()
}

// Owners lists every owner holding at least one live wallet.
func (q *queries) Owners(ctx context.Context) ([]ledger.OwnerID, error) {
	rows, err := q.query(ctx, `
		SELECT DISTINCT owner_id FROM wallets
		WHERE deleted_at IS NULL
		ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	defer rows.Close()

	var owners []ledger.OwnerID
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, ledger.OwnerID(o))
	}
	return owners, rows.Err()
}

func scanWallet(sc scanner) (*ledger.Wallet, error) {
	var (
		w                    ledger.Wallet
		id, owner            string
		balance              string
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := sc.Scan(&id, &owner, &w.CategoryID, &w.Name, &balance, &createdAt, &updatedAt, &deletedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	w.ID = ledger.WalletID(id)
	w.OwnerID = ledger.OwnerID(owner)

	var err error
	if w.Balance, err = parseDecimal(balance); err != nil {
		return nil, err
	}
	if err := times([]*time.Time{&w.CreatedAt, &w.UpdatedAt}, createdAt, updatedAt); err != nil {
		return nil, err
	}
	if w.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// =============================================================================
// MUTATIONS (ledger.Store)
// =============================================================================

const mutationColumns = `id, owner_id, wallet_id, sequence, type, last_balance, amount,
	current_balance, description, origin_kind, origin_id, created_at`

// AppendMutation inserts the mutation and moves the wallet balance in the
// same transaction. This is the only statement that writes wallets.balance.
func (q *queries) AppendMutation(ctx context.Context, m *ledger.Mutation) error {
	return q.atomic(ctx, func(tq *queries) error {
		var last int64
		err := tq.queryRow(ctx,
			`SELECT COALESCE(MAX(sequence), 0) FROM mutations WHERE wallet_id = ?`,
			string(m.WalletID),
		).Scan(&last)
		if err != nil {
			return fmt.Errorf("failed to read mutation sequence: %w", err)
		}
		m.Sequence = last + 1

		_, err = tq.exec(ctx, `
			INSERT INTO mutations (`+mutationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(m.ID), string(m.OwnerID), string(m.WalletID), m.Sequence, string(m.Type),
			m.LastBalance.String(), m.Amount.String(), m.CurrentBalance.String(),
			m.Description, string(m.OriginKind), m.OriginID, formatTime(m.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to append mutation: %w", err)
		}

		return tq.execOne(ctx, "update wallet balance", `
			UPDATE wallets SET balance = ?, updated_at = ?
			WHERE id = ? AND owner_id = ?`,
			m.CurrentBalance.String(), formatTime(m.CreatedAt), string(m.WalletID), string(m.OwnerID),
		)
	})
}

func (q *queries) Mutations(ctx context.Context, ownerID ledger.OwnerID, walletID ledger.WalletID) ([]ledger.Mutation, error) {
	return q.queryMutations(ctx, `
		SELECT `+mutationColumns+` FROM mutations
		WHERE owner_id = ? AND wallet_id = ?
		ORDER BY sequence`,
		string(ownerID), string(walletID),
	)
}

func (q *queries) MutationsByOrigin(ctx context.Context, ownerID ledger.OwnerID, kind ledger.OriginKind, originID string) ([]ledger.Mutation, error) {
	return q.queryMutations(ctx, `
		SELECT `+mutationColumns+` FROM mutations
		WHERE owner_id = ? AND origin_kind = ? AND origin_id = ?
		ORDER BY created_at, wallet_id, sequence`,
		string(ownerID), string(kind), originID,
	)
}

func (q *queries) queryMutations(ctx context.Context, query string, args ...any) ([]ledger.Mutation, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutations: %w", err)
	}
	defer rows.Close()

	var mutations []ledger.Mutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

func scanMutation(sc scanner) (ledger.Mutation, error) {
	var (
		m                                   ledger.Mutation
		id, owner, wallet, typ, kind        string
		lastBalance, amount, currentBalance string
		createdAt                           string
	)
	err := sc.Scan(&id, &owner, &wallet, &m.Sequence, &typ, &lastBalance, &amount,
		&currentBalance, &m.Description, &kind, &m.OriginID, &createdAt)
	if err != nil {
		return m, fmt.Errorf("failed to scan mutation: %w", err)
	}
	m.ID = ledger.MutationID(id)
	m.OwnerID = ledger.OwnerID(owner)
	m.WalletID = ledger.WalletID(wallet)
	m.Type = ledger.Direction(typ)
	m.OriginKind = ledger.OriginKind(kind)

	err = decimals([]*decimal.Decimal{&m.LastBalance, &m.Amount, &m.CurrentBalance},
		lastBalance, amount, currentBalance)
	if err != nil {
		return m, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return m, err
	}
	return m, nil
}
