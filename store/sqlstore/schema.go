package sqlstore

import (
	"context"
	"fmt"
)

// schema is applied statement by statement so that it runs unchanged on
// SQLite and PostgreSQL. Amounts are TEXT to keep decimal precision;
// timestamps are TEXT in timeLayout.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		category_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallets_owner
		ON wallets(owner_id, deleted_at)`,

	`CREATE TABLE IF NOT EXISTS mutations (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		sequence BIGINT NOT NULL,
		type TEXT NOT NULL,
		last_balance TEXT NOT NULL,
		amount TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		description TEXT NOT NULL,
		origin_kind TEXT NOT NULL,
		origin_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_mutations_wallet_sequence
		ON mutations(wallet_id, sequence)`,
	`CREATE INDEX IF NOT EXISTS idx_mutations_origin
		ON mutations(owner_id, origin_kind, origin_id)`,

	`CREATE TABLE IF NOT EXISTS incomes (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		category_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_incomes_owner
		ON incomes(owner_id, published_at)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		category_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL,
		is_debt INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_owner
		ON transactions(owner_id, published_at)`,

	`CREATE TABLE IF NOT EXISTS wallet_transfers (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		from_wallet_id TEXT NOT NULL REFERENCES wallets(id),
		to_wallet_id TEXT NOT NULL REFERENCES wallets(id),
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_transfers_owner
		ON wallet_transfers(owner_id, published_at)`,

	`CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL,
		transaction_id TEXT REFERENCES transactions(id),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_debts_owner
		ON debts(owner_id, published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_debts_transaction
		ON debts(transaction_id)`,

	`CREATE TABLE IF NOT EXISTS debt_targets (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL REFERENCES debts(id),
		user_id TEXT,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_debt_targets_debt
		ON debt_targets(debt_id)`,

	`CREATE TABLE IF NOT EXISTS debt_payments (
		id TEXT PRIMARY KEY,
		target_id TEXT NOT NULL REFERENCES debt_targets(id),
		wallet_id TEXT NOT NULL REFERENCES wallets(id),
		amount TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		paid_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_debt_payments_target
		ON debt_payments(target_id)`,
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\n%s", err, stmt)
		}
	}
	return nil
}

// Migrate re-applies the schema. Open already does this; the CLI exposes
// it for databases created by an older build.
func (s *Store) Migrate(ctx context.Context) error {
	return s.migrate(ctx)
}
