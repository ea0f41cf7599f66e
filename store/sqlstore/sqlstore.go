/*
Package sqlstore provides the SQL-backed implementation of the ledger and
finance storage interfaces.

PURPOSE:
  Implements finance.TxStore (and with it ledger.Store) on database/sql.
  The same queries run on three drivers:

    sqlite3  github.com/mattn/go-sqlite3 (cgo, default)
    sqlite   modernc.org/sqlite (pure Go)
    pgx      github.com/jackc/pgx/v5/stdlib (PostgreSQL)

  Queries are written with "?" placeholders and rebound to "$n" for
  PostgreSQL.

KEY TABLES:
  wallets:          balance + soft delete (deleted_at)
  mutations:        append-only ledger, UNIQUE(wallet_id, sequence)
  incomes, transactions, wallet_transfers
  debts, debt_targets, debt_payments

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statement touches the mutations table
  - wallets.balance is written by exactly one statement, in AppendMutation

CONCURRENCY:
  SQLite databases are opened with a single connection, so a transaction
  holds the only writer until it commits and the balance read/compute/write
  sequence cannot interleave. On PostgreSQL, LockWallet and
  LockDebtTarget issue SELECT ... FOR UPDATE, so a payment re-reads a
  target's remaining amount only after any earlier payment has committed.
  In both cases the (wallet_id, sequence) unique index turns a lost
  update into an error.

USAGE:
  store, err := sqlstore.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := finance.NewService(store)

MIGRATION:
  Schema is auto-migrated on Open(). Statements are idempotent.
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/wallet-ledger/finance"
	_ "modernc.org/sqlite"
)

// Driver names as registered with database/sql.
type Driver string

const (
	DriverSQLite   Driver = "sqlite3"
	DriverModernc  Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

func (d Driver) Valid() bool {
	return d == DriverSQLite || d == DriverModernc || d == DriverPostgres
}

func (d Driver) isSQLite() bool { return d == DriverSQLite || d == DriverModernc }

var _ finance.TxStore = (*Store)(nil)

// Store implements finance.TxStore on a *sql.DB.
type Store struct {
	*queries
	db *sql.DB
}

// New opens a SQLite database with the default driver.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return Open(DriverSQLite, dbPath)
}

// Open connects with the given driver and migrates the schema. For the
// SQLite drivers dsn may be a bare path; connection options are added.
func Open(driver Driver, dsn string) (*Store, error) {
	if !driver.Valid() {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(string(driver), buildDSN(driver, dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver.isSQLite() {
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		queries: &queries{q: db, dialect: dialectFor(driver)},
		db:      db,
	}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func buildDSN(driver Driver, dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	switch driver {
	case DriverSQLite:
		return dsn + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	case DriverModernc:
		if dsn == ":memory:" {
			return "file::memory:?_pragma=foreign_keys(1)"
		}
		return "file:" + dsn + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	return dsn
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	return s.queries.atomic(ctx, func(q *queries) error { return fn(q) })
}

// =============================================================================
// QUERY PLUMBING
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries runs statements against either the pool or an open transaction.
// Every finance.Store method is defined on it.
type queries struct {
	q       querier
	dialect dialect
}

// atomic runs fn in a transaction, or directly if one is already open.
func (q *queries) atomic(ctx context.Context, fn func(*queries) error) error {
	db, ok := q.q.(*sql.DB)
	if !ok {
		return fn(q)
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx, dialect: q.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

// execOne runs a write that must touch exactly one row.
func (q *queries) execOne(ctx context.Context, what, query string, args ...any) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n != 1 {
		return fmt.Errorf("failed to %s: %d rows affected", what, n)
	}
	return nil
}

// =============================================================================
// DIALECT
// =============================================================================

type dialect struct {
	dollar    bool   // $1, $2 ... placeholders
	forUpdate string // row-lock suffix for LockWallet
}

// lockOf is the row-lock suffix limited to one table alias of a join.
func (d dialect) lockOf(alias string) string {
	if d.forUpdate == "" {
		return ""
	}
	return d.forUpdate + " OF " + alias
}

func dialectFor(driver Driver) dialect {
	if driver == DriverPostgres {
		return dialect{dollar: true, forUpdate: " FOR UPDATE"}
	}
	return dialect{}
}

// rebind rewrites "?" placeholders for PostgreSQL. Queries in this package
// never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// =============================================================================
// VALUE CONVERSION
// =============================================================================

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad decimal %q: %w", s, err)
	}
	return d, nil
}

// decimals parses several stored amounts at once.
func decimals(dst []*decimal.Decimal, src ...string) error {
	for i, s := range src {
		d, err := parseDecimal(s)
		if err != nil {
			return err
		}
		*dst[i] = d
	}
	return nil
}

// times parses several stored timestamps at once.
func times(dst []*time.Time, src ...string) error {
	for i, s := range src {
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		*dst[i] = t
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
