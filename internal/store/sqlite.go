package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/efreitasn/tradeserver/internal/domain"
	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT so decimals round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    first_name TEXT,
    last_name TEXT,
    user_name TEXT NOT NULL,
    password TEXT,
    usd_balance TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stocks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_symbol TEXT NOT NULL,
    stock_balance TEXT NOT NULL,
    user_id INTEGER NOT NULL REFERENCES users(id),
    UNIQUE(user_id, stock_symbol)
);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlLedger implements Ledger on top of a querier.
type sqlLedger struct {
	q querier
}

func (l *sqlLedger) AccountCount(ctx context.Context) (int, error) {
	var n int
	if err := l.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (l *sqlLedger) Account(ctx context.Context, id int64) (*domain.Account, error) {
	var (
		a                   domain.Account
		first, last, passwd sql.NullString
	)
	err := l.q.QueryRowContext(ctx, `
SELECT id, first_name, last_name, user_name, password, usd_balance
FROM users WHERE id = ?`, id).Scan(&a.ID, &first, &last, &a.UserName, &passwd, &a.Cash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	a.FirstName = first.String
	a.LastName = last.String
	a.Password = passwd.String
	return &a, nil
}

func (l *sqlLedger) CreateAccount(ctx context.Context, a domain.NewAccount) (int64, error) {
	res, err := l.q.ExecContext(ctx, `
INSERT INTO users (first_name, last_name, user_name, password, usd_balance)
VALUES (?, ?, ?, ?, ?)`, a.FirstName, a.LastName, a.UserName, a.Password, a.InitialBalance.String())
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user id: %w", err)
	}
	return id, nil
}

func (l *sqlLedger) CashBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := l.q.QueryRowContext(ctx, `SELECT usd_balance FROM users WHERE id = ?`, id).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance of user %d: %w", id, err)
	}
	return cash, nil
}

func (l *sqlLedger) SetCashBalance(ctx context.Context, id int64, cash decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, `UPDATE users SET usd_balance = ? WHERE id = ?`, cash.String(), id)
	if err != nil {
		return fmt.Errorf("update balance of user %d: %w", id, err)
	}
	return requireRow(res, domain.ErrAccountNotFound)
}

func (l *sqlLedger) ensureAccount(ctx context.Context, id int64) error {
	var one int
	err := l.q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", id, err)
	}
	return nil
}

func (l *sqlLedger) HasHolding(ctx context.Context, id int64, symbol string) (bool, error) {
	if err := l.ensureAccount(ctx, id); err != nil {
		return false, err
	}
	var n int
	err := l.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stocks WHERE user_id = ? AND stock_symbol = ?`, id, symbol).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count %s holdings of user %d: %w", symbol, id, err)
	}
	return n > 0, nil
}

func (l *sqlLedger) HoldingQuantity(ctx context.Context, id int64, symbol string) (decimal.Decimal, error) {
	if err := l.ensureAccount(ctx, id); err != nil {
		return decimal.Zero, err
	}
	var qty decimal.Decimal
	err := l.q.QueryRowContext(ctx,
		`SELECT stock_balance FROM stocks WHERE user_id = ? AND stock_symbol = ?`, id, symbol).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.ErrHoldingNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get %s holding of user %d: %w", symbol, id, err)
	}
	return qty, nil
}

func (l *sqlLedger) SetHoldingQuantity(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error {
	if err := l.ensureAccount(ctx, id); err != nil {
		return err
	}
	var (
		res sql.Result
		err error
	)
	if qty.IsZero() {
		res, err = l.q.ExecContext(ctx,
			`DELETE FROM stocks WHERE user_id = ? AND stock_symbol = ?`, id, symbol)
	} else {
		res, err = l.q.ExecContext(ctx,
			`UPDATE stocks SET stock_balance = ? WHERE user_id = ? AND stock_symbol = ?`, qty.String(), id, symbol)
	}
	if err != nil {
		return fmt.Errorf("update %s holding of user %d: %w", symbol, id, err)
	}
	return requireRow(res, domain.ErrHoldingNotFound)
}

func (l *sqlLedger) CreateHolding(ctx context.Context, id int64, symbol string, qty decimal.Decimal) error {
	held, err := l.HasHolding(ctx, id, symbol)
	if err != nil {
		return err
	}
	if held {
		return domain.ErrHoldingExists
	}
	_, err = l.q.ExecContext(ctx,
		`INSERT INTO stocks (stock_symbol, stock_balance, user_id) VALUES (?, ?, ?)`, symbol, qty.String(), id)
	if err != nil {
		return fmt.Errorf("insert %s holding of user %d: %w", symbol, id, err)
	}
	return nil
}

func (l *sqlLedger) ListHoldings(ctx context.Context, id int64) ([]domain.Holding, error) {
	if err := l.ensureAccount(ctx, id); err != nil {
		return nil, err
	}
	rows, err := l.q.QueryContext(ctx,
		`SELECT stock_symbol, stock_balance FROM stocks WHERE user_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list holdings of user %d: %w", id, err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Quantity); err != nil {
			return nil, fmt.Errorf("scan holding of user %d: %w", id, err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings of user %d: %w", id, err)
	}
	return holdings, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// SQLiteStore is a Store persisted in a SQLite database file.
type SQLiteStore struct {
	*sqlLedger
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path.
// The pool is limited to one connection, which serializes every
// statement and transaction against the file.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{sqlLedger: &sqlLedger{q: db}, db: db}, nil
}

// Atomic runs fn inside a transaction, committing on success and rolling
// back on error.
func (s *SQLiteStore) Atomic(ctx context.Context, fn func(Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// No-op after Commit; releases the only pooled connection if fn fails
	// or panics.
	defer tx.Rollback()

	if err := fn(&sqlLedger{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
