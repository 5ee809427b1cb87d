package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/efreitasn/papertrader/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ LedgerSink = (*SQLiteLedgerSink)(nil)
var _ LedgerSink = (*JSONLedgerSink)(nil)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id TEXT NOT NULL UNIQUE,
	account_id     TEXT NOT NULL,
	kind           TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	quantity       TEXT NOT NULL,
	price          TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	order_id       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_id);
`

// SQLiteLedgerSink appends transactions as rows of a SQLite table. Rows are
// only ever inserted.
type SQLiteLedgerSink struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (or creates) the database at dbPath and ensures
// the schema exists.
func OpenSQLiteLedger(ctx context.Context, dbPath string) (*SQLiteLedgerSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedgerSink{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteLedgerSink) Close() error {
	return s.db.Close()
}

// Load returns every row in insertion order.
func (s *SQLiteLedgerSink) Load(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, account_id, kind, symbol, quantity, price,
		       timestamp, outcome, reason, order_id
		FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			kind      string
			outcome   string
			timestamp string
		)
		if err := rows.Scan(&tx.TransactionID, &tx.AccountID, &kind, &tx.Symbol,
			&tx.Quantity, &tx.Price, &timestamp, &outcome, &tx.Reason, &tx.OrderID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = domain.TransactionKind(kind)
		tx.Outcome = domain.TransactionOutcome(outcome)
		tx.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", tx.TransactionID, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Append inserts tx.
func (s *SQLiteLedgerSink) Append(ctx context.Context, tx domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(transaction_id, account_id, kind, symbol, quantity, price,
			 timestamp, outcome, reason, order_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.TransactionID, tx.AccountID, string(tx.Kind), tx.Symbol,
		tx.Quantity.String(), tx.Price.String(),
		tx.Timestamp.UTC().Format(time.RFC3339Nano), string(tx.Outcome),
		tx.Reason, tx.OrderID,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.TransactionID, err)
	}
	return nil
}
