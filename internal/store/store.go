// Package store holds the item and transaction operations on the SQLite store.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// setList accumulates "column = ?" assignments for partial updates.
type setList struct {
	cols []string
	args []any
}

func (s *setList) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setList) empty() bool { return len(s.cols) == 0 }

// count returns the number of rows in table.
func count(ctx context.Context, db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// CountItems returns the number of items.
func CountItems(ctx context.Context, db *sql.DB) (int, error) {
	return count(ctx, db, "inventoryitem")
}

// CountTransactions returns the number of transactions.
func CountTransactions(ctx context.Context, db *sql.DB) (int, error) {
	return count(ctx, db, `"transaction"`)
}
