package sqlutil

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Query renders a squirrel builder and runs it.
func Query(ctx context.Context, q Querier, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.QueryContext(ctx, query, args...)
}

// ScanRows scans all rows into a slice using the provided scanner.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// QueryAll combines Query and ScanRows.
func QueryAll[T any](ctx context.Context, q Querier, b sq.Sqlizer, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := Query(ctx, q, b)
	if err != nil {
		return nil, err
	}
	return ScanRows(rows, scan)
}
