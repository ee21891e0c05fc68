package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/model"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// EncodeValue renders a cell value as the JSON text the cells table stores.
// A nil value is stored as SQL NULL.
func EncodeValue(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func insertDatabase(ctx context.Context, e execer, db model.Database) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO databases (id, tenant_id, name) VALUES (?, ?, ?)`,
		db.ID, db.TenantID, db.Name)
	if err != nil {
		return fmt.Errorf("insert database %d: %w", db.ID, err)
	}
	return nil
}

func insertTable(ctx context.Context, e execer, t model.Table) error {
	if _, err := e.ExecContext(ctx,
		`INSERT INTO tables (id, database_id, name) VALUES (?, ?, ?)`,
		t.ID, t.DatabaseID, t.Name); err != nil {
		return fmt.Errorf("insert table %d: %w", t.ID, err)
	}
	for _, c := range t.Columns {
		c.TableID = t.ID
		if err := insertColumn(ctx, e, c); err != nil {
			return err
		}
	}
	return nil
}

func insertColumn(ctx context.Context, e execer, c model.Column) error {
	var options sql.NullString
	if len(c.CustomOptions) > 0 {
		b, err := json.Marshal(c.CustomOptions)
		if err != nil {
			return fmt.Errorf("column %d: encode custom options: %w", c.ID, err)
		}
		options = sql.NullString{String: string(b), Valid: true}
	}

	primary := 0
	if c.Primary {
		primary = 1
	}

	_, err := e.ExecContext(ctx,
		`INSERT INTO columns (id, table_id, name, type, reference_table_id, col_order, is_primary, custom_options)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TableID, c.Name, string(c.Type), c.ReferenceTableID, c.Order, primary, options)
	if err != nil {
		return fmt.Errorf("insert column %d: %w", c.ID, err)
	}
	return nil
}

// insertRow stores the row and its cells. Cell.Raw is written verbatim so
// callers can store text that is not valid JSON.
func insertRow(ctx context.Context, e execer, r model.Row) error {
	if _, err := e.ExecContext(ctx,
		`INSERT INTO rows (id, table_id) VALUES (?, ?)`, r.ID, r.TableID); err != nil {
		return fmt.Errorf("insert row %d: %w", r.ID, err)
	}
	for _, c := range r.Cells {
		var value sql.NullString
		if c.Raw != "" {
			value = sql.NullString{String: c.Raw, Valid: true}
		}
		if _, err := e.ExecContext(ctx,
			`INSERT INTO cells (row_id, column_id, value) VALUES (?, ?, ?)`,
			r.ID, c.ColumnID, value); err != nil {
			return fmt.Errorf("insert cell %d/%d: %w", r.ID, c.ColumnID, err)
		}
	}
	return nil
}

// CreateDatabase inserts a database.
func (d *Database) CreateDatabase(ctx context.Context, db model.Database) error {
	return insertDatabase(ctx, d.db, db)
}

// CreateTable inserts a table and its columns in one transaction.
func (d *Database) CreateTable(ctx context.Context, t model.Table) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return insertTable(ctx, tx, t)
	})
}

// InsertRows inserts rows with their cells in one transaction.
func (d *Database) InsertRows(ctx context.Context, rows ...model.Row) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			if err := insertRow(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Database) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
