package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/model"
	"github.com/aidanlsb/tabula/internal/sqlutil"
)

// RowAlias is the alias FindRows gives the rows relation. Predicates passed
// to FindRows refer to the current row as r.id / r.table_id.
const RowAlias = "r"

// DatabaseByID returns the tenant's database, or ErrDatabaseNotFound.
func (d *Database) DatabaseByID(ctx context.Context, tenantID, databaseID int64) (model.Database, error) {
	var db model.Database
	err := d.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name FROM databases WHERE id = ? AND tenant_id = ?`,
		databaseID, tenantID,
	).Scan(&db.ID, &db.TenantID, &db.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Database{}, fmt.Errorf("database %d: %w", databaseID, ErrDatabaseNotFound)
	}
	if err != nil {
		return model.Database{}, fmt.Errorf("failed to load database %d: %w", databaseID, err)
	}
	return db, nil
}

// TableInDatabase returns the table definition (without rows), or
// ErrTableNotFound when it does not belong to the database.
func (d *Database) TableInDatabase(ctx context.Context, databaseID, tableID int64) (model.Table, error) {
	var t model.Table
	err := d.db.QueryRowContext(ctx,
		`SELECT id, database_id, name FROM tables WHERE id = ? AND database_id = ?`,
		tableID, databaseID,
	).Scan(&t.ID, &t.DatabaseID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Table{}, fmt.Errorf("table %d: %w", tableID, ErrTableNotFound)
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("failed to load table %d: %w", tableID, err)
	}
	return t, nil
}

var columnFields = []string{
	"id", "table_id", "name", "type", "reference_table_id", "col_order", "is_primary", "custom_options",
}

// ColumnsByTable returns the table's columns ordered by display order.
func (d *Database) ColumnsByTable(ctx context.Context, tableID int64) ([]model.Column, error) {
	cols, err := d.columnsWhere(ctx, sq.Eq{"table_id": tableID})
	if err != nil {
		return nil, fmt.Errorf("failed to load columns of table %d: %w", tableID, err)
	}
	return cols, nil
}

func (d *Database) columnsWhere(ctx context.Context, where sq.Sqlizer) ([]model.Column, error) {
	b := sq.Select(columnFields...).From("columns").Where(where).OrderBy("table_id", "col_order", "id")
	return sqlutil.QueryAll(ctx, d.db, b, scanColumn)
}

func scanColumn(rows *sql.Rows) (model.Column, error) {
	var (
		c       model.Column
		typ     string
		refID   sql.NullInt64
		primary int
		options sql.NullString
	)
	if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &typ, &refID, &c.Order, &primary, &options); err != nil {
		return model.Column{}, err
	}
	c.Type = model.ColumnType(typ)
	c.Primary = primary != 0
	if refID.Valid {
		id := refID.Int64
		c.ReferenceTableID = &id
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &c.CustomOptions); err != nil {
			return model.Column{}, fmt.Errorf("column %d: invalid custom options: %w", c.ID, err)
		}
	}
	return c, nil
}

// FindRows returns up to take rows matching pred, ordered by id, with every
// cell attached and decoded by its column's declared type.
//
// pred is evaluated against the rows relation aliased as RowAlias and must
// include the table constraint itself.
func (d *Database) FindRows(ctx context.Context, pred sq.Sqlizer, take int) ([]model.Row, error) {
	if take <= 0 {
		return nil, nil
	}

	page := sq.Select("r.id", "r.table_id").
		From("rows " + RowAlias).
		Where(pred).
		OrderBy("r.id").
		Limit(uint64(take))

	b := sq.Select("page.id", "page.table_id", "c.column_id", "c.value", "col.type").
		FromSelect(page, "page").
		LeftJoin("cells c ON c.row_id = page.id").
		LeftJoin("columns col ON col.id = c.column_id").
		OrderBy("page.id", "c.id")

	rows, err := d.queryRowCells(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to find rows: %w", err)
	}
	return rows, nil
}

// TablesByIDs bulk-loads tables with their columns, rows and cells. IDs that
// do not exist are skipped.
func (d *Database) TablesByIDs(ctx context.Context, ids []int64) ([]model.Table, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tb := sq.Select("id", "database_id", "name").From("tables").Where(sq.Eq{"id": ids}).OrderBy("id")
	tables, err := sqlutil.QueryAll(ctx, d.db, tb, func(rows *sql.Rows) (model.Table, error) {
		var t model.Table
		err := rows.Scan(&t.ID, &t.DatabaseID, &t.Name)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	if len(tables) == 0 {
		return nil, nil
	}

	cols, err := d.columnsWhere(ctx, sq.Eq{"table_id": ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}

	rb := sq.Select("r.id", "r.table_id", "c.column_id", "c.value", "col.type").
		From("rows r").
		LeftJoin("cells c ON c.row_id = r.id").
		LeftJoin("columns col ON col.id = c.column_id").
		Where(sq.Eq{"r.table_id": ids}).
		OrderBy("r.table_id", "r.id", "c.id")
	rows, err := d.queryRowCells(ctx, rb)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}

	byID := make(map[int64]*model.Table, len(tables))
	for i := range tables {
		byID[tables[i].ID] = &tables[i]
	}
	for _, c := range cols {
		if t, ok := byID[c.TableID]; ok {
			t.Columns = append(t.Columns, c)
		}
	}
	for _, r := range rows {
		if t, ok := byID[r.TableID]; ok {
			t.Rows = append(t.Rows, r)
		}
	}
	return tables, nil
}

type rowCell struct {
	rowID    int64
	tableID  int64
	columnID sql.NullInt64
	value    sql.NullString
	colType  sql.NullString
}

// queryRowCells runs a row LEFT JOIN cells query and folds it into rows,
// preserving the query's ordering. Rows without cells are kept.
func (d *Database) queryRowCells(ctx context.Context, b sq.Sqlizer) ([]model.Row, error) {
	items, err := sqlutil.QueryAll(ctx, d.db, b, func(rows *sql.Rows) (rowCell, error) {
		var rc rowCell
		err := rows.Scan(&rc.rowID, &rc.tableID, &rc.columnID, &rc.value, &rc.colType)
		return rc, err
	})
	if err != nil {
		return nil, err
	}

	var out []model.Row
	for _, rc := range items {
		if len(out) == 0 || out[len(out)-1].ID != rc.rowID {
			out = append(out, model.Row{ID: rc.rowID, TableID: rc.tableID})
		}
		if !rc.columnID.Valid {
			continue
		}
		raw := ""
		if rc.value.Valid {
			raw = rc.value.String
		}
		row := &out[len(out)-1]
		row.Cells = append(row.Cells, model.Cell{
			ColumnID: rc.columnID.Int64,
			Raw:      raw,
			Value:    model.DecodeCell(model.ColumnType(rc.colType.String), raw),
		})
	}
	return out, nil
}
