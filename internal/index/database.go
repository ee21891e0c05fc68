// Package index handles SQLite storage of databases, tables, rows and cells.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Database is the SQLite database handle.
type Database struct {
	db *sql.DB
}

var (
	// ErrDatabaseNotFound indicates the tenant has no database with that ID.
	ErrDatabaseNotFound = errors.New("database not found")
	// ErrTableNotFound indicates the database has no table with that ID.
	ErrTableNotFound = errors.New("table not found")
)

// DB returns the underlying sql.DB for advanced queries.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Open opens or creates the database file at path.
func Open(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Database, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

// initialize creates the database schema.
func (d *Database) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS databases (
			id INTEGER PRIMARY KEY,
			tenant_id INTEGER NOT NULL,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tables (
			id INTEGER PRIMARY KEY,
			database_id INTEGER NOT NULL REFERENCES databases(id) ON DELETE CASCADE,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS columns (
			id INTEGER PRIMARY KEY,
			table_id INTEGER NOT NULL REFERENCES tables(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			reference_table_id INTEGER,
			col_order INTEGER NOT NULL DEFAULT 0,
			is_primary INTEGER NOT NULL DEFAULT 0,
			custom_options TEXT            -- JSON object
		);

		CREATE TABLE IF NOT EXISTS rows (
			id INTEGER PRIMARY KEY,
			table_id INTEGER NOT NULL REFERENCES tables(id) ON DELETE CASCADE
		);

		-- value is the stored JSON text; its shape follows the column type
		CREATE TABLE IF NOT EXISTS cells (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			row_id INTEGER NOT NULL REFERENCES rows(id) ON DELETE CASCADE,
			column_id INTEGER NOT NULL REFERENCES columns(id) ON DELETE CASCADE,
			value TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tables_database ON tables(database_id);
		CREATE INDEX IF NOT EXISTS idx_columns_table ON columns(table_id);
		CREATE INDEX IF NOT EXISTS idx_rows_table ON rows(table_id);
		CREATE INDEX IF NOT EXISTS idx_cells_row_column ON cells(row_id, column_id);
		CREATE INDEX IF NOT EXISTS idx_cells_column ON cells(column_id);
	`

	_, err := d.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	_, err = d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", CurrentDBVersion))
	if err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}

	return nil
}
