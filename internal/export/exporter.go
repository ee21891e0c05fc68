// Package export runs the table export pipeline: parameter decoding, filter
// compilation, the capped fetch, the in-memory fallback pass, reference
// resolution and CSV rendering.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aidanlsb/tabula/internal/filter"
	"github.com/aidanlsb/tabula/internal/index"
	"github.com/aidanlsb/tabula/internal/logging"
	"github.com/aidanlsb/tabula/internal/model"
	"github.com/aidanlsb/tabula/internal/query"
	"github.com/aidanlsb/tabula/internal/resolver"
)

// Store is the read side of the row/cell store the pipeline consumes.
type Store interface {
	DatabaseByID(ctx context.Context, tenantID, databaseID int64) (model.Database, error)
	TableInDatabase(ctx context.Context, databaseID, tableID int64) (model.Table, error)
	ColumnsByTable(ctx context.Context, tableID int64) ([]model.Column, error)
	FindRows(ctx context.Context, pred sq.Sqlizer, take int) ([]model.Row, error)
	resolver.TableLoader
}

// Options configures an Exporter.
type Options struct {
	// OverFetchFactor multiplies the fetch cap when fallback conditions are
	// present, so rows removed in memory can be replaced. 1 (or less) keeps
	// the cap at the requested limit and the result may come back short.
	OverFetchFactor int

	DateLayout string
	Location   *time.Location

	Logger *slog.Logger
}

// Exporter runs exports. It keeps no per-request state.
type Exporter struct {
	store    Store
	compiler *query.Compiler
	opts     Options
	logger   *slog.Logger
}

// New creates an Exporter.
func New(store Store, compiler *query.Compiler, opts Options) *Exporter {
	if opts.OverFetchFactor < 1 {
		opts.OverFetchFactor = 1
	}
	return &Exporter{
		store:    store,
		compiler: compiler,
		opts:     opts,
		logger:   logging.Default(opts.Logger).With("component", "export"),
	}
}

// Request identifies the table to export and carries its parameters.
type Request struct {
	TenantID   int64
	DatabaseID int64
	TableID    int64
	Params
}

// Result is a finished export.
type Result struct {
	Table   model.Table
	Columns []model.Column // display order
	Rows    []model.Row
	CSV     string

	// Ignored lists every filter that did not constrain the export.
	Ignored []filter.Ignored

	// Fetched is the number of rows the store returned before the
	// fallback pass.
	Fetched int

	serializer *Serializer
}

// Records renders every exported row as one field per column, the same
// values CSV carries.
func (r *Result) Records() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = r.serializer.Fields(row, r.Columns)
	}
	return out
}

// Export runs the pipeline. It fails only for a missing database or table
// and for store errors; malformed filters and unresolved references are
// tolerated.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if _, err := e.store.DatabaseByID(ctx, req.TenantID, req.DatabaseID); err != nil {
		return nil, notFound(err)
	}
	table, err := e.store.TableInDatabase(ctx, req.DatabaseID, req.TableID)
	if err != nil {
		return nil, notFound(err)
	}

	columns, err := e.store.ColumnsByTable(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	columns = model.SortColumns(columns)

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	compiled := e.compiler.Compile(table.ID, columns, req.Filters, req.GlobalSearch)
	ignored := append(append([]filter.Ignored(nil), req.Ignored...), compiled.Ignored...)

	fallbackOpts := e.compiler.FallbackOptions()
	take := limit
	if len(filter.FallbackConditions(compiled.Conditions, fallbackOpts)) > 0 {
		take = limit * e.opts.OverFetchFactor
	}

	fetched, err := e.store.FindRows(ctx, compiled.Predicate, take)
	if err != nil {
		return nil, err
	}

	rows := filter.ApplyFallback(fetched, compiled.Conditions, fallbackOpts)
	if len(rows) > limit {
		rows = rows[:limit]
	}

	refs, err := resolver.BuildIndex(ctx, e.store, columns)
	if err != nil {
		return nil, err
	}

	s := &Serializer{DateLayout: e.opts.DateLayout, Location: e.opts.Location, References: refs}
	out := s.Serialize(rows, columns)

	e.logger.Debug("export finished",
		"table", table.ID,
		"fetched", len(fetched),
		"exported", len(rows),
		"ignored_filters", len(ignored),
	)

	return &Result{
		Table:   table,
		Columns: columns,
		Rows:    rows,
		CSV:     out,
		Ignored: ignored,
		Fetched: len(fetched),

		serializer: s,
	}, nil
}

func notFound(err error) error {
	if errors.Is(err, index.ErrDatabaseNotFound) || errors.Is(err, index.ErrTableNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
