// Package resolver maps reference cell values to the display value of the
// row they point at.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aidanlsb/tabula/internal/model"
)

// TableLoader bulk-loads tables with their columns, rows and cells.
type TableLoader interface {
	TablesByIDs(ctx context.Context, ids []int64) ([]model.Table, error)
}

type rowKey struct {
	tableID int64
	rowID   int64
}

// ReferenceIndex maps (target table, target row) to the row's primary cell
// text. It is built per export and never mutated afterwards.
type ReferenceIndex struct {
	display map[rowKey]string
}

// ReferencedTables returns the distinct target tables of the reference
// columns in ascending order.
func ReferencedTables(columns []model.Column) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, c := range columns {
		if !c.IsReference() || seen[*c.ReferenceTableID] {
			continue
		}
		seen[*c.ReferenceTableID] = true
		ids = append(ids, *c.ReferenceTableID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildIndex loads every table referenced by columns in one call and indexes
// the primary cell of each of their rows. Columns without references yield
// an empty index without touching the loader.
func BuildIndex(ctx context.Context, loader TableLoader, columns []model.Column) (*ReferenceIndex, error) {
	ix := &ReferenceIndex{display: map[rowKey]string{}}

	ids := ReferencedTables(columns)
	if len(ids) == 0 {
		return ix, nil
	}

	tables, err := loader.TablesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced tables: %w", err)
	}
	for _, t := range tables {
		ix.addTable(t)
	}
	return ix, nil
}

func (ix *ReferenceIndex) addTable(t model.Table) {
	primary, ok := model.PrimaryColumn(t.Columns)
	if !ok {
		return
	}
	for _, row := range t.Rows {
		cell, ok := row.Cell(primary.ID)
		if !ok {
			continue
		}
		ix.display[rowKey{tableID: t.ID, rowID: row.ID}] = cell.Value.String()
	}
}

// Len returns the number of indexed rows.
func (ix *ReferenceIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.display)
}

// Lookup returns the display value of a target row.
func (ix *ReferenceIndex) Lookup(tableID, rowID int64) (string, bool) {
	if ix == nil {
		return "", false
	}
	s, ok := ix.display[rowKey{tableID: tableID, rowID: rowID}]
	return s, ok
}

// Resolve renders a reference cell. Lists drop blank entries, resolve each
// id and join them with ", ". Ids that are not indexed come back unchanged.
func (ix *ReferenceIndex) Resolve(tableID int64, v model.CellValue) string {
	switch v.Kind {
	case model.ValueNull:
		return ""
	case model.ValueStringList:
		parts := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if strings.TrimSpace(item) == "" {
				continue
			}
			parts = append(parts, ix.resolveID(tableID, item))
		}
		return strings.Join(parts, ", ")
	default:
		return ix.resolveID(tableID, v.String())
	}
}

func (ix *ReferenceIndex) resolveID(tableID int64, raw string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return raw
	}
	if s, ok := ix.Lookup(tableID, id); ok {
		return s
	}
	return raw
}
