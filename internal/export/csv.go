package export

import (
	"strings"
	"time"

	"github.com/aidanlsb/tabula/internal/dates"
	"github.com/aidanlsb/tabula/internal/model"
	"github.com/aidanlsb/tabula/internal/resolver"
)

const (
	fieldSeparator = ";"
	rowSeparator   = "\n"

	checkMark = "✓"
	crossMark = "✗"
)

// Serializer renders rows as the export's CSV dialect: ";"-separated
// fields, "\n"-separated rows, header first, no trailing newline.
//
// Only text values are wrapped in double quotes, and embedded quotes or
// separators are not escaped. Consumers that split on ";" see extra fields
// for such values. Resolved reference names, formatted dates, list items,
// numbers and boolean marks are written bare, even though reference names
// and list items are text as well.
type Serializer struct {
	// DateLayout is a Go time layout; empty means dates.DefaultDisplayLayout.
	DateLayout string
	// Location is used for datetime values; nil means UTC.
	Location *time.Location
	// References resolves reference cells; nil leaves raw ids.
	References *resolver.ReferenceIndex
}

// Serialize renders the header and one line per row. Columns are emitted in
// display order regardless of the order given.
func (s *Serializer) Serialize(rows []model.Row, columns []model.Column) string {
	ordered := model.SortColumns(columns)

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, s.Header(ordered))
	for _, row := range rows {
		lines = append(lines, s.Line(row, ordered))
	}
	return strings.Join(lines, rowSeparator)
}

// Header joins the column names. columns must already be ordered.
func (s *Serializer) Header(columns []model.Column) string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return strings.Join(names, fieldSeparator)
}

// Line renders one row with exactly one field per column. columns must
// already be ordered.
func (s *Serializer) Line(row model.Row, columns []model.Column) string {
	return strings.Join(s.Fields(row, columns), fieldSeparator)
}

// Fields renders each column of row; a missing cell yields "".
func (s *Serializer) Fields(row model.Row, columns []model.Column) []string {
	fields := make([]string, len(columns))
	for i, col := range columns {
		cell, ok := row.Cell(col.ID)
		if !ok {
			continue
		}
		fields[i] = s.Field(col, cell.Value)
	}
	return fields
}

// Field renders a single present cell.
func (s *Serializer) Field(col model.Column, v model.CellValue) string {
	kind := col.Type.Kind()

	// A stored boolean cell always renders as a mark, null included.
	if kind == model.KindBoolean {
		if v.Kind == model.ValueBool && v.Bool {
			return checkMark
		}
		return crossMark
	}

	if v.IsNull() {
		return ""
	}

	switch {
	case kind == model.KindReference:
		var tableID int64
		if col.ReferenceTableID != nil {
			tableID = *col.ReferenceTableID
		}
		return s.References.Resolve(tableID, v)
	case kind == model.KindDate:
		return s.formatDate(v)
	case kind == model.KindCustomArray || v.Kind == model.ValueStringList:
		return joinNonEmpty(v.List)
	case v.Kind == model.ValueNumber:
		return model.FormatNumber(v.Number)
	default:
		return `"` + v.String() + `"`
	}
}

// formatDate renders parsed dates with the display layout and leaves
// anything unparseable as stored. Plain dates are not shifted into the
// display location, so a date never moves to a neighbouring day.
func (s *Serializer) formatDate(v model.CellValue) string {
	if !v.HasTime {
		return v.Text
	}
	loc := s.Location
	if v.IsDateOnly() {
		loc = time.UTC
	}
	return dates.FormatDisplay(v.Time, s.DateLayout, loc)
}

func joinNonEmpty(items []string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		parts = append(parts, item)
	}
	return strings.Join(parts, ", ")
}
