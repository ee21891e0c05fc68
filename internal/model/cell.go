package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/aidanlsb/tabula/internal/dates"
)

// ValueKind tags the variant held by a CellValue.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueText
	ValueNumber
	ValueBool
	ValueDateTime
	ValueStringList
)

// CellValue is the decoded form of a stored cell. The variant is chosen by
// the owning column's declared type, not by the shape of the stored JSON.
type CellValue struct {
	Kind ValueKind

	// Text holds ValueText values. For ValueDateTime it keeps the raw
	// stored text so unparseable dates can be shown as-is.
	Text string

	Number float64
	Bool   bool

	// Time is only meaningful when HasTime is set.
	Time    time.Time
	HasTime bool

	List []string
}

// IsNull reports whether the value is absent.
func (v CellValue) IsNull() bool {
	return v.Kind == ValueNull
}

// IsDateOnly reports whether the value is a calendar date without a time of
// day. Such values decode to UTC midnight and name a day, not an instant.
func (v CellValue) IsDateOnly() bool {
	return v.Kind == ValueDateTime && v.HasTime && dates.IsValidDate(strings.TrimSpace(v.Text))
}

// String renders the value as plain text. Lists are joined with ", ".
func (v CellValue) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return FormatNumber(v.Number)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueDateTime:
		if v.HasTime && v.Text == "" {
			return v.Time.Format(time.RFC3339)
		}
		return v.Text
	case ValueStringList:
		return strings.Join(v.List, ", ")
	default:
		return ""
	}
}

// Cell is one stored value of a row.
type Cell struct {
	ColumnID int64 `json:"columnId"`

	// Raw is the stored JSON text.
	Raw string `json:"-"`

	Value CellValue `json:"-"`
}

// Row is a table row with its cells in storage order.
type Row struct {
	ID      int64  `json:"id"`
	TableID int64  `json:"tableId"`
	Cells   []Cell `json:"cells"`
}

// Cell returns the cell stored for columnID.
func (r Row) Cell(columnID int64) (Cell, bool) {
	for _, c := range r.Cells {
		if c.ColumnID == columnID {
			return c, true
		}
	}
	return Cell{}, false
}

// FormatNumber renders a float in its shortest decimal form ("25", "2.5").
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DecodeCell decodes stored JSON text into the variant dictated by the
// column type. Text that is not valid JSON is treated as a bare string.
func DecodeCell(t ColumnType, raw string) CellValue {
	if strings.TrimSpace(raw) == "" {
		return CellValue{}
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	return DecodeValue(t, v)
}

// DecodeValue converts an already-unmarshalled JSON value.
func DecodeValue(t ColumnType, v any) CellValue {
	if v == nil {
		return CellValue{}
	}

	switch t.Kind() {
	case KindNumber:
		return decodeNumber(v)
	case KindBoolean:
		return CellValue{Kind: ValueBool, Bool: Truthy(v)}
	case KindDate:
		return decodeDate(v)
	case KindCustomArray:
		if arr, ok := v.([]any); ok {
			return CellValue{Kind: ValueStringList, List: stringList(arr)}
		}
		return CellValue{Kind: ValueStringList, List: []string{scalarText(v)}}
	default:
		// Textual, reference and unknown types: scalars are text, arrays
		// (multi-valued references) are lists.
		if arr, ok := v.([]any); ok {
			return CellValue{Kind: ValueStringList, List: stringList(arr)}
		}
		return CellValue{Kind: ValueText, Text: scalarText(v)}
	}
}

// Truthy interprets a JSON value as a boolean: true, "true" (any case) and
// non-zero numbers are true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "true" {
			return true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0
		}
		return false
	default:
		return false
	}
}

func decodeNumber(v any) CellValue {
	switch val := v.(type) {
	case float64:
		return CellValue{Kind: ValueNumber, Number: val}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return CellValue{Kind: ValueNumber, Number: n}
		}
		return CellValue{Kind: ValueText, Text: val}
	case []any:
		return CellValue{Kind: ValueStringList, List: stringList(val)}
	default:
		return CellValue{Kind: ValueText, Text: scalarText(v)}
	}
}

func decodeDate(v any) CellValue {
	switch val := v.(type) {
	case string:
		t, err := dates.Parse(val)
		if err != nil {
			return CellValue{Kind: ValueDateTime, Text: val}
		}
		return CellValue{Kind: ValueDateTime, Text: val, Time: t, HasTime: true}
	case float64:
		// Epoch milliseconds, as produced by JavaScript Date.valueOf().
		return CellValue{Kind: ValueDateTime, Text: FormatNumber(val), Time: time.UnixMilli(int64(val)).UTC(), HasTime: true}
	default:
		return CellValue{Kind: ValueDateTime, Text: scalarText(v)}
	}
}

func stringList(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if item == nil {
			out = append(out, "")
			continue
		}
		out = append(out, scalarText(item))
	}
	return out
}

func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return FormatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
