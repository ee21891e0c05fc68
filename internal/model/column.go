// Package model defines the databases, tables, columns, rows and cells the
// export pipeline works on.
package model

import (
	"sort"
	"strings"
)

// ColumnType is the declared type of a column. It governs which filter
// operators are legal and how stored cell values are decoded.
type ColumnType string

const (
	TypeString      ColumnType = "string"
	TypeText        ColumnType = "text" // display alias of string
	TypeEmail       ColumnType = "email"
	TypeURL         ColumnType = "url"
	TypeNumber      ColumnType = "number"
	TypeBoolean     ColumnType = "boolean"
	TypeDate        ColumnType = "date"
	TypeDatetime    ColumnType = "datetime"
	TypeReference   ColumnType = "reference"
	TypeCustomArray ColumnType = "customArray"
)

// ColumnKind groups column types that share operators and decoding rules.
type ColumnKind int

const (
	// KindOther covers types this package does not know about. They are
	// treated like reference/customArray for operator purposes.
	KindOther ColumnKind = iota
	KindTextual
	KindNumber
	KindBoolean
	KindDate
	KindReference
	KindCustomArray
)

func (k ColumnKind) String() string {
	switch k {
	case KindTextual:
		return "textual"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindReference:
		return "reference"
	case KindCustomArray:
		return "customArray"
	default:
		return "other"
	}
}

// Kind classifies the type. Matching is case-insensitive and ignores
// surrounding whitespace.
func (t ColumnType) Kind() ColumnKind {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "string", "text", "email", "url":
		return KindTextual
	case "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "date", "datetime":
		return KindDate
	case "reference":
		return KindReference
	case "customarray":
		return KindCustomArray
	default:
		return KindOther
	}
}

// IsTextual reports whether the type is string-like.
func (t ColumnType) IsTextual() bool {
	return t.Kind() == KindTextual
}

// Column describes one column of a table.
type Column struct {
	ID               int64          `json:"id" yaml:"id"`
	TableID          int64          `json:"tableId" yaml:"-"`
	Name             string         `json:"name" yaml:"name"`
	Type             ColumnType     `json:"type" yaml:"type"`
	ReferenceTableID *int64         `json:"referenceTableId,omitempty" yaml:"reference_table_id,omitempty"`
	Order            int            `json:"order" yaml:"order"`
	Primary          bool           `json:"primary" yaml:"primary"`
	CustomOptions    map[string]any `json:"customOptions,omitempty" yaml:"custom_options,omitempty"`
}

// IsReference reports whether the column points at another table.
func (c Column) IsReference() bool {
	return c.Type.Kind() == KindReference && c.ReferenceTableID != nil
}

// SortColumns returns a copy of cols ordered by Order, then ID.
func SortColumns(cols []Column) []Column {
	out := make([]Column, len(cols))
	copy(out, cols)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ColumnsByID indexes cols by their ID.
func ColumnsByID(cols []Column) map[int64]Column {
	byID := make(map[int64]Column, len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}
	return byID
}

// PrimaryColumn returns the column flagged primary, if any.
func PrimaryColumn(cols []Column) (Column, bool) {
	for _, c := range cols {
		if c.Primary {
			return c, true
		}
	}
	return Column{}, false
}
