package filter

import (
	"strings"

	"github.com/aidanlsb/tabula/internal/model"
)

// FallbackOptions tunes the in-memory pass and the operators validation
// admits for it.
type FallbackOptions struct {
	// LegacyReferenceDialect allows string operators on reference columns
	// and matches them against the raw (unresolved) ids.
	LegacyReferenceDialect bool
}

// FallbackConditions returns the conditions the in-memory pass evaluates:
// pattern operators on textual columns, plus reference columns in the
// legacy dialect.
func FallbackConditions(conds []Condition, opts FallbackOptions) []Condition {
	var out []Condition
	for _, c := range conds {
		if !c.Operator.IsPattern() {
			continue
		}
		switch c.ColumnType.Kind() {
		case model.KindTextual:
			out = append(out, c)
		case model.KindReference:
			if opts.LegacyReferenceDialect {
				out = append(out, c)
			}
		}
	}
	return out
}

// ApplyFallback drops rows that fail any string condition the store could
// only approximate. It only sees rows the capped fetch already returned, so
// the result can be shorter than the requested limit.
func ApplyFallback(rows []model.Row, conds []Condition, opts FallbackOptions) []model.Row {
	active := FallbackConditions(conds, opts)
	if len(active) == 0 {
		return rows
	}

	kept := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, active) {
			kept = append(kept, row)
		}
	}
	return kept
}

func matchesAll(row model.Row, conds []Condition) bool {
	for _, c := range conds {
		if !matchesPattern(row, c) {
			return false
		}
	}
	return true
}

func matchesPattern(row model.Row, c Condition) bool {
	cell, ok := row.Cell(c.ColumnID)
	if !ok {
		return false
	}

	text := strings.TrimSpace(cell.Value.String())
	if text == "" {
		return false
	}

	haystack := strings.ToLower(text)
	needle := strings.ToLower(c.ValueString())
	switch c.Operator {
	case OpStartsWith:
		return strings.HasPrefix(haystack, needle)
	case OpEndsWith:
		return strings.HasSuffix(haystack, needle)
	case OpContains:
		return strings.Contains(haystack, needle)
	case OpNotContains:
		return !strings.Contains(haystack, needle)
	default:
		return true
	}
}
