package filter

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aidanlsb/tabula/internal/dates"
	"github.com/aidanlsb/tabula/internal/model"
)

// Reason explains why a condition was dropped.
type Reason string

const (
	ReasonMalformedJSON      Reason = "malformed_json"
	ReasonUnknownColumn      Reason = "unknown_column"
	ReasonOperatorNotAllowed Reason = "operator_not_allowed"
	ReasonMalformedValue     Reason = "malformed_value"
)

// Ignored records a condition that contributed nothing to the export.
// Condition is nil when the input could not be decoded at all.
type Ignored struct {
	Condition *Condition `json:"condition,omitempty"`
	Reason    Reason     `json:"reason"`
	Detail    string     `json:"detail,omitempty"`
}

func (i Ignored) String() string {
	var b strings.Builder
	if i.Condition != nil {
		b.WriteString(i.Condition.String())
		b.WriteString(": ")
	}
	b.WriteString(string(i.Reason))
	if i.Detail != "" {
		b.WriteString(" (")
		b.WriteString(i.Detail)
		b.WriteString(")")
	}
	return b.String()
}

// Validate splits conditions into the ones that may be compiled and the
// ones that must be dropped.
//
// When columns is non-empty each condition must reference one of them, and
// the column's declared type replaces the client-supplied columnType so the
// compiler and the fallback pass both see the stored type.
func Validate(conds []Condition, columns []model.Column) ([]Condition, []Ignored) {
	return ValidateWith(conds, columns, FallbackOptions{})
}

// ValidateWith is Validate with the operator set widened by opts.
func ValidateWith(conds []Condition, columns []model.Column, opts FallbackOptions) ([]Condition, []Ignored) {
	var byID map[int64]model.Column
	if len(columns) > 0 {
		byID = model.ColumnsByID(columns)
	}

	accepted := make([]Condition, 0, len(conds))
	var ignored []Ignored
	for _, c := range conds {
		if byID != nil {
			col, ok := byID[c.ColumnID]
			if !ok {
				ignored = append(ignored, ignore(c, ReasonUnknownColumn, ""))
				continue
			}
			c.ColumnType = col.Type
			if c.ColumnName == "" {
				c.ColumnName = col.Name
			}
		}

		if !opts.Operators(c.ColumnType).Has(c.Operator) {
			ignored = append(ignored, ignore(c, ReasonOperatorNotAllowed, string(c.Operator)+" on "+string(c.ColumnType)))
			continue
		}
		if !ValuesAreWellFormed(c, c.ColumnType) {
			ignored = append(ignored, ignore(c, ReasonMalformedValue, ""))
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted, ignored
}

func ignore(c Condition, reason Reason, detail string) Ignored {
	return Ignored{Condition: &c, Reason: reason, Detail: detail}
}

// ValuesAreWellFormed checks the value shape the operator needs on a
// column of type t:
//   - no-value operators always pass
//   - numeric operators on number columns need finite numbers
//   - date operators on date columns need parseable dates
//   - regex needs a pattern that compiles
//   - everything else needs a value to be present
//
// Range operators check both bounds.
func ValuesAreWellFormed(c Condition, t model.ColumnType) bool {
	op := c.Operator
	if !op.NeedsValue() {
		return true
	}
	if c.Value == nil {
		return false
	}
	if op.IsRange() && c.SecondValue == nil {
		return false
	}

	check := func(string) bool { return true }
	switch t.Kind() {
	case model.KindNumber:
		check = isFiniteNumber
	case model.KindDate:
		check = dates.IsValid
	}
	if op == OpRegex {
		check = compiles
	}

	if !check(*c.Value) {
		return false
	}
	if op.IsRange() && !check(*c.SecondValue) {
		return false
	}
	return true
}

// ParseNumber parses a filter value as a finite float.
func ParseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func isFiniteNumber(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

func compiles(pattern string) bool {
	_, err := regexp.Compile(strings.TrimSpace(pattern))
	return err == nil
}
