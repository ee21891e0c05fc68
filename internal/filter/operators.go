// Package filter holds the export filter model: the operator/type
// compatibility table, decoding of request filter conditions, value
// validation, and the in-memory fallback pass for string operators.
package filter

import "github.com/aidanlsb/tabula/internal/model"

// Operator is a filter comparison operator as sent by clients.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpRegex              Operator = "regex"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpBetween            Operator = "between"
	OpNotBetween         Operator = "not_between"
	OpBefore             Operator = "before"
	OpAfter              Operator = "after"
	OpToday              Operator = "today"
	OpYesterday          Operator = "yesterday"
	OpThisWeek           Operator = "this_week"
	OpThisMonth          Operator = "this_month"
	OpThisYear           Operator = "this_year"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
)

// NeedsValue reports whether the operator reads value/secondValue.
func (op Operator) NeedsValue() bool {
	switch op {
	case OpIsEmpty, OpIsNotEmpty, OpToday, OpYesterday, OpThisWeek, OpThisMonth, OpThisYear:
		return false
	default:
		return true
	}
}

// IsRange reports whether the operator needs both bounds.
func (op Operator) IsRange() bool {
	return op == OpBetween || op == OpNotBetween
}

// IsPattern reports whether the operator is a substring test that the
// store cannot evaluate reliably and is finished in memory.
func (op Operator) IsPattern() bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return true
	default:
		return false
	}
}

// IsRelativeDate reports whether the operator is a relative date bucket.
func (op Operator) IsRelativeDate() bool {
	switch op {
	case OpToday, OpYesterday, OpThisWeek, OpThisMonth, OpThisYear:
		return true
	default:
		return false
	}
}

// OperatorSet is an immutable set of operators.
type OperatorSet map[Operator]struct{}

func newOperatorSet(ops ...Operator) OperatorSet {
	s := make(OperatorSet, len(ops))
	for _, op := range ops {
		s[op] = struct{}{}
	}
	return s
}

// Has reports whether op is in the set.
func (s OperatorSet) Has(op Operator) bool {
	_, ok := s[op]
	return ok
}

var (
	textualOperators = newOperatorSet(
		OpContains, OpNotContains, OpEquals, OpNotEquals,
		OpStartsWith, OpEndsWith, OpRegex, OpIsEmpty, OpIsNotEmpty,
	)
	numberOperators = newOperatorSet(
		OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpBetween, OpNotBetween, OpIsEmpty, OpIsNotEmpty,
	)
	booleanOperators = newOperatorSet(OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty)
	dateOperators    = newOperatorSet(
		OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
		OpBefore, OpAfter, OpBetween, OpNotBetween,
		OpToday, OpYesterday, OpThisWeek, OpThisMonth, OpThisYear,
		OpIsEmpty, OpIsNotEmpty,
	)
	listOperators = newOperatorSet(OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty)

	// legacyReferenceOperators admits the string operators on reference
	// columns; they match the raw ids in the fallback pass.
	legacyReferenceOperators = newOperatorSet(
		OpEquals, OpNotEquals, OpIsEmpty, OpIsNotEmpty,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
	)
)

var compatibility = map[model.ColumnKind]OperatorSet{
	model.KindTextual:     textualOperators,
	model.KindNumber:      numberOperators,
	model.KindBoolean:     booleanOperators,
	model.KindDate:        dateOperators,
	model.KindReference:   listOperators,
	model.KindCustomArray: listOperators,
}

// ValidOperators returns the operators legal for a column type. Unknown
// types get the reference/customArray set.
func ValidOperators(t model.ColumnType) OperatorSet {
	if set, ok := compatibility[t.Kind()]; ok {
		return set
	}
	return listOperators
}

// IsAllowed reports whether op may be used on a column of type t.
func IsAllowed(t model.ColumnType, op Operator) bool {
	return ValidOperators(t).Has(op)
}

// Operators returns the operators legal for t under these options.
func (o FallbackOptions) Operators(t model.ColumnType) OperatorSet {
	if o.LegacyReferenceDialect && t.Kind() == model.KindReference {
		return legacyReferenceOperators
	}
	return ValidOperators(t)
}
