package query

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aidanlsb/tabula/internal/dates"
	"github.com/aidanlsb/tabula/internal/filter"
	"github.com/aidanlsb/tabula/internal/model"
)

type leafEnv struct {
	now       time.Time
	weekStart time.Weekday
}

// cellPredicate tests whether the row has a cell for columnID satisfying
// cond (or, when negate is set, has none). cond sees the cell as c.
type cellPredicate struct {
	columnID int64
	negate   bool
	cond     string
	args     []any
}

func (p cellPredicate) ToSql() (string, []any, error) {
	quantifier := "EXISTS"
	if p.negate {
		quantifier = "NOT EXISTS"
	}
	sql := quantifier + " (SELECT 1 FROM cells c WHERE c.row_id = r.id AND c.column_id = ? AND " + p.cond + ")"

	args := make([]any, 0, len(p.args)+1)
	args = append(args, p.columnID)
	args = append(args, p.args...)
	return sql, args, nil
}

// leafCompiler builds the cell test for one condition. ok is false when the
// condition places no constraint on the result, for example when its value
// is empty.
type leafCompiler func(env leafEnv, c filter.Condition) (p cellPredicate, ok bool)

var textualLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:    textEquals,
	filter.OpNotEquals: negated(textEquals),
	// Pattern operators only get a weak presence test here; the fallback
	// pass does the real matching.
	filter.OpContains:    hasValue,
	filter.OpNotContains: hasValue,
	filter.OpStartsWith:  hasValue,
	filter.OpEndsWith:    hasValue,
	filter.OpRegex:       regexMatch,
	filter.OpIsEmpty:     negated(hasValue),
	filter.OpIsNotEmpty:  hasValue,
}

var numberLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:             numberCompare("="),
	filter.OpNotEquals:          negated(numberCompare("=")),
	filter.OpGreaterThan:        numberCompare(">"),
	filter.OpGreaterThanOrEqual: numberCompare(">="),
	filter.OpLessThan:           numberCompare("<"),
	filter.OpLessThanOrEqual:    numberCompare("<="),
	filter.OpBetween:            numberBetween,
	filter.OpNotBetween:         negated(numberBetween),
	filter.OpIsEmpty:            negated(hasValue),
	filter.OpIsNotEmpty:         hasValue,
}

var booleanLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:     boolEquals,
	filter.OpNotEquals:  negated(boolEquals),
	filter.OpIsEmpty:    negated(hasValue),
	filter.OpIsNotEmpty: hasValue,
}

var dateLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:             dateEquals,
	filter.OpNotEquals:          negated(dateEquals),
	filter.OpGreaterThan:        dateCompare(">"),
	filter.OpGreaterThanOrEqual: dateCompare(">="),
	filter.OpLessThan:           dateCompare("<"),
	filter.OpLessThanOrEqual:    dateCompare("<="),
	filter.OpBefore:             dateCompare("<"),
	filter.OpAfter:              dateCompare(">"),
	filter.OpBetween:            dateBetween,
	filter.OpNotBetween:         negated(dateBetween),
	filter.OpToday:              relativeBucket,
	filter.OpYesterday:          relativeBucket,
	filter.OpThisWeek:           relativeBucket,
	filter.OpThisMonth:          relativeBucket,
	filter.OpThisYear:           relativeBucket,
	filter.OpIsEmpty:            negated(hasValue),
	filter.OpIsNotEmpty:         hasValue,
}

var listLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:     listContains,
	filter.OpNotEquals:  negated(listContains),
	filter.OpIsEmpty:    negated(hasValue),
	filter.OpIsNotEmpty: hasValue,
}

// referenceLeaves adds the legacy string operators, which only reach the
// compiler when that dialect is enabled.
var referenceLeaves = map[filter.Operator]leafCompiler{
	filter.OpEquals:      listContains,
	filter.OpNotEquals:   negated(listContains),
	filter.OpIsEmpty:     negated(hasValue),
	filter.OpIsNotEmpty:  hasValue,
	filter.OpContains:    hasValue,
	filter.OpNotContains: hasValue,
	filter.OpStartsWith:  hasValue,
	filter.OpEndsWith:    hasValue,
}

// leafCompilers is the operator matrix. Kinds without an entry use
// listLeaves, matching filter.ValidOperators.
var leafCompilers = map[model.ColumnKind]map[filter.Operator]leafCompiler{
	model.KindTextual:     textualLeaves,
	model.KindNumber:      numberLeaves,
	model.KindBoolean:     booleanLeaves,
	model.KindDate:        dateLeaves,
	model.KindReference:   referenceLeaves,
	model.KindCustomArray: listLeaves,
}

func leavesFor(kind model.ColumnKind) map[filter.Operator]leafCompiler {
	if leaves, ok := leafCompilers[kind]; ok {
		return leaves
	}
	return listLeaves
}

// compileLeaf builds the predicate for one validated condition.
func compileLeaf(env leafEnv, c filter.Condition) (sq.Sqlizer, bool) {
	compile, ok := leavesFor(c.ColumnType.Kind())[c.Operator]
	if !ok {
		return nil, false
	}
	p, ok := compile(env, c)
	if !ok {
		return nil, false
	}
	p.columnID = c.ColumnID
	return p, true
}

func negated(fn leafCompiler) leafCompiler {
	return func(env leafEnv, c filter.Condition) (cellPredicate, bool) {
		p, ok := fn(env, c)
		p.negate = !p.negate
		return p, ok
	}
}

func hasValue(leafEnv, filter.Condition) (cellPredicate, bool) {
	return cellPredicate{cond: "cell_text(c.value) IS NOT NULL"}, true
}

func textEquals(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	v := strings.TrimSpace(c.ValueString())
	if v == "" {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "LOWER(TRIM(cell_text(c.value))) = LOWER(?)", args: []any{v}}, true
}

func regexMatch(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	pattern := strings.TrimSpace(c.ValueString())
	if pattern == "" {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "cell_text(c.value) REGEXP ?", args: []any{pattern}}, true
}

func listContains(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	v := strings.TrimSpace(c.ValueString())
	if v == "" {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "cell_has(c.value, ?) = 1", args: []any{v}}, true
}

func boolEquals(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	v := strings.TrimSpace(c.ValueString())
	if v == "" {
		return cellPredicate{}, false
	}
	want := 0
	if strings.EqualFold(v, "true") {
		want = 1
	}
	return cellPredicate{cond: "cell_bool(c.value) = ?", args: []any{want}}, true
}

func numberCompare(op string) leafCompiler {
	return func(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
		n, ok := filter.ParseNumber(c.ValueString())
		if !ok {
			return cellPredicate{}, false
		}
		return cellPredicate{cond: "cell_number(c.value) " + op + " ?", args: []any{n}}, true
	}
}

func numberBetween(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	lo, ok := filter.ParseNumber(c.ValueString())
	if !ok {
		return cellPredicate{}, false
	}
	hi, ok := filter.ParseNumber(c.SecondValueString())
	if !ok {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "cell_number(c.value) BETWEEN ? AND ?", args: []any{lo, hi}}, true
}

// dateBound is a filter date as a Unix-second range. A plain date covers the
// whole day; a datetime is a single instant.
type dateBound struct {
	start, end int64
}

func parseDateBound(s string) (dateBound, bool) {
	s = strings.TrimSpace(s)
	t, err := dates.Parse(s)
	if err != nil {
		return dateBound{}, false
	}
	if dates.IsValidDate(s) {
		return dateBound{start: t.Unix(), end: t.AddDate(0, 0, 1).Unix() - 1}, true
	}
	return dateBound{start: t.Unix(), end: t.Unix()}, true
}

func dateEquals(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	b, ok := parseDateBound(c.ValueString())
	if !ok {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "cell_time(c.value) BETWEEN ? AND ?", args: []any{b.start, b.end}}, true
}

// dateCompare compares against the edge of the value that keeps whole days
// together: "after 2025-01-15" starts on the 16th, "on or before" includes
// all of the 15th.
func dateCompare(op string) leafCompiler {
	return func(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
		b, ok := parseDateBound(c.ValueString())
		if !ok {
			return cellPredicate{}, false
		}
		edge := b.start
		if op == ">" || op == "<=" {
			edge = b.end
		}
		return cellPredicate{cond: "cell_time(c.value) " + op + " ?", args: []any{edge}}, true
	}
}

func dateBetween(_ leafEnv, c filter.Condition) (cellPredicate, bool) {
	lo, ok := parseDateBound(c.ValueString())
	if !ok {
		return cellPredicate{}, false
	}
	hi, ok := parseDateBound(c.SecondValueString())
	if !ok {
		return cellPredicate{}, false
	}
	return cellPredicate{cond: "cell_time(c.value) BETWEEN ? AND ?", args: []any{lo.start, hi.end}}, true
}

// relativeBucket resolves the bucket in the compiler's location. Datetime
// cells are compared as instants. Plain dates are stored as UTC midnight, so
// they are compared against the bucket's calendar days anchored in UTC.
func relativeBucket(env leafEnv, c filter.Condition) (cellPredicate, bool) {
	r, ok := dates.ResolveBucket(string(c.Operator), env.now, env.weekStart)
	if !ok {
		return cellPredicate{}, false
	}
	firstDay := utcDay(r.Start)
	lastDay := utcDay(r.End).AddDate(0, 0, 1).Unix() - 1
	return cellPredicate{
		cond: "CASE WHEN cell_is_date(c.value) = 1" +
			" THEN cell_time(c.value) BETWEEN ? AND ?" +
			" ELSE cell_time(c.value) BETWEEN ? AND ? END",
		args: []any{firstDay.Unix(), lastDay, r.Start.Unix(), r.End.Unix()},
	}, true
}

// utcDay is midnight UTC of t's calendar day in t's own location.
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
