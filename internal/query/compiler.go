// Package query compiles export filter conditions into SQL predicates over
// the row/cell store.
//
// A compiled predicate refers to the current row as r (see index.RowAlias)
// and tests cells through correlated EXISTS subqueries, so it can be handed
// straight to index.Database.FindRows.
package query

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jonboulle/clockwork"

	"github.com/aidanlsb/tabula/internal/filter"
	"github.com/aidanlsb/tabula/internal/model"
)

// Options configures a Compiler. A nil Clock means the real clock and a nil
// Location means UTC.
type Options struct {
	Clock    clockwork.Clock
	Location *time.Location

	// WeekStart is the first day of the this_week bucket.
	WeekStart time.Weekday

	// CaseSensitiveSearch switches the global search from a
	// case-insensitive LIKE to an exact substring test.
	CaseSensitiveSearch bool

	// LegacyReferenceDialect accepts string operators on reference
	// columns. They push down as a presence test and the fallback pass
	// matches the raw ids.
	LegacyReferenceDialect bool
}

// Compiler turns validated conditions into a store predicate. It holds no
// per-request state and is safe for concurrent use.
type Compiler struct {
	clock               clockwork.Clock
	loc                 *time.Location
	weekStart           time.Weekday
	caseSensitiveSearch bool
	fallback            filter.FallbackOptions
}

// NewCompiler creates a compiler.
func NewCompiler(opts Options) *Compiler {
	c := &Compiler{
		clock:               opts.Clock,
		loc:                 opts.Location,
		weekStart:           opts.WeekStart,
		caseSensitiveSearch: opts.CaseSensitiveSearch,
		fallback:            filter.FallbackOptions{LegacyReferenceDialect: opts.LegacyReferenceDialect},
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	return c
}

// FallbackOptions returns the options the fallback pass must use for
// conditions this compiler accepted.
func (c *Compiler) FallbackOptions() filter.FallbackOptions {
	return c.fallback
}

// Compiled is the result of Compile.
type Compiled struct {
	// Predicate selects the matching rows of the table.
	Predicate sq.Sqlizer

	// Conditions are the conditions that passed validation. Pattern
	// operators among them still need the in-memory fallback pass.
	Conditions []filter.Condition

	// Ignored lists the conditions that were dropped.
	Ignored []filter.Ignored
}

// Compile validates conds against columns and builds the predicate: the
// table constraint, an optional global search, and one leaf per surviving
// condition, all ANDed. Invalid conditions are dropped, never returned as
// errors.
func (c *Compiler) Compile(tableID int64, columns []model.Column, conds []filter.Condition, globalSearch string) Compiled {
	accepted, ignored := filter.ValidateWith(conds, columns, c.fallback)

	pred := sq.And{sq.Eq{"r.table_id": tableID}}

	if term := strings.TrimSpace(globalSearch); term != "" {
		pred = append(pred, c.searchLeaf(term))
	}

	env := leafEnv{now: c.clock.Now().In(c.loc), weekStart: c.weekStart}
	for _, cond := range accepted {
		leaf, ok := compileLeaf(env, cond)
		if !ok {
			continue
		}
		pred = append(pred, leaf)
	}

	return Compiled{Predicate: pred, Conditions: accepted, Ignored: ignored}
}

// searchLeaf matches rows where some cell's text contains term.
func (c *Compiler) searchLeaf(term string) sq.Sqlizer {
	if c.caseSensitiveSearch {
		return sq.Expr(
			"EXISTS (SELECT 1 FROM cells c WHERE c.row_id = r.id AND instr(cell_text(c.value), ?) > 0)",
			term,
		)
	}
	return sq.Expr(
		"EXISTS (SELECT 1 FROM cells c WHERE c.row_id = r.id AND LOWER(cell_text(c.value)) LIKE LOWER(?) ESCAPE '\\')",
		containsPattern(term),
	)
}
