package visibility

import (
	"fmt"
	"strings"
)

// Args accumulates query arguments while a predicate renders. Placeholders
// are numbered in order of appearance, so a predicate must add arguments
// in the same order it writes their placeholders.
type Args struct {
	vals []interface{}
}

// Add appends a value and returns its placeholder.
func (a *Args) Add(v interface{}) string {
	a.vals = append(a.vals, v)
	return fmt.Sprintf("$%d", len(a.vals))
}

// Values returns the accumulated arguments in placeholder order.
func (a *Args) Values() []interface{} {
	return a.vals
}

// Predicate is a composable filter over one entity table. It is a pure
// function from an argument accumulator to a SQL boolean expression;
// composition is ordinary boolean composition, no reflection involved.
type Predicate func(a *Args) string

// MatchAll matches every row.
func MatchAll() Predicate {
	return func(*Args) string { return "1=1" }
}

// MatchNone matches no rows.
func MatchNone() Predicate {
	return func(*Args) string { return "1=0" }
}

// And combines predicates conjunctively.
func And(preds ...Predicate) Predicate {
	if len(preds) == 0 {
		return MatchAll()
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return func(a *Args) string {
		parts := make([]string, 0, len(preds))
		for _, p := range preds {
			parts = append(parts, p(a))
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	}
}

// Or combines predicates disjunctively.
func Or(preds ...Predicate) Predicate {
	if len(preds) == 0 {
		return MatchNone()
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return func(a *Args) string {
		parts := make([]string, 0, len(preds))
		for _, p := range preds {
			parts = append(parts, p(a))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}

// Raw wraps a fixed SQL fragment with no arguments.
func Raw(sql string) Predicate {
	return func(*Args) string { return sql }
}
