package builder

import (
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// tableCasePrefix names table rows registered without a label
const tableCasePrefix = "case_"

// TableEntry is one row of a table declared with DescribeTable
type TableEntry[R any] struct {
	Label   string
	Row     R
	labels  []string
	focused bool
	pending bool
}

// Entry declares a labelled row
func Entry[R any](label string, row R) TableEntry[R] {
	return TableEntry[R]{Label: label, Row: row}
}

// UnnamedEntry declares a row named case_N, N counting the table's unnamed rows
func UnnamedEntry[R any](row R) TableEntry[R] {
	return TableEntry[R]{Row: row}
}

// FEntry declares a focused row
func FEntry[R any](label string, row R) TableEntry[R] {
	return TableEntry[R]{Label: label, Row: row, focused: true}
}

// XEntry declares a pending row
func XEntry[R any](label string, row R) TableEntry[R] {
	return TableEntry[R]{Label: label, Row: row, pending: true}
}

// WithLabels returns a copy of the entry carrying extra labels
func (e TableEntry[R]) WithLabels(labels ...string) TableEntry[R] {
	e.labels = append(append([]string(nil), e.labels...), labels...)
	return e
}

// DescribeTable expands a table into one case per row inside a scope named
// after the table. Each case calls body with its own row.
func DescribeTable[R any](c *Context, name string, body func(t types.T, row R) error, entries ...TableEntry[R]) {
	loc := callerLocation(1)
	if body == nil {
		c.state.issues.Addf("table %q at %s has no body", name, loc)
		return
	}
	if len(entries) == 0 {
		c.state.issues.Addf("table %q at %s has no entries", name, loc)
	}

	c.state.nextScopeID++
	scope := &types.Scope{ID: c.state.nextScopeID, Name: name, Location: loc}
	c.scope.AddScope(scope)
	tableCtx := &Context{scope: scope, state: c.state}

	for _, entry := range entries {
		row := entry.Row
		tc := &types.Case{
			Name:     entry.Label,
			Focused:  entry.focused,
			Pending:  entry.pending,
			Location: loc,
			Body: func(t types.T) error {
				return body(t, row)
			},
		}
		cb := tableCtx.registerNamed(tc, tableCasePrefix)
		cb.Labels(entry.labels...)
	}
}
