// Package filter decides which cases of a suite run.
//
// Each case is checked against the name filter, then the label filter, then its
// pending state, then focus. The first check that rejects the case decides its
// reported status: name and label rejections and unfocused cases are Skipped,
// pending cases are Pending.
package filter

import (
	"errors"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// ErrNoFocusedCases is returned when focus markers are present but no case is selected
var ErrNoFocusedCases = errors.New("focus markers present but no cases were selected")

const (
	ReasonNameFilter  = "excluded by name filter"
	ReasonLabelFilter = "excluded by label filter"
	ReasonPending     = "pending"
	ReasonNotFocused  = "not focused"
)

// Config holds the inputs of the filter engine
type Config struct {
	Labels *LabelFilter
	Names  *NameFilter
	// IncludePending selects pending cases as if they were not pending.
	IncludePending bool
	// FocusMode restricts selection to focused cases and descendants of focused scopes.
	FocusMode bool
}

// Decision is the filter engine's verdict for one case
type Decision struct {
	Selected bool
	// Status and Reason describe an unselected case.
	Status types.Status
	Reason string
}

// Decide applies the filters to one case
func (c Config) Decide(tc *types.Case) Decision {
	if !c.Names.Match(tc.Path()) {
		return Decision{Status: types.StatusSkipped, Reason: ReasonNameFilter}
	}
	if !c.Labels.Match(tc.EffectiveLabels()) {
		return Decision{Status: types.StatusSkipped, Reason: ReasonLabelFilter}
	}
	if tc.IsPending() && !c.IncludePending {
		return Decision{Status: types.StatusPending, Reason: ReasonPending}
	}
	if c.FocusMode && !tc.IsFocused() {
		return Decision{Status: types.StatusSkipped, Reason: ReasonNotFocused}
	}
	return Decision{Selected: true}
}

// AnyFocus reports whether any suite carries a focus marker
func AnyFocus(suites []*types.Suite) bool {
	for _, s := range suites {
		if s.HasFocus() {
			return true
		}
	}
	return false
}

// Plan records the decision for every case of a suite and how many cases are
// selected beneath each scope.
type Plan struct {
	Suite    *types.Suite
	Selected int

	decisions map[*types.Case]Decision
	perScope  map[*types.Scope]int
}

// NewPlan evaluates cfg against every case of suite
func NewPlan(suite *types.Suite, cfg Config) *Plan {
	p := &Plan{
		Suite:     suite,
		decisions: make(map[*types.Case]Decision),
		perScope:  make(map[*types.Scope]int),
	}
	for _, tc := range suite.Cases() {
		d := cfg.Decide(tc)
		p.decisions[tc] = d
		if !d.Selected {
			continue
		}
		p.Selected++
		for s := tc.Scope(); s != nil; s = s.Parent() {
			p.perScope[s]++
		}
	}
	return p
}

// Decision returns the verdict for tc
func (p *Plan) Decision(tc *types.Case) Decision {
	return p.decisions[tc]
}

// SelectedIn returns the number of selected cases beneath scope
func (p *Plan) SelectedIn(scope *types.Scope) int {
	return p.perScope[scope]
}
