package builder

import (
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// OrderedContext registers the steps of an ordered workflow
type OrderedContext struct {
	tc     *types.Case
	issues *types.ConfigError
}

// Step appends a named step; steps run in declaration order
func (o *OrderedContext) Step(name string, fn types.Action) {
	loc := callerLocation(1)
	if fn == nil {
		o.issues.Addf("nil step %q in ordered case %q at %s", name, o.tc.Name, loc)
		return
	}
	o.tc.Steps = append(o.tc.Steps, types.Step{Name: name, Fn: fn, Location: loc})
}

// Labels adds labels to the ordered case
func (o *OrderedContext) Labels(labels ...string) {
	o.tc.Labels = appendUnique(o.tc.Labels, labels...)
}

func (c *Context) addOrdered(name string, continueOnFailure bool, fn func(o *OrderedContext)) *CaseBuilder {
	tc := &types.Case{
		Name:              name,
		Ordered:           true,
		ContinueOnFailure: continueOnFailure,
		Location:          callerLocation(2),
	}
	cb := c.register(tc)
	if fn == nil {
		c.state.issues.Addf("ordered case %q at %s has no declaration function", name, tc.Location)
		return cb
	}
	fn(&OrderedContext{tc: tc, issues: c.state.issues})
	return cb
}

// Ordered declares a case made of sequential steps. After the first failing
// step the remaining steps are skipped.
func (c *Context) Ordered(name string, fn func(o *OrderedContext)) *CaseBuilder {
	return c.addOrdered(name, false, fn)
}

// OrderedContinueOnFailure declares an ordered case whose steps all run
// regardless of earlier failures.
func (c *Context) OrderedContinueOnFailure(name string, fn func(o *OrderedContext)) *CaseBuilder {
	return c.addOrdered(name, true, fn)
}
