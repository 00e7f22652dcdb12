// Package builder provides the registration API used to declare a suite's scope tree.
//
// A suite is declared inside a single closure passed to Build:
//
//	suite, err := builder.Build("math", func(c *builder.Context) {
//		c.Describe("Calculator", func(c *builder.Context) {
//			c.BeforeEach(func(t types.T) error { ... })
//			c.It("adds", func(t types.T) error { ... }).Labels("fast")
//		})
//	})
//
// Building is single-threaded and completes before any execution starts.
package builder

import (
	"fmt"
	"runtime"
	"time"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// anonymousCasePrefix names cases registered without a name
const anonymousCasePrefix = "spec_"

// buildState is shared by every Context of one Build call
type buildState struct {
	nextScopeID int
	cases       []*CaseBuilder
	anonymous   map[*types.Scope]int
	issues      *types.ConfigError
}

// Context is the registration handle for one scope.
type Context struct {
	scope *types.Scope
	state *buildState
}

// Build declares a suite. Declaration problems are collected and returned
// together as a *types.ConfigError.
func Build(name string, fn func(c *Context)) (suite *types.Suite, err error) {
	state := &buildState{
		anonymous: make(map[*types.Scope]int),
		issues:    &types.ConfigError{},
	}
	suite = &types.Suite{
		Name:     name,
		Root:     &types.Scope{ID: 0, Name: name},
		Location: callerLocation(1),
	}

	if fn == nil {
		return nil, types.NewConfigError(fmt.Sprintf("suite %q has no declaration function", name))
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				state.issues.Addf("panic while declaring suite %q: %v", name, r)
			}
		}()
		fn(&Context{scope: suite.Root, state: state})
	}()

	finalize(suite, state)
	if err := state.issues.Err(); err != nil {
		return nil, err
	}
	return suite, nil
}

// MustBuild is like Build but panics on a configuration error
func MustBuild(name string, fn func(c *Context)) *types.Suite {
	suite, err := Build(name, fn)
	if err != nil {
		panic(err)
	}
	return suite
}

func (c *Context) addScope(name string, focused, pending bool, fn func(c *Context)) {
	c.state.nextScopeID++
	scope := &types.Scope{
		ID:       c.state.nextScopeID,
		Name:     name,
		Focused:  focused,
		Pending:  pending,
		Location: callerLocation(2),
	}
	c.scope.AddScope(scope)
	if fn == nil {
		c.state.issues.Addf("scope %q at %s has no declaration function", name, scope.Location)
		return
	}
	fn(&Context{scope: scope, state: c.state})
}

// Describe declares a nested scope
func (c *Context) Describe(name string, fn func(c *Context)) { c.addScope(name, false, false, fn) }

// FDescribe declares a focused nested scope
func (c *Context) FDescribe(name string, fn func(c *Context)) { c.addScope(name, true, false, fn) }

// XDescribe declares a pending nested scope
func (c *Context) XDescribe(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }

// PDescribe is an alias of XDescribe
func (c *Context) PDescribe(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }

func (c *Context) Context(name string, fn func(c *Context))  { c.addScope(name, false, false, fn) }
func (c *Context) FContext(name string, fn func(c *Context)) { c.addScope(name, true, false, fn) }
func (c *Context) XContext(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }
func (c *Context) PContext(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }

func (c *Context) When(name string, fn func(c *Context))  { c.addScope(name, false, false, fn) }
func (c *Context) FWhen(name string, fn func(c *Context)) { c.addScope(name, true, false, fn) }
func (c *Context) XWhen(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }
func (c *Context) PWhen(name string, fn func(c *Context)) { c.addScope(name, false, true, fn) }

// Labels adds labels to the current scope; they are inherited by every descendant
func (c *Context) Labels(labels ...string) {
	c.scope.Labels = appendUnique(c.scope.Labels, labels...)
}

// Subject sets the subject provider for the current scope and its descendants
func (c *Context) Subject(provider types.SubjectProvider) {
	if provider == nil {
		c.state.issues.Addf("nil subject provider in scope %q at %s", c.scope.Name, callerLocation(1))
		return
	}
	c.scope.Subject = provider
}

func (c *Context) addHook(kind types.HookKind, fn types.Action) {
	loc := callerLocation(2)
	if fn == nil {
		c.state.issues.Addf("nil %s hook in scope %q at %s", kind, c.scope.Name, loc)
		return
	}
	// Add only fails for unknown kinds.
	_ = c.scope.Hooks.Add(types.Hook{Kind: kind, Fn: fn, Location: loc})
}

// BeforeAll runs once before the first selected case of the scope
func (c *Context) BeforeAll(fn types.Action) { c.addHook(types.HookBeforeAll, fn) }

// BeforeEach runs before every case of the scope, outermost scopes first
func (c *Context) BeforeEach(fn types.Action) { c.addHook(types.HookBeforeEach, fn) }

// JustBeforeEach runs after every BeforeEach of the case's chain
func (c *Context) JustBeforeEach(fn types.Action) { c.addHook(types.HookJustBeforeEach, fn) }

// AfterEach runs after every case of the scope, innermost scopes first
func (c *Context) AfterEach(fn types.Action) { c.addHook(types.HookAfterEach, fn) }

// AfterAll runs once after the last selected case of the scope
func (c *Context) AfterAll(fn types.Action) { c.addHook(types.HookAfterAll, fn) }

func (c *Context) addCase(name string, focused, pending bool, body types.Action, skip int) *CaseBuilder {
	tc := &types.Case{
		Name:     name,
		Body:     body,
		Focused:  focused,
		Pending:  pending,
		Location: callerLocation(skip),
	}
	return c.register(tc)
}

func (c *Context) register(tc *types.Case) *CaseBuilder {
	return c.registerNamed(tc, anonymousCasePrefix)
}

// registerNamed adds tc to the current scope, naming it prefix+N when anonymous
func (c *Context) registerNamed(tc *types.Case, prefix string) *CaseBuilder {
	synthetic := false
	if tc.Name == "" {
		c.state.anonymous[c.scope]++
		tc.Name = fmt.Sprintf("%s%d", prefix, c.state.anonymous[c.scope])
		synthetic = true
	}
	c.scope.AddCase(tc)
	cb := &CaseBuilder{tc: tc, synthetic: synthetic}
	c.state.cases = append(c.state.cases, cb)
	return cb
}

// It declares a case. An empty name is replaced with a positional name.
func (c *Context) It(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, false, false, body, 2)
}

// FIt declares a focused case
func (c *Context) FIt(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, true, false, body, 2)
}

// XIt declares a pending case. The body may be nil.
func (c *Context) XIt(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, false, true, body, 2)
}

func (c *Context) PIt(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, false, true, body, 2)
}

func (c *Context) Specify(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, false, false, body, 2)
}

func (c *Context) FSpecify(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, true, false, body, 2)
}

func (c *Context) XSpecify(name string, body types.Action) *CaseBuilder {
	return c.addCase(name, false, true, body, 2)
}

// CaseBuilder decorates a registered case
type CaseBuilder struct {
	tc         *types.Case
	retriesSet bool
	mprSet     bool
	synthetic  bool
}

// Case returns the declared case
func (b *CaseBuilder) Case() *types.Case {
	return b.tc
}

func (b *CaseBuilder) Labels(labels ...string) *CaseBuilder {
	b.tc.Labels = appendUnique(b.tc.Labels, labels...)
	return b
}

// Retries allows n extra attempts after a failure
func (b *CaseBuilder) Retries(n int) *CaseBuilder {
	b.tc.Retries = n
	b.retriesSet = true
	return b
}

// MustPassRepeatedly requires n consecutive passes
func (b *CaseBuilder) MustPassRepeatedly(n int) *CaseBuilder {
	b.tc.MustPassRepeatedly = n
	b.mprSet = true
	return b
}

func (b *CaseBuilder) Timeout(d time.Duration) *CaseBuilder {
	b.tc.Timeout = d
	return b
}

func (b *CaseBuilder) Focus() *CaseBuilder {
	b.tc.Focused = true
	return b
}

func (b *CaseBuilder) Pending() *CaseBuilder {
	b.tc.Pending = true
	return b
}

// finalize validates decorators and naming once the whole tree is declared
func finalize(suite *types.Suite, state *buildState) {
	issues := state.issues
	for _, cb := range state.cases {
		tc := cb.tc
		where := fmt.Sprintf("%q at %s", tc.FullPath(), tc.Location)
		if cb.retriesSet && cb.mprSet {
			issues.Addf("case %s sets both retries and must-pass-repeatedly", where)
		}
		if tc.Retries < 0 {
			issues.Addf("case %s has negative retries %d", where, tc.Retries)
		}
		if tc.MustPassRepeatedly < 0 {
			issues.Addf("case %s has negative must-pass-repeatedly %d", where, tc.MustPassRepeatedly)
		}
		if cb.mprSet && tc.MustPassRepeatedly == 0 {
			issues.Addf("case %s must pass repeatedly at least once", where)
		}
		if tc.Timeout < 0 {
			issues.Addf("case %s has negative timeout %s", where, tc.Timeout)
		}
		if tc.Ordered {
			if len(tc.Steps) == 0 {
				issues.Addf("ordered case %s declares no steps", where)
			}
		} else if tc.Body == nil && !tc.Pending {
			issues.Addf("case %s has no body", where)
		}
	}
	checkSiblingNames(suite.Root, state)
}

// checkSiblingNames rejects explicit names that collide with generated ones
func checkSiblingNames(scope *types.Scope, state *buildState) {
	generated := make(map[string]bool)
	for _, cb := range state.cases {
		if cb.tc.Scope() == scope && cb.synthetic {
			generated[cb.tc.Name] = true
		}
	}
	seen := make(map[string]bool)
	for _, child := range scope.Children {
		switch n := child.(type) {
		case *types.Scope:
			checkSiblingNames(n, state)
		case *types.Case:
			if seen[n.Name] && generated[n.Name] {
				state.issues.Addf("case name %q in scope %q collides with a generated name", n.Name, scope.Name)
			}
			seen[n.Name] = true
		}
	}
}

func appendUnique(existing []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, e := range existing {
			if e == v {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, v)
		}
	}
	return existing
}

// callerLocation reports the source position skip frames above its caller
func callerLocation(skip int) types.Location {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return types.Location{}
	}
	return types.Location{File: file, Line: line}
}
