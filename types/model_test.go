package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() (*Scope, *Scope, *Case) {
	root := &Scope{ID: 0}
	outer := &Scope{ID: 1, Name: "Calculator", Labels: []string{"math"}}
	inner := &Scope{ID: 2, Name: "when adding", Labels: []string{"fast", "math"}}
	c := &Case{Name: "adds", Labels: []string{"smoke"}}
	root.AddScope(outer)
	outer.AddScope(inner)
	inner.AddCase(c)
	return root, outer, c
}

func TestCase_Path(t *testing.T) {
	_, _, c := sampleTree()
	assert.Equal(t, []string{"Calculator", "when adding", "adds"}, c.Path())
	assert.Equal(t, "Calculator > when adding > adds", c.FullPath())
}

func TestCase_EffectiveLabels(t *testing.T) {
	_, _, c := sampleTree()
	assert.Equal(t, []string{"math", "fast", "smoke"}, c.EffectiveLabels())
}

func TestCase_PendingAndFocusInheritance(t *testing.T) {
	_, outer, c := sampleTree()
	assert.False(t, c.IsPending())
	assert.False(t, c.IsFocused())

	outer.Pending = true
	outer.Focused = true
	assert.True(t, c.IsPending())
	assert.True(t, c.IsFocused())
}

func TestCase_SubjectProviderNearestAncestorWins(t *testing.T) {
	root, outer, c := sampleTree()
	assert.Nil(t, c.SubjectProvider())

	outerSubject := func(T) (any, error) { return "outer", nil }
	outer.Subject = outerSubject
	got := c.SubjectProvider()
	require.NotNil(t, got)
	v, _ := got(nil)
	assert.Equal(t, "outer", v)

	c.Scope().Subject = func(T) (any, error) { return "inner", nil }
	v, _ = c.SubjectProvider()(nil)
	assert.Equal(t, "inner", v)

	assert.True(t, root.IsRoot())
}

func TestScope_CasesPreservesInsertionOrder(t *testing.T) {
	root := &Scope{}
	a := &Case{Name: "a"}
	nested := &Scope{Name: "nested"}
	b := &Case{Name: "b"}
	c := &Case{Name: "c"}
	root.AddCase(a)
	root.AddScope(nested)
	nested.AddCase(b)
	root.AddCase(c)

	suite := &Suite{Name: "s", Root: root}
	assert.Equal(t, []*Case{a, b, c}, suite.Cases())
	assert.False(t, suite.HasFocus())

	b.Focused = true
	assert.True(t, suite.HasFocus())
}

func TestHooks_Add(t *testing.T) {
	var h Hooks
	require.NoError(t, h.Add(Hook{Kind: HookBeforeEach}))
	require.NoError(t, h.Add(Hook{Kind: HookAfterAll}))
	require.Error(t, h.Add(Hook{Kind: "around"}))
	assert.Len(t, h.BeforeEach, 1)
	assert.Len(t, h.AfterAll, 1)
	assert.Empty(t, h.BeforeAll)
}

func TestJoinPath_SkipsAnonymousElements(t *testing.T) {
	assert.Equal(t, "a > c", JoinPath([]string{"a", "", "c"}))
	assert.Equal(t, "", JoinPath(nil))
}

func TestConfigError(t *testing.T) {
	var ce ConfigError
	assert.NoError(t, ce.Err())
	ce.Addf("bad %s", "thing")
	assert.EqualError(t, ce.Err(), "configuration error: bad thing")
	ce.Addf("worse")
	assert.Contains(t, ce.Error(), "configuration errors (2)")
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "boom", (&Failure{Kind: FailureAssertion, Message: "boom"}).Error())
	assert.Equal(t, "before_each hook failed: db down", (&Failure{Kind: FailureHook, Hook: HookBeforeEach, Message: "db down"}).Error())
	assert.Equal(t, "timed out after 50ms", (&Failure{Kind: FailureTimeout, Timeout: 50_000_000}).Error())
}
