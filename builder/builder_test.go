package builder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

func pass(types.T) error { return nil }

func TestBuild_TreeShape(t *testing.T) {
	suite, err := Build("math", func(c *Context) {
		c.Describe("Calculator", func(c *Context) {
			c.Labels("math")
			c.BeforeEach(pass)
			c.AfterEach(pass)
			c.It("adds", pass).Labels("fast")
			c.It("", pass)
			c.When("dividing", func(c *Context) {
				c.BeforeAll(pass)
				c.Specify("", pass)
			})
		})
	})
	require.NoError(t, err)
	require.NotNil(t, suite)
	assert.Equal(t, "math", suite.Name)
	assert.True(t, suite.Root.IsRoot())
	assert.NotEmpty(t, suite.Location.File)

	cases := suite.Cases()
	require.Len(t, cases, 3)
	assert.Equal(t, "Calculator > adds", cases[0].FullPath())
	assert.Equal(t, "spec_1", cases[1].Name)
	assert.Equal(t, "spec_1", cases[2].Name, "anonymous numbering is per scope")
	assert.Equal(t, "Calculator > dividing > spec_1", cases[2].FullPath())
	assert.Equal(t, []string{"math", "fast"}, cases[0].EffectiveLabels())

	calc := suite.Root.Children[0].(*types.Scope)
	assert.Len(t, calc.Hooks.BeforeEach, 1)
	assert.Len(t, calc.Hooks.AfterEach, 1)
	assert.Contains(t, calc.Location.File, "builder_test.go")
	assert.Contains(t, cases[0].Location.File, "builder_test.go")

	dividing := calc.Children[2].(*types.Scope)
	assert.NotEqual(t, calc.ID, dividing.ID)
	assert.Len(t, dividing.Hooks.BeforeAll, 1)
}

func TestBuild_FocusAndPendingVariants(t *testing.T) {
	suite := MustBuild("variants", func(c *Context) {
		c.FDescribe("focused", func(c *Context) { c.It("a", pass) })
		c.XDescribe("pending", func(c *Context) { c.It("b", pass) })
		c.FContext("fctx", func(c *Context) { c.It("c", pass) })
		c.PWhen("pwhen", func(c *Context) { c.It("d", pass) })
		c.FIt("e", pass)
		c.XIt("f", nil)
		c.It("g", pass).Focus()
		c.It("h", pass).Pending()
	})

	byName := map[string]*types.Case{}
	for _, tc := range suite.Cases() {
		byName[tc.Name] = tc
	}
	assert.True(t, byName["a"].IsFocused())
	assert.True(t, byName["b"].IsPending())
	assert.True(t, byName["c"].IsFocused())
	assert.True(t, byName["d"].IsPending())
	assert.True(t, byName["e"].IsFocused())
	assert.True(t, byName["f"].IsPending())
	assert.True(t, byName["g"].IsFocused())
	assert.True(t, byName["h"].IsPending())
	assert.True(t, suite.HasFocus())
}

func TestBuild_Decorators(t *testing.T) {
	suite := MustBuild("decorators", func(c *Context) {
		c.It("retried", pass).Retries(2).Timeout(time.Second)
		c.It("repeated", pass).MustPassRepeatedly(3)
	})
	cases := suite.Cases()
	assert.Equal(t, 2, cases[0].Retries)
	assert.Equal(t, time.Second, cases[0].Timeout)
	assert.Equal(t, 3, cases[1].MustPassRepeatedly)
}

func TestBuild_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(c *Context)
		wantErr string
	}{
		{
			name:    "retries and must pass repeatedly",
			fn:      func(c *Context) { c.It("x", pass).Retries(1).MustPassRepeatedly(2) },
			wantErr: "sets both retries and must-pass-repeatedly",
		},
		{
			name:    "zero retries still conflicts",
			fn:      func(c *Context) { c.It("x", pass).Retries(0).MustPassRepeatedly(2) },
			wantErr: "sets both retries and must-pass-repeatedly",
		},
		{
			name:    "negative retries",
			fn:      func(c *Context) { c.It("x", pass).Retries(-1) },
			wantErr: "negative retries",
		},
		{
			name:    "negative timeout",
			fn:      func(c *Context) { c.It("x", pass).Timeout(-time.Second) },
			wantErr: "negative timeout",
		},
		{
			name:    "zero must pass repeatedly",
			fn:      func(c *Context) { c.It("x", pass).MustPassRepeatedly(0) },
			wantErr: "must pass repeatedly at least once",
		},
		{
			name:    "nil body",
			fn:      func(c *Context) { c.It("x", nil) },
			wantErr: "has no body",
		},
		{
			name:    "nil hook",
			fn:      func(c *Context) { c.BeforeEach(nil) },
			wantErr: "nil before_each hook",
		},
		{
			name:    "empty ordered case",
			fn:      func(c *Context) { c.Ordered("flow", func(o *OrderedContext) {}) },
			wantErr: "declares no steps",
		},
		{
			name: "explicit name collides with generated name",
			fn: func(c *Context) {
				c.It("", pass)
				c.It("spec_1", pass)
			},
			wantErr: `case name "spec_1"`,
		},
		{
			name:    "panic while declaring",
			fn:      func(c *Context) { panic("bad declaration") },
			wantErr: "bad declaration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite, err := Build("broken", tt.fn)
			require.Error(t, err)
			assert.Nil(t, suite)
			var ce *types.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_CollectsAllIssues(t *testing.T) {
	_, err := Build("broken", func(c *Context) {
		c.It("a", nil)
		c.It("b", pass).Retries(-2)
	})
	var ce *types.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Len(t, ce.Issues, 2)
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustBuild("broken", func(c *Context) { c.It("x", nil) })
	})
}

func TestOrdered(t *testing.T) {
	suite := MustBuild("ordered", func(c *Context) {
		c.Ordered("checkout", func(o *OrderedContext) {
			o.Labels("flow")
			o.Step("add to cart", pass)
			o.Step("pay", pass)
		}).Timeout(time.Minute)
		c.OrderedContinueOnFailure("audit", func(o *OrderedContext) {
			o.Step("one", pass)
		})
	})
	cases := suite.Cases()
	require.Len(t, cases, 2)
	assert.True(t, cases[0].Ordered)
	assert.False(t, cases[0].ContinueOnFailure)
	assert.Equal(t, []string{"flow"}, cases[0].Labels)
	require.Len(t, cases[0].Steps, 2)
	assert.Equal(t, "pay", cases[0].Steps[1].Name)
	assert.Equal(t, time.Minute, cases[0].Timeout)
	assert.True(t, cases[1].ContinueOnFailure)
}
