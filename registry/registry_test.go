package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/builder"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	reg := NewRegistry(log.NewLogger(log.DiscardHandler()))
	for _, name := range names {
		require.NoError(t, reg.Add(name, func(c *builder.Context) {
			c.It("works", func(types.T) error { return nil })
		}))
	}
	return reg
}

func TestRegisterKeepsOrder(t *testing.T) {
	reg := newTestRegistry(t, "zeta", "alpha", "mid")
	var names []string
	for _, s := range reg.Suites() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestRegisterRejectsDuplicatesAndUnbuilt(t *testing.T) {
	reg := newTestRegistry(t, "alpha")
	err := reg.Add("alpha", func(c *builder.Context) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `suite "alpha" is already registered`)

	require.Error(t, reg.Register(nil))
	require.Error(t, reg.Register(&types.Suite{Name: "raw"}))
	assert.Len(t, reg.Suites(), 1)
}

func TestAddReportsBuildErrors(t *testing.T) {
	reg := newTestRegistry(t)
	err := reg.Add("broken", func(c *builder.Context) {
		c.It("both", func(types.T) error { return nil }).Retries(1).MustPassRepeatedly(2)
	})
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, reg.Suites())

	assert.Panics(t, func() {
		reg.MustAdd("broken", func(c *builder.Context) {
			c.It("nil body", nil)
		})
	})
}

func TestSelect(t *testing.T) {
	reg := newTestRegistry(t, "a", "b", "c")

	all, err := reg.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	selected, err := reg.Select([]string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "a", selected[0].Name)
	assert.Equal(t, "c", selected[1].Name)

	_, err = reg.Select([]string{"a", "missing", "gone"})
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{`unknown suite "missing"`, `unknown suite "gone"`}, cfgErr.Issues)
}
