package opspec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/builder"
	"github.com/ethereum-optimism/infra/op-spec/flags"
	"github.com/ethereum-optimism/infra/op-spec/logging"
	"github.com/ethereum-optimism/infra/op-spec/registry"
	"github.com/ethereum-optimism/infra/op-spec/reporting"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

func testConfig() *Config {
	return &Config{
		Format:   reporting.FormatTree,
		NoColor:  true,
		Progress: flags.ProgressNone,
		Log:      log.NewLogger(log.DiscardHandler()),
	}
}

func testRegistry(t *testing.T, failing bool) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(log.NewLogger(log.DiscardHandler()))
	reg.MustAdd("Calculator", func(c *builder.Context) {
		c.Describe("addition", func(c *builder.Context) {
			c.It("adds", func(t types.T) error { return nil }).Labels("fast")
			c.PIt("adds big numbers", nil)
		})
		c.It("divides", func(t types.T) error {
			if failing {
				return errors.New("division by zero")
			}
			return nil
		})
	})
	reg.MustAdd("Strings", func(c *builder.Context) {
		c.It("concatenates", func(t types.T) error { return nil }).Labels("fast")
	})
	return reg
}

// shutdownRecorder captures the shutdown callback of a lifecycle
type shutdownRecorder chan error

func (s shutdownRecorder) callback(err error) { s <- err }

func (s shutdownRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case err := <-s:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback was not called")
	}
}

func TestNewValidation(t *testing.T) {
	reg := testRegistry(t, false)

	_, err := New(nil, reg, "v0", nil, nil)
	require.Error(t, err)

	_, err = New(testConfig(), nil, "v0", nil, nil)
	require.Error(t, err)

	cfg := testConfig()
	cfg.Suites = []string{"Nope"}
	_, err = New(cfg, reg, "v0", nil, nil)
	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), `unknown suite "Nope"`)

	cfg = testConfig()
	cfg.Format = "xml"
	_, err = New(cfg, reg, "v0", nil, nil)
	require.True(t, errors.As(err, &cfgErr))

	cfg = testConfig()
	cfg.LabelFilter = "fast &&"
	_, err = New(cfg, reg, "v0", nil, nil)
	require.True(t, errors.As(err, &cfgErr))
}

func TestStartPassingRun(t *testing.T) {
	var out bytes.Buffer
	done := make(shutdownRecorder, 1)
	app, err := New(testConfig(), testRegistry(t, false), "v0", &out, done.callback)
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	done.wait(t)

	report := out.String()
	assert.Contains(t, report, "--- Calculator")
	assert.Contains(t, report, "--- Strings")
	assert.Contains(t, report, "3 passed, 1 pending (")
	assert.True(t, strings.HasSuffix(report, "PASS\n"))
	require.NotNil(t, app.Result())
	assert.True(t, app.Result().Passed())

	assert.False(t, app.Stopped())
	require.NoError(t, app.Stop(context.Background()))
	assert.True(t, app.Stopped())
	require.NoError(t, app.Stop(context.Background()))
}

func TestStartFailingRun(t *testing.T) {
	var out bytes.Buffer
	app, err := New(testConfig(), testRegistry(t, true), "v0", &out, nil)
	require.NoError(t, err)

	err = app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out.String(), "Failures:")
	assert.Contains(t, out.String(), "1. divides: division by zero")
	assert.True(t, strings.HasSuffix(out.String(), "FAIL\n"))
}

func TestStartSelection(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig()
	cfg.Suites = []string{"Strings"}
	cfg.Format = reporting.FormatJSON
	app, err := New(cfg, testRegistry(t, true), "v0", &out, nil)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	var doc reporting.RunJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.True(t, doc.Passed)
	assert.Equal(t, 1, doc.Stats.Passed)
	assert.Equal(t, 1, doc.Stats.Total)
}

func TestStartList(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig()
	cfg.List = true
	cfg.NameFilters = []string{"adds"}
	done := make(shutdownRecorder, 1)
	app, err := New(cfg, testRegistry(t, true), "v0", &out, done.callback)
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	done.wait(t)
	assert.Nil(t, app.Result())
	assert.Contains(t, out.String(), "addition > adds\n")
	assert.Contains(t, out.String(), "addition > adds big numbers (pending)\n")
	assert.NotContains(t, out.String(), "divides")
}

func TestStartFocusFailure(t *testing.T) {
	reg := registry.NewRegistry(log.NewLogger(log.DiscardHandler()))
	reg.MustAdd("Focused", func(c *builder.Context) {
		c.FIt("only this", func(t types.T) error { return nil })
		c.It("not this", func(t types.T) error { return nil })
	})

	cfg := testConfig()
	cfg.FailOnFocus = true
	var out bytes.Buffer
	app, err := New(cfg, reg, "v0", &out, nil)
	require.NoError(t, err)

	err = app.Start(context.Background())
	require.Error(t, err)
	var failure *TestFailureError
	require.True(t, errors.As(err, &failure))
	assert.True(t, failure.FocusFailed)
	assert.Zero(t, failure.Failed)
}

func TestStartNothingFocused(t *testing.T) {
	reg := registry.NewRegistry(log.NewLogger(log.DiscardHandler()))
	reg.MustAdd("Focused", func(c *builder.Context) {
		c.FIt("fast one", func(t types.T) error { return nil })
		c.It("other", func(t types.T) error { return nil })
	})

	cfg := testConfig()
	cfg.NameFilters = []string{"other"}
	app, err := New(cfg, reg, "v0", &bytes.Buffer{}, nil)
	require.NoError(t, err)

	err = app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestStartWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.LogDir = dir
	cfg.MetricsFile = filepath.Join(dir, "opspec.prom")
	app, err := New(cfg, testRegistry(t, true), "v0", &bytes.Buffer{}, nil)
	require.NoError(t, err)

	err = app.Start(context.Background())
	require.True(t, IsTestFailureError(err))

	runDir := filepath.Join(dir, logging.RunDirectoryPrefix+app.Result().RunID)
	for _, name := range []string{logging.SummaryFilename, logging.ResultsFilename, logging.AllLogsFilename} {
		assert.FileExists(t, filepath.Join(runDir, name))
	}
	assert.FileExists(t, filepath.Join(runDir, logging.FailedDirname, "Calculator_divides.log"))

	metricsText, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "opspec_cases_total")
}

func TestStartServesMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.ServeAddr = "127.0.0.1:0"
	app, err := New(cfg, testRegistry(t, false), "v0", &bytes.Buffer{}, nil)
	require.NoError(t, err)

	require.NoError(t, app.Start(context.Background()))
	require.NotNil(t, app.service)
	assert.NotEmpty(t, app.service.Addr())
	require.NoError(t, app.Stop(context.Background()))
}
