package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

func TestHTMLResultsSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewHTMLResultsSink(dir)
	require.NoError(t, err)

	run := sampleRun()
	run.Suites[0].Results = append(run.Suites[0].Results, &types.CaseResult{
		Name: "checkout", Path: []string{"checkout"}, Status: types.StatusFailed, Attempts: 1,
		Failure: &types.Failure{Kind: types.FailureAssertion, Message: `step "pay": <declined>`},
		Steps: []types.StepResult{
			{Name: "add items", Status: types.StatusPassed},
			{Name: "pay", Status: types.StatusFailed, Failure: &types.Failure{Kind: types.FailureAssertion, Message: "<declined>"}},
		},
	})
	run.Suites[0].Stats.Add(types.StatusFailed)
	run.Stats = run.Suites[0].Stats

	require.NoError(t, sink.Consume("Calculator", run.Suites[0].Results[0]))
	require.NoError(t, sink.Complete(run))

	data, err := os.ReadFile(filepath.Join(dir, HTMLFilename))
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "FAIL &middot; run abc")
	assert.Contains(t, page, `<li class="suite fail">Calculator`)
	assert.Contains(t, page, "addition")
	assert.Contains(t, page, "✓ adds")
	assert.Contains(t, page, "✗ divides")
	assert.Contains(t, page, "○ excluded")
	assert.Contains(t, page, "step pay: ✗")
	assert.Contains(t, page, "at calc.go:9")
	// Messages are escaped
	assert.Contains(t, page, "&lt;declined&gt;")
	assert.False(t, strings.Contains(page, "<declined>"))
}

func TestFileLoggerWritesHTML(t *testing.T) {
	l, err := NewFileLogger(t.TempDir(), "abc")
	require.NoError(t, err)
	require.NoError(t, l.WriteRun(sampleRun()))
	assert.FileExists(t, filepath.Join(l.LogDir(), HTMLFilename))
}

func TestIndentClass(t *testing.T) {
	indent := templateFuncs()["indentClass"].(func(int) string)
	assert.Equal(t, "indent-1", indent(0))
	assert.Equal(t, "indent-1", indent(2))
	assert.Equal(t, "indent-3", indent(4))
	assert.Equal(t, "indent-5", indent(12))
}
