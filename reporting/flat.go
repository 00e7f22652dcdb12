package reporting

import (
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-spec/types"
	"github.com/ethereum-optimism/infra/op-spec/ui"
)

// flatBoxWidth is the minimum width of the flat report box
const flatBoxWidth = 60

// FlatFormatter renders only counts: one row per suite and a combined total
type FlatFormatter struct {
	opts Options
	p    palette
}

// NewFlatFormatter creates a new flat formatter
func NewFlatFormatter(opts Options) *FlatFormatter {
	return &FlatFormatter{opts: opts, p: newPalette(opts.NoColor)}
}

// Format implements Formatter
func (f *FlatFormatter) Format(run *types.RunResult) (string, error) {
	var lines []string
	for _, suite := range run.Suites {
		status := f.p.pass.Sprint("PASS")
		if !suite.Passed() {
			status = f.p.fail.Sprint("FAIL")
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", status, suite.Name, summaryLine(suite.Stats, suite.Elapsed, f.p)))
	}
	lines = append(lines, fmt.Sprintf("total: %s", summaryLine(run.Stats, run.Elapsed, f.p)))

	width := flatBoxWidth
	for _, line := range lines {
		if w := ui.DisplayWidth(line) + 4; w > width {
			width = w
		}
	}
	box := ui.NewBox(fmt.Sprintf("Run %s", run.RunID), width)
	for _, line := range lines {
		box.AddLine(line)
	}

	var b strings.Builder
	b.WriteString(box.String())
	if run.FocusFailed {
		b.WriteString(f.p.pending.Sprint("Focus markers are present and fail-on-focus is set"))
		b.WriteString("\n")
	}
	b.WriteString(verdict(run, f.p))
	b.WriteString("\n")
	return b.String(), nil
}
