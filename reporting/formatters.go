package reporting

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// Output formats accepted by NewFormatter
const (
	FormatTree  = "tree"
	FormatFlat  = "flat"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Formats lists the supported output formats
var Formats = []string{FormatTree, FormatFlat, FormatTable, FormatJSON}

// slowCaseThreshold is the duration above which a case's elapsed time is printed
const slowCaseThreshold = 100 * time.Millisecond

// Formatter renders the results of a run
type Formatter interface {
	Format(run *types.RunResult) (string, error)
}

// Options controls what the formatters include
type Options struct {
	NoColor     bool // plain output, no ANSI escapes
	ShowSkipped bool // include cases skipped by filters or focus
	Details     bool // include step logs, ordered steps and failure locations of steps
}

// NewFormatter returns the formatter for one of Formats
func NewFormatter(format string, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatTree:
		return NewTreeTextFormatter(opts), nil
	case FormatFlat:
		return NewFlatFormatter(opts), nil
	case FormatTable:
		return NewTableFormatter("Results", opts), nil
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	}
	return nil, types.NewConfigError(fmt.Sprintf("unknown output format %q, expected one of %s",
		format, strings.Join(Formats, ", ")))
}

// palette holds the colours used by the text formatters
type palette struct {
	pass    *color.Color
	fail    *color.Color
	pending *color.Color
	dim     *color.Color
	bold    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		pending: color.New(color.FgYellow),
		dim:     color.New(color.Faint),
		bold:    color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.pass, p.fail, p.pending, p.dim, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// summaryLine lists the non-zero counts followed by the elapsed seconds,
// e.g. "3 passed, 1 failed, 1 pending (0.012s)".
func summaryLine(stats types.ResultStats, elapsed time.Duration, p palette) string {
	var parts []string
	if stats.Passed > 0 {
		parts = append(parts, p.pass.Sprintf("%d passed", stats.Passed))
	}
	if stats.Failed > 0 {
		parts = append(parts, p.fail.Sprintf("%d failed", stats.Failed))
	}
	if stats.Pending > 0 {
		parts = append(parts, p.pending.Sprintf("%d pending", stats.Pending))
	}
	if stats.Skipped > 0 {
		parts = append(parts, p.dim.Sprintf("%d skipped", stats.Skipped))
	}
	if len(parts) == 0 {
		parts = append(parts, "0 passed")
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ", "),
		p.dim.Sprintf("%.3fs", elapsed.Seconds()))
}

// verdict is the terminal PASS/FAIL line
func verdict(run *types.RunResult, p palette) string {
	if run.Passed() {
		return p.pass.Sprint("PASS")
	}
	return p.fail.Sprint("FAIL")
}

// suiteHeader is "name (file)", either part alone, or empty
func suiteHeader(suite *types.SuiteResult) string {
	file := ""
	if suite.Location.File != "" {
		file = filepath.Base(suite.Location.File)
	}
	switch {
	case suite.Name != "" && file != "":
		return fmt.Sprintf("%s (%s)", suite.Name, file)
	case suite.Name != "":
		return suite.Name
	}
	return file
}

// failureEntry is the "path: message" line of the numbered failure list
func failureEntry(r *types.CaseResult) string {
	return fmt.Sprintf("%s: %s", r.FullPath(), r.Message())
}

func statusString(status types.Status) string {
	switch status {
	case types.StatusPassed:
		return "pass"
	case types.StatusFailed:
		return "fail"
	case types.StatusPending:
		return "pending"
	case types.StatusSkipped:
		return "skip"
	}
	return "unknown"
}
