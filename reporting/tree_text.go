package reporting

import (
	"fmt"
	"strings"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// TreeTextFormatter renders results as a nested tree mirroring the scope
// hierarchy. Each suite gets a "--- name (file) ---" header, scopes are indented
// two spaces per level and cases carry a status glyph. The report ends with the
// numbered failures, the summary line and a PASS/FAIL line.
type TreeTextFormatter struct {
	opts Options
	p    palette
}

// NewTreeTextFormatter creates a new tree formatter
func NewTreeTextFormatter(opts Options) *TreeTextFormatter {
	return &TreeTextFormatter{opts: opts, p: newPalette(opts.NoColor)}
}

// Format implements Formatter
func (f *TreeTextFormatter) Format(run *types.RunResult) (string, error) {
	tree := types.NewResultTreeBuilder().
		WithSkipped(f.opts.ShowSkipped).
		WithSteps(true).
		Build(run)

	var b strings.Builder
	b.WriteString("\n")
	for i, suiteNode := range tree.Root.Children {
		if header := suiteHeader(run.Suites[i]); header != "" {
			b.WriteString(f.p.dim.Sprintf("--- %s ---", header))
			b.WriteString("\n\n")
		}
		for _, child := range suiteNode.Children {
			f.writeNode(&b, child)
		}
		if len(run.Suites) > 1 {
			b.WriteString("\n")
		}
	}
	f.writeSummary(&b, run)
	return b.String(), nil
}

func (f *TreeTextFormatter) writeNode(b *strings.Builder, node *types.ResultTreeNode) {
	indent := strings.Repeat("  ", node.Depth-1)
	switch node.Type {
	case types.NodeTypeScope:
		name := node.Name
		if name == "" {
			name = f.p.dim.Sprint("(anonymous)")
		} else {
			name = f.p.bold.Sprint(name)
		}
		fmt.Fprintf(b, "%s%s\n", indent, name)
		for _, child := range node.Children {
			f.writeNode(b, child)
		}
	case types.NodeTypeCase:
		f.writeCase(b, indent+"  ", node.Result)
		for _, child := range node.Children {
			f.writeNode(b, child)
		}
	case types.NodeTypeStep:
		f.writeStep(b, indent+"  ", node.Step)
	}
}

func (f *TreeTextFormatter) writeCase(b *strings.Builder, indent string, r *types.CaseResult) {
	elapsed := ""
	if r.Elapsed > slowCaseThreshold {
		elapsed = " " + f.p.dim.Sprintf("(%dms)", r.Elapsed.Milliseconds())
	}

	switch r.Status {
	case types.StatusPassed:
		fmt.Fprintf(b, "%s%s %s%s%s\n", indent, f.p.pass.Sprint("✓"), r.Name, elapsed, f.attempts(r))
	case types.StatusFailed:
		fmt.Fprintf(b, "%s%s %s%s%s\n", indent, f.p.fail.Sprint("✗"), f.p.fail.Sprint(r.Name), elapsed, f.attempts(r))
		fmt.Fprintf(b, "%s  %s\n", indent, f.p.fail.Sprintf("Error: %s", r.Message()))
		if r.Failure != nil && !r.Failure.Location.IsZero() {
			fmt.Fprintf(b, "%s  %s\n", indent, f.p.dim.Sprintf("at %s", r.Failure.Location))
		}
	case types.StatusPending:
		fmt.Fprintf(b, "%s%s %s\n", indent, f.p.pending.Sprint("-"), f.p.dim.Sprint(r.Name))
	case types.StatusSkipped:
		reason := ""
		if r.Reason != "" {
			reason = " " + f.p.dim.Sprintf("(%s)", r.Reason)
		}
		fmt.Fprintf(b, "%s%s %s%s\n", indent, f.p.dim.Sprint("○"), f.p.dim.Sprint(r.Name), reason)
	}

	if f.opts.Details {
		for _, step := range r.ByLog {
			fmt.Fprintf(b, "%s  %s\n", indent, f.p.dim.Sprintf("STEP: %s", step))
		}
	}
}

// attempts annotates cases that ran more than once
func (f *TreeTextFormatter) attempts(r *types.CaseResult) string {
	switch {
	case r.Required > 0:
		return " " + f.p.dim.Sprintf("[%d/%d consecutive]", r.Consecutive, r.Required)
	case r.Attempts > 1:
		return " " + f.p.dim.Sprintf("[%d attempts]", r.Attempts)
	}
	return ""
}

func (f *TreeTextFormatter) writeStep(b *strings.Builder, indent string, s *types.StepResult) {
	switch s.Status {
	case types.StatusPassed:
		fmt.Fprintf(b, "%s%s %s\n", indent, f.p.pass.Sprint("✓"), s.Name)
	case types.StatusFailed:
		fmt.Fprintf(b, "%s%s %s\n", indent, f.p.fail.Sprint("✗"), f.p.fail.Sprint(s.Name))
		if f.opts.Details && s.Failure != nil {
			fmt.Fprintf(b, "%s  %s\n", indent, f.p.fail.Sprintf("Error: %s", s.Failure.Error()))
		}
	default:
		reason := ""
		if s.Reason != "" {
			reason = " " + f.p.dim.Sprintf("(%s)", s.Reason)
		}
		fmt.Fprintf(b, "%s%s %s%s\n", indent, f.p.dim.Sprint("○"), f.p.dim.Sprint(s.Name), reason)
	}
}

func (f *TreeTextFormatter) writeSummary(b *strings.Builder, run *types.RunResult) {
	b.WriteString("\n")
	if failures := run.Failures(); len(failures) > 0 {
		b.WriteString("Failures:\n")
		for i, r := range failures {
			fmt.Fprintf(b, "  %d. %s\n", i+1, failureEntry(r))
		}
		b.WriteString("\n")
	}
	if run.FocusFailed {
		b.WriteString(f.p.pending.Sprint("Focus markers are present and fail-on-focus is set"))
		b.WriteString("\n")
	}
	b.WriteString(summaryLine(run.Stats, run.Elapsed, f.p))
	b.WriteString("\n")
	b.WriteString(verdict(run, f.p))
	b.WriteString("\n")
}
