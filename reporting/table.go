package reporting

import (
	"bytes"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-spec/types"
	"github.com/ethereum-optimism/infra/op-spec/ui"
)

// TableFormatter renders the result tree as an ASCII table, one row per suite,
// scope and case, with a TOTAL footer
type TableFormatter struct {
	title string
	opts  Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string, opts Options) *TableFormatter {
	return &TableFormatter{title: title, opts: opts}
}

// Format implements Formatter
func (f *TableFormatter) Format(run *types.RunResult) (string, error) {
	tree := types.NewResultTreeBuilder().
		WithSkipped(f.opts.ShowSkipped).
		WithSteps(f.opts.Details).
		Build(run)

	var buf bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(f.title)
	t.AppendHeader(table.Row{"TYPE", "NAME", "DURATION", "CASES", "PASSED", "FAILED", "PENDING", "SKIPPED", "STATUS"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "TYPE", AutoMerge: true},
		{Name: "NAME", WidthMax: 120, WidthMaxEnforcer: text.WrapSoft},
		{Name: "DURATION", Align: text.AlignRight},
		{Name: "CASES", Align: text.AlignRight},
		{Name: "PASSED", Align: text.AlignRight},
		{Name: "FAILED", Align: text.AlignRight},
		{Name: "PENDING", Align: text.AlignRight},
		{Name: "SKIPPED", Align: text.AlignRight},
	})

	tree.Walk(func(node *types.ResultTreeNode) bool {
		if node.Type == types.NodeTypeRoot {
			return true
		}
		f.addNodeRow(t, node)
		return true
	})

	t.SetStyle(f.style(run))
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(tree.Duration),
		tree.Stats.Total,
		tree.Stats.Passed,
		tree.Stats.Failed,
		tree.Stats.Pending,
		tree.Stats.Skipped,
		strings.ToUpper(statusString(overallStatus(run))),
	})
	t.Render()
	return buf.String(), nil
}

func (f *TableFormatter) style(run *types.RunResult) table.Style {
	if f.opts.NoColor {
		return table.StyleLight
	}
	switch {
	case !run.Passed():
		return table.StyleColoredBlackOnRedWhite
	case run.Stats.Passed == 0:
		return table.StyleColoredBlackOnYellowWhite
	}
	return table.StyleColoredBlackOnGreenWhite
}

func (f *TableFormatter) addNodeRow(t table.Writer, node *types.ResultTreeNode) {
	name := treePrefix(node) + node.Name
	if node.Type == types.NodeTypeCase && node.Result.Failure != nil && f.opts.Details {
		name += "\n" + node.Result.Message()
	}
	stats := node.Stats
	if node.Type == types.NodeTypeStep {
		stats = types.ResultStats{}
	}
	t.AppendRow(table.Row{
		nodeTypeString(node.Type),
		name,
		formatDuration(node.Duration),
		stats.Total,
		stats.Passed,
		stats.Failed,
		stats.Pending,
		stats.Skipped,
		strings.ToUpper(statusString(node.Status)),
	})
}

// treePrefix draws the connectors of a node below its suite
func treePrefix(node *types.ResultTreeNode) string {
	if node.Parent == nil || node.Parent.Type == types.NodeTypeRoot {
		return ""
	}
	var ancestorsLast []bool
	for cur := node.Parent; cur.Parent != nil && cur.Parent.Type != types.NodeTypeRoot; cur = cur.Parent {
		ancestorsLast = append([]bool{isLastSibling(cur)}, ancestorsLast...)
	}
	return ui.BuildTreePrefix(node.Depth, isLastSibling(node), ancestorsLast)
}

func isLastSibling(node *types.ResultTreeNode) bool {
	if node.Parent == nil {
		return true
	}
	siblings := node.Parent.Children
	return len(siblings) > 0 && siblings[len(siblings)-1] == node
}

func nodeTypeString(t types.ResultTreeNodeType) string {
	switch t {
	case types.NodeTypeSuite:
		return "Suite"
	case types.NodeTypeScope:
		return "Scope"
	case types.NodeTypeCase:
		return "Case"
	case types.NodeTypeStep:
		return "Step"
	}
	return "Unknown"
}

// overallStatus is Failed when the run did not pass, else the best case status
func overallStatus(run *types.RunResult) types.Status {
	switch {
	case !run.Passed():
		return types.StatusFailed
	case run.Stats.Passed > 0:
		return types.StatusPassed
	case run.Stats.Pending > 0:
		return types.StatusPending
	}
	return types.StatusSkipped
}
