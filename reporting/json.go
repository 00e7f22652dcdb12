package reporting

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// RunJSON is the JSON document describing a run
type RunJSON struct {
	RunID       string            `json:"runId"`
	Timestamp   time.Time         `json:"timestamp"`
	Duration    time.Duration     `json:"duration"`
	Passed      bool              `json:"passed"`
	HasFocus    bool              `json:"hasFocus"`
	FocusFailed bool              `json:"focusFailed,omitempty"`
	Stats       types.ResultStats `json:"stats"`
	Hierarchy   []TreeNodeJSON    `json:"hierarchy"`
	Cases       []CaseJSON        `json:"cases"`
	FailedCases []string          `json:"failedCases"`
}

// TreeNodeJSON is a suite, scope, case or step node of the hierarchy
type TreeNodeJSON struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Type     types.ResultTreeNodeType `json:"type"`
	Status   types.Status             `json:"status"`
	Duration time.Duration            `json:"duration"`
	Stats    *types.ResultStats       `json:"stats,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Children []TreeNodeJSON           `json:"children,omitempty"`
}

// CaseJSON is the flat record of one case result
type CaseJSON struct {
	Suite       string             `json:"suite"`
	Path        string             `json:"path"`
	Name        string             `json:"name"`
	Labels      []string           `json:"labels,omitempty"`
	Status      types.Status       `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	Failure     *types.Failure     `json:"failure,omitempty"`
	Location    types.Location     `json:"location"`
	Duration    time.Duration      `json:"duration"`
	Attempts    int                `json:"attempts,omitempty"`
	Consecutive int                `json:"consecutive,omitempty"`
	Required    int                `json:"required,omitempty"`
	TimedOut    bool               `json:"timedOut,omitempty"`
	Steps       []types.StepResult `json:"steps,omitempty"`
	ByLog       []string           `json:"byLog,omitempty"`
	Synthetic   bool               `json:"synthetic,omitempty"`
}

// JSONFormatter renders results as an indented JSON document. Skipped cases
// are always listed in Cases; ShowSkipped only affects the hierarchy.
type JSONFormatter struct {
	opts Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts Options) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format implements Formatter
func (f *JSONFormatter) Format(run *types.RunResult) (string, error) {
	data, err := json.MarshalIndent(f.Document(run), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(data) + "\n", nil
}

// Document builds the JSON document for run
func (f *JSONFormatter) Document(run *types.RunResult) *RunJSON {
	tree := types.NewResultTreeBuilder().WithSkipped(f.opts.ShowSkipped).Build(run)
	doc := &RunJSON{
		RunID:       run.RunID,
		Timestamp:   run.Started,
		Duration:    run.Elapsed,
		Passed:      run.Passed(),
		HasFocus:    run.HasFocus,
		FocusFailed: run.FocusFailed,
		Stats:       run.Stats,
		Hierarchy:   make([]TreeNodeJSON, 0, len(tree.Root.Children)),
		Cases:       []CaseJSON{},
		FailedCases: []string{},
	}
	for _, child := range tree.Root.Children {
		doc.Hierarchy = append(doc.Hierarchy, nodeJSON(child))
	}
	for _, suite := range run.Suites {
		for _, r := range suite.Results {
			doc.Cases = append(doc.Cases, caseJSON(suite.Name, r))
			if r.Status == types.StatusFailed {
				doc.FailedCases = append(doc.FailedCases, r.FullPath())
			}
		}
	}
	return doc
}

func nodeJSON(node *types.ResultTreeNode) TreeNodeJSON {
	out := TreeNodeJSON{
		ID:       node.ID,
		Name:     node.Name,
		Type:     node.Type,
		Status:   node.Status,
		Duration: node.Duration,
	}
	if node.IsContainer() {
		stats := node.Stats
		out.Stats = &stats
	}
	switch {
	case node.Result != nil && node.Result.Failure != nil:
		out.Error = node.Result.Message()
	case node.Step != nil && node.Step.Failure != nil:
		out.Error = node.Step.Failure.Error()
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, nodeJSON(child))
	}
	return out
}

func caseJSON(suite string, r *types.CaseResult) CaseJSON {
	return CaseJSON{
		Suite:       suite,
		Path:        r.FullPath(),
		Name:        r.Name,
		Labels:      r.Labels,
		Status:      r.Status,
		Reason:      r.Reason,
		Failure:     r.Failure,
		Location:    r.Location,
		Duration:    r.Elapsed,
		Attempts:    r.Attempts,
		Consecutive: r.Consecutive,
		Required:    r.Required,
		TimedOut:    r.TimedOut,
		Steps:       r.Steps,
		ByLog:       r.ByLog,
		Synthetic:   r.Synthetic,
	}
}
