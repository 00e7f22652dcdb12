package logging

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

const HTMLFilename = "results.html"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// maxIndent caps the nesting depth styled by the HTML template
const maxIndent = 5

// GetHTMLTemplate parses one of the embedded templates with the shared functions
func GetHTMLTemplate(name string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs()).ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			if d < time.Second {
				return fmt.Sprintf("%dms", d.Milliseconds())
			}
			return d.Truncate(time.Millisecond).String()
		},
		"statusClass": statusClass,
		"statusText":  statusText,
		"indentClass": func(depth int) string {
			return fmt.Sprintf("indent-%d", max(1, min(depth-1, maxIndent)))
		},
	}
}

func statusClass(status types.Status) string {
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
	return ""
}

func statusText(status types.Status) string {
	switch status {
	case types.StatusPassed:
		return "✓"
	case types.StatusFailed:
		return "✗"
	case types.StatusPending:
		return "-"
	case types.StatusSkipped:
		return "○"
	}
	return "?"
}

// htmlPage is the data rendered by results.html.tmpl
type htmlPage struct {
	RunID       string
	Timestamp   time.Time
	Duration    time.Duration
	Stats       types.ResultStats
	Status      types.Status
	Verdict     string
	FocusFailed bool
	Nodes       []*types.ResultTreeNode
}

// HTMLResultsSink renders the result tree, skipped cases and steps included,
// to results.html
type HTMLResultsSink struct {
	dir  string
	tmpl *template.Template
}

func NewHTMLResultsSink(dir string) (*HTMLResultsSink, error) {
	tmpl, err := GetHTMLTemplate("results.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &HTMLResultsSink{dir: dir, tmpl: tmpl}, nil
}

// Consume is a no-op; the page is rendered from the complete run
func (s *HTMLResultsSink) Consume(string, *types.CaseResult) error { return nil }

func (s *HTMLResultsSink) Complete(run *types.RunResult) error {
	tree := types.NewResultTreeBuilder().WithSkipped(true).WithSteps(true).Build(run)
	page := htmlPage{
		RunID:       run.RunID,
		Timestamp:   run.Started,
		Duration:    run.Elapsed,
		Stats:       run.Stats,
		Status:      types.StatusPassed,
		Verdict:     "PASS",
		FocusFailed: run.FocusFailed,
	}
	if !run.Passed() {
		page.Status = types.StatusFailed
		page.Verdict = "FAIL"
	}
	tree.Walk(func(n *types.ResultTreeNode) bool {
		if n.Type != types.NodeTypeRoot {
			page.Nodes = append(page.Nodes, n)
		}
		return true
	})

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("failed to render HTML results: %w", err)
	}
	path := filepath.Join(s.dir, HTMLFilename)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}
