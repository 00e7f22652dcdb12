package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-spec/reporting"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// TextSummarySink writes the tree report, without colour, to summary.log
type TextSummarySink struct {
	dir       string
	formatter *reporting.TreeTextFormatter
}

// NewTextSummarySink creates a summary sink writing into dir
func NewTextSummarySink(dir string) *TextSummarySink {
	return &TextSummarySink{
		dir:       dir,
		formatter: reporting.NewTreeTextFormatter(reporting.Options{NoColor: true, ShowSkipped: true, Details: true}),
	}
}

// Consume is a no-op; the summary is rendered from the complete run
func (s *TextSummarySink) Consume(string, *types.CaseResult) error { return nil }

// Complete renders and writes the summary
func (s *TextSummarySink) Complete(run *types.RunResult) error {
	content, err := s.formatter.Format(run)
	if err != nil {
		return fmt.Errorf("failed to format text summary: %w", err)
	}
	header := fmt.Sprintf("Run ID: %s\nStarted: %s\n", run.RunID, run.Started.Format("2006-01-02T15:04:05Z07:00"))
	path := filepath.Join(s.dir, SummaryFilename)
	if err := os.WriteFile(path, []byte(header+stripansi.Strip(content)), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// JSONResultsSink writes the JSON report to results.json
type JSONResultsSink struct {
	dir       string
	formatter *reporting.JSONFormatter
}

// NewJSONResultsSink creates a results sink writing into dir
func NewJSONResultsSink(dir string) *JSONResultsSink {
	return &JSONResultsSink{
		dir:       dir,
		formatter: reporting.NewJSONFormatter(reporting.Options{ShowSkipped: true}),
	}
}

// Consume is a no-op; the document is rendered from the complete run
func (s *JSONResultsSink) Consume(string, *types.CaseResult) error { return nil }

// Complete renders and writes results.json
func (s *JSONResultsSink) Complete(run *types.RunResult) error {
	content, err := s.formatter.Format(run)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, ResultsFilename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
