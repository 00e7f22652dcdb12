package runner

import (
	"time"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

var _ ResultCollector = (*resultCollector)(nil)

// ResultCollector aggregates case results into suite and run results
type ResultCollector interface {
	// NewSuiteResult starts the result of one suite
	NewSuiteResult(suite *types.Suite, hasFocus bool, selected int) *types.SuiteResult
	// AddCaseResult appends a case result and updates the suite's counts
	AddCaseResult(suite *types.SuiteResult, result *types.CaseResult)
	// FinalizeSuite records the suite's elapsed time
	FinalizeSuite(suite *types.SuiteResult, elapsed time.Duration)

	// NewRunResult starts the result of one invocation
	NewRunResult(runID string) *types.RunResult
	// FinalizeRun appends suite results in registration order and merges their counts
	FinalizeRun(run *types.RunResult, suites []*types.SuiteResult, elapsed time.Duration)
}

type resultCollector struct{}

// NewResultCollector creates a new result collector
func NewResultCollector() ResultCollector {
	return &resultCollector{}
}

func (c *resultCollector) NewSuiteResult(suite *types.Suite, hasFocus bool, selected int) *types.SuiteResult {
	return &types.SuiteResult{
		Name:     suite.Name,
		Location: suite.Location,
		HasFocus: hasFocus,
		Selected: selected,
	}
}

func (c *resultCollector) AddCaseResult(suite *types.SuiteResult, result *types.CaseResult) {
	if suite == nil {
		panic("suite result cannot be nil")
	}
	if result == nil {
		panic("case result cannot be nil")
	}
	suite.Results = append(suite.Results, result)
	suite.Stats.Add(result.Status)
}

func (c *resultCollector) FinalizeSuite(suite *types.SuiteResult, elapsed time.Duration) {
	suite.Elapsed = elapsed
}

func (c *resultCollector) NewRunResult(runID string) *types.RunResult {
	return &types.RunResult{
		RunID:   runID,
		Started: time.Now(),
	}
}

func (c *resultCollector) FinalizeRun(run *types.RunResult, suites []*types.SuiteResult, elapsed time.Duration) {
	for _, s := range suites {
		if s == nil {
			continue
		}
		run.Suites = append(run.Suites, s)
		run.Stats.Merge(s.Stats)
	}
	run.Elapsed = elapsed
}
