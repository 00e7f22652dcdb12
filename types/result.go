package types

import (
	"time"
)

// AfterAllResultName names the synthetic result recorded for a failing after_all hook
const AfterAllResultName = "[after_all]"

// ScopeRef identifies one ancestor scope of a result
type ScopeRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StepResult is the outcome of one step of an ordered workflow
type StepResult struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Failure *Failure      `json:"failure,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// CaseResult is the immutable outcome of one case
type CaseResult struct {
	Name     string     `json:"name"`
	Path     []string   `json:"path"`
	Scopes   []ScopeRef `json:"scopes,omitempty"`
	Labels   []string   `json:"labels,omitempty"`
	Location Location   `json:"location"`

	Status  Status   `json:"status"`
	Failure *Failure `json:"failure,omitempty"`
	// Reason explains a Skipped or Pending status.
	Reason string `json:"reason,omitempty"`

	Elapsed  time.Duration `json:"elapsed"`
	Attempts int           `json:"attempts"`
	// Consecutive and Required are set for cases that must pass repeatedly.
	Consecutive int  `json:"consecutive,omitempty"`
	Required    int  `json:"required,omitempty"`
	TimedOut    bool `json:"timed_out,omitempty"`

	Steps []StepResult `json:"steps,omitempty"`
	ByLog []string     `json:"by,omitempty"`
	// Synthetic is set for results that do not correspond to a declared case.
	Synthetic bool `json:"synthetic,omitempty"`
}

// FullPath returns the display path of the result
func (r *CaseResult) FullPath() string {
	return JoinPath(r.Path)
}

// Message returns the failure message, or the skip/pending reason
func (r *CaseResult) Message() string {
	if r.Failure != nil {
		return r.Failure.Error()
	}
	return r.Reason
}

// ResultStats counts case outcomes
type ResultStats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
	Skipped int `json:"skipped"`
}

// Add counts one result
func (s *ResultStats) Add(status Status) {
	s.Total++
	switch status {
	case StatusPassed:
		s.Passed++
	case StatusFailed:
		s.Failed++
	case StatusPending:
		s.Pending++
	case StatusSkipped:
		s.Skipped++
	}
}

// Merge adds another set of counts
func (s *ResultStats) Merge(o ResultStats) {
	s.Total += o.Total
	s.Passed += o.Passed
	s.Failed += o.Failed
	s.Pending += o.Pending
	s.Skipped += o.Skipped
}

// PassRate returns the share of executed cases that passed, as a percentage
func (s ResultStats) PassRate() float64 {
	executed := s.Passed + s.Failed
	if executed == 0 {
		return 0
	}
	return float64(s.Passed) / float64(executed) * 100
}

// SuiteResult is the ordered outcome of one suite
type SuiteResult struct {
	Name     string        `json:"name"`
	Location Location      `json:"location"`
	Results  []*CaseResult `json:"results"`
	Stats    ResultStats   `json:"stats"`
	Elapsed  time.Duration `json:"elapsed"`
	HasFocus bool          `json:"has_focus,omitempty"`
	// Selected counts cases chosen by the filter engine.
	Selected int `json:"selected"`
}

// Passed reports whether no case in the suite failed
func (s *SuiteResult) Passed() bool {
	return s.Stats.Failed == 0
}

// Failures returns the failed results in order
func (s *SuiteResult) Failures() []*CaseResult {
	var failed []*CaseResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunResult merges the results of every suite of one invocation
type RunResult struct {
	RunID    string         `json:"run_id"`
	Suites   []*SuiteResult `json:"suites"`
	Stats    ResultStats    `json:"stats"`
	Elapsed  time.Duration  `json:"elapsed"`
	Started  time.Time      `json:"started"`
	HasFocus bool           `json:"has_focus,omitempty"`
	// FocusFailed is set when focus markers are present and fail-on-focus is enabled.
	FocusFailed bool `json:"focus_failed,omitempty"`
}

// Passed reports whether the invocation should exit successfully
func (r *RunResult) Passed() bool {
	return r.Stats.Failed == 0 && !r.FocusFailed
}

// Failures returns the failed results of every suite in registration order
func (r *RunResult) Failures() []*CaseResult {
	var failed []*CaseResult
	for _, s := range r.Suites {
		failed = append(failed, s.Failures()...)
	}
	return failed
}
