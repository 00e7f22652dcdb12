package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// stepRecorder collects step results of an ordered case. It is shared between the
// goroutine running the steps and the executor, which may read it after a timeout.
type stepRecorder struct {
	mu      sync.Mutex
	steps   []types.Step
	results []types.StepResult
	running int
}

func newStepRecorder(tc *types.Case) *stepRecorder {
	return &stepRecorder{steps: tc.Steps, running: -1}
}

func (r *stepRecorder) start(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = i
}

func (r *stepRecorder) record(res types.StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	r.running = -1
}

// snapshot returns one result per declared step. A step still running is
// reported with the interrupting failure; steps never started are Skipped.
func (r *stepRecorder) snapshot(interrupted *types.Failure, reason string) []types.StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.steps) == 0 {
		return nil
	}
	out := make([]types.StepResult, 0, len(r.steps))
	out = append(out, r.results...)
	for i := len(out); i < len(r.steps); i++ {
		res := types.StepResult{Name: r.steps[i].Name, Status: types.StatusSkipped, Reason: reason}
		if i == r.running && interrupted != nil {
			res.Status = types.StatusFailed
			res.Failure = interrupted
			res.Reason = ""
		}
		out = append(out, res)
	}
	return out
}

// runSteps runs the steps of an ordered case in declaration order. Without
// ContinueOnFailure the first failing step ends the sequence. A skipped step
// does not affect the others.
func runSteps(t types.T, tc *types.Case, rec *stepRecorder) outcome {
	var first *types.Failure
	for i, step := range tc.Steps {
		if first != nil && !tc.ContinueOnFailure {
			break
		}
		rec.start(i)
		started := time.Now()
		out := invoke(func() error { return step.Fn(t) })
		res := types.StepResult{Name: step.Name, Elapsed: time.Since(started)}
		switch {
		case out.failure != nil:
			if out.failure.Location.IsZero() {
				out.failure.Location = step.Location
			}
			res.Status = types.StatusFailed
			res.Failure = out.failure
			if first == nil {
				cp := *out.failure
				cp.Message = fmt.Sprintf("step %q: %s", step.Name, cp.Message)
				first = &cp
			}
		case out.skipped:
			res.Status = types.StatusSkipped
			res.Reason = out.reason
		default:
			res.Status = types.StatusPassed
		}
		rec.record(res)
	}
	if first != nil {
		return outcome{failure: first}
	}
	return outcome{}
}

// allStepsSkipped reports whether an ordered case ran without any step passing or failing
func allStepsSkipped(steps []types.StepResult) bool {
	if len(steps) == 0 {
		return false
	}
	for _, s := range steps {
		if s.Status != types.StatusSkipped {
			return false
		}
	}
	return true
}
