package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// attemptResult is the outcome of one attempt of a case
type attemptResult struct {
	outcome
	timedOut bool
	steps    []types.StepResult
	byLog    []string
}

// caseExecutor runs a single selected case, applying its retry,
// must-pass-repeatedly and timeout policies.
//
// Timeouts are cooperative: when a case overruns, the context handed to its
// actions is cancelled and the executor waits up to grace for them to return.
// It then drains cleanups and runs after_each hooks whether or not the body
// has stopped. A body that ignores its context keeps running in the background,
// and any cleanup it registers after the drain is never run.
type caseExecutor struct {
	log            log.Logger
	tracer         trace.Tracer
	defaultTimeout time.Duration
	grace          time.Duration
}

func (x *caseExecutor) timeoutFor(tc *types.Case) time.Duration {
	if tc.Timeout > 0 {
		return tc.Timeout
	}
	return x.defaultTimeout
}

// execute runs tc and fills in the outcome fields of result
func (x *caseExecutor) execute(ctx context.Context, tc *types.Case, result *types.CaseResult) {
	ctx, span := x.tracer.Start(ctx, fmt.Sprintf("case %s", tc.FullPath()))
	defer span.End()

	start := time.Now()
	if tc.MustPassRepeatedly > 0 {
		x.runRepeatedly(ctx, tc, result)
	} else {
		x.runWithRetries(ctx, tc, result)
	}
	result.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("attempts", result.Attempts),
	)
	if result.Status == types.StatusFailed {
		span.SetStatus(codes.Error, result.Message())
	}
}

// runWithRetries makes up to Retries+1 attempts; the first pass wins
func (x *caseExecutor) runWithRetries(ctx context.Context, tc *types.Case, result *types.CaseResult) {
	maxAttempts := tc.Retries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		applyAttempt(result, x.runAttempt(ctx, tc, attempt), attempt)
		if result.Status != types.StatusFailed || attempt == maxAttempts {
			return
		}
		if ctx.Err() != nil {
			return
		}
		x.log.Warn("Attempt failed, retrying", "case", tc.FullPath(),
			"attempt", attempt, "maxAttempts", maxAttempts, "err", result.Failure)
	}
}

// runRepeatedly requires MustPassRepeatedly consecutive passes. The first
// attempt that does not pass ends the case.
func (x *caseExecutor) runRepeatedly(ctx context.Context, tc *types.Case, result *types.CaseResult) {
	required := tc.MustPassRepeatedly
	result.Required = required
	for attempt := 1; attempt <= required; attempt++ {
		applyAttempt(result, x.runAttempt(ctx, tc, attempt), attempt)
		if result.Status != types.StatusPassed {
			if result.Status == types.StatusFailed {
				x.log.Warn("Case failed before passing repeatedly", "case", tc.FullPath(),
					"attempt", attempt, "required", required, "consecutive", result.Consecutive, "err", result.Failure)
			}
			return
		}
		result.Consecutive++
	}
}

func applyAttempt(result *types.CaseResult, a attemptResult, attempt int) {
	result.Attempts = attempt
	result.Steps = a.steps
	result.ByLog = a.byLog
	result.TimedOut = a.timedOut
	result.Failure = nil
	result.Reason = ""
	switch {
	case a.failure != nil:
		result.Status = types.StatusFailed
		result.Failure = a.failure
	case a.skipped:
		result.Status = types.StatusSkipped
		result.Reason = a.reason
	case allStepsSkipped(a.steps):
		result.Status = types.StatusSkipped
		result.Reason = "all steps skipped"
	default:
		result.Status = types.StatusPassed
	}
}

// runAttempt runs one full before_each to after_each sequence with fresh state
func (x *caseExecutor) runAttempt(ctx context.Context, tc *types.Case, attempt int) attemptResult {
	timeout := x.timeoutFor(tc)
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	name := tc.FullPath()
	exec := newExecution(runCtx, x.log.New("case", name, "attempt", attempt), name, attempt)
	chain := newHookChain(tc)
	steps := newStepRecorder(tc)

	var (
		out      outcome
		timedOut bool
	)
	if timeout <= 0 {
		out = x.runMain(exec, tc, chain, steps)
	} else {
		done := make(chan outcome, 1)
		go func() {
			done <- x.runMain(exec, tc, chain, steps)
		}()
		out, timedOut = x.await(ctx, runCtx, cancel, done, timeout)
	}

	var interrupted *types.Failure
	if timedOut {
		interrupted = out.failure
	}
	stepResults := steps.snapshot(interrupted, "not run")

	teardown := exec.withContext(ctx)
	if f := teardown.drainCleanups(); f != nil && out.failure == nil {
		out = outcome{failure: f}
	}
	if after := chain.runAfterEach(teardown); after.failure != nil && out.failure == nil {
		out = after
	}
	if out.failure != nil && out.failure.Location.IsZero() {
		out.failure.Location = tc.Location
	}

	return attemptResult{
		outcome:  out,
		timedOut: timedOut,
		steps:    stepResults,
		byLog:    exec.stepLog(),
	}
}

// await waits for the main sequence of an attempt that has a timeout
func (x *caseExecutor) await(parent, runCtx context.Context, cancel context.CancelFunc, done <-chan outcome, timeout time.Duration) (outcome, bool) {
	select {
	case out := <-done:
		return out, false
	case <-runCtx.Done():
	}

	cancel()
	grace := time.NewTimer(x.grace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		x.log.Warn("Case did not return after timeout", "timeout", timeout, "grace", x.grace)
	}

	if err := parent.Err(); err != nil {
		return outcome{failure: &types.Failure{
			Kind:    types.FailureAssertion,
			Message: fmt.Sprintf("interrupted: %v", err),
		}}, false
	}
	return outcome{failure: &types.Failure{Kind: types.FailureTimeout, Timeout: timeout}}, true
}

// runMain runs the part of an attempt bounded by the timeout: the hook chain,
// subject resolution and the body or steps.
func (x *caseExecutor) runMain(exec *execution, tc *types.Case, chain *hookChain, steps *stepRecorder) outcome {
	if out := chain.runBeforeEach(exec); !out.ok() {
		return out
	}
	if out := chain.runJustBeforeEach(exec); !out.ok() {
		return out
	}
	if provider := tc.SubjectProvider(); provider != nil {
		var subject any
		out := invoke(func() (err error) {
			subject, err = provider(exec)
			return err
		})
		if !out.ok() {
			if out.failure != nil {
				out.failure.Message = "subject: " + out.failure.Message
			}
			return out
		}
		exec.setSubject(subject)
	}
	if tc.Ordered {
		return runSteps(exec, tc, steps)
	}
	if tc.Body == nil {
		return outcome{}
	}
	return invoke(func() error { return tc.Body(exec) })
}
