package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-spec/filter"
	"github.com/ethereum-optimism/infra/op-spec/metrics"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

const reasonInterrupted = "run interrupted"

// suiteRunner walks one suite's tree in insertion order, running selected cases
// sequentially. before_all runs lazily before the first selected case beneath a
// scope and after_all runs once the scope's children are done, only if
// before_all succeeded.
type suiteRunner struct {
	log       log.Logger
	tracer    trace.Tracer
	executor  *caseExecutor
	plan      *filter.Plan
	progress  ProgressIndicator
	collector ResultCollector
	result    *types.SuiteResult
}

// scopeRun tracks the once-per-scope hooks of one scope during the walk
type scopeRun struct {
	scope   *types.Scope
	exec    *execution
	started bool
	failure *types.Failure
	skipped bool
	reason  string
}

func (s *suiteRunner) run(ctx context.Context) *types.SuiteResult {
	suite := s.plan.Suite
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("suite %s", suite.Name))
	defer span.End()

	start := time.Now()
	s.progress.StartSuite(suite.Name, s.plan.Selected)
	s.log.Info("Running suite", "suite", suite.Name, "selected", s.plan.Selected)

	s.walk(ctx, suite.Root, nil)

	s.collector.FinalizeSuite(s.result, time.Since(start))
	s.progress.CompleteSuite(suite.Name)
	span.SetAttributes(
		attribute.Int("passed", s.result.Stats.Passed),
		attribute.Int("failed", s.result.Stats.Failed),
	)
	return s.result
}

func (s *suiteRunner) walk(ctx context.Context, scope *types.Scope, refs []types.ScopeRef) {
	if !scope.IsRoot() {
		refs = append(append([]types.ScopeRef(nil), refs...), types.ScopeRef{ID: scope.ID, Name: scope.Name})
	}
	sr := &scopeRun{scope: scope}

	for _, child := range scope.Children {
		switch n := child.(type) {
		case *types.Scope:
			if s.plan.SelectedIn(n) == 0 {
				s.walk(ctx, n, refs)
				continue
			}
			s.ensureBeforeAll(ctx, sr)
			if sr.failure != nil || sr.skipped {
				s.abandon(ctx, n, refs, sr)
				continue
			}
			s.walk(ctx, n, refs)
		case *types.Case:
			s.runCase(ctx, n, refs, sr)
		}
	}

	s.finishScope(ctx, sr, refs)
}

func (s *suiteRunner) runCase(ctx context.Context, tc *types.Case, refs []types.ScopeRef, sr *scopeRun) {
	result := newCaseResult(tc, refs)
	decision := s.plan.Decision(tc)
	if !decision.Selected {
		result.Status = decision.Status
		result.Reason = decision.Reason
		s.record(result)
		return
	}

	name := result.FullPath()
	s.progress.StartCase(name)
	defer func() {
		s.progress.UpdateCase(name, result.Status)
	}()

	if ctx.Err() != nil {
		result.Status = types.StatusSkipped
		result.Reason = reasonInterrupted
		s.record(result)
		return
	}

	s.ensureBeforeAll(ctx, sr)
	switch {
	case sr.failure != nil:
		result.Status = types.StatusFailed
		result.Failure = sr.failure
	case sr.skipped:
		result.Status = types.StatusSkipped
		result.Reason = sr.reason
	default:
		s.log.Debug("Running case", "case", result.FullPath())
		s.executor.execute(ctx, tc, result)
	}
	s.record(result)
}

// abandon records every case beneath scope after an ancestor's before_all did not succeed
func (s *suiteRunner) abandon(ctx context.Context, scope *types.Scope, refs []types.ScopeRef, sr *scopeRun) {
	refs = append(append([]types.ScopeRef(nil), refs...), types.ScopeRef{ID: scope.ID, Name: scope.Name})
	for _, child := range scope.Children {
		switch n := child.(type) {
		case *types.Scope:
			s.abandon(ctx, n, refs, sr)
		case *types.Case:
			s.runCase(ctx, n, refs, sr)
		}
	}
}

// ensureBeforeAll runs the scope's before_all hooks the first time it is called
func (s *suiteRunner) ensureBeforeAll(ctx context.Context, sr *scopeRun) {
	if sr.started {
		return
	}
	sr.started = true
	hooks := sr.scope.Hooks.BeforeAll
	name := types.JoinPath(sr.scope.Path())
	sr.exec = newExecution(ctx, s.log.New("scope", name), name, 1)
	for _, hook := range hooks {
		out := runHook(hook, sr.exec)
		if out.failure != nil {
			sr.failure = out.failure
			s.log.Warn("before_all hook failed", "scope", name, "err", out.failure)
			metrics.RecordError("before_all")
			return
		}
		if out.skipped {
			sr.skipped = true
			sr.reason = out.reason
			return
		}
	}
}

// finishScope runs after_all when before_all ran and succeeded, then drains
// cleanups registered by the once-per-scope hooks.
func (s *suiteRunner) finishScope(ctx context.Context, sr *scopeRun, refs []types.ScopeRef) {
	if !sr.started {
		return
	}
	teardown := sr.exec.withContext(context.WithoutCancel(ctx))
	var failure *types.Failure
	var loc types.Location
	if sr.failure == nil && !sr.skipped {
		for _, hook := range sr.scope.Hooks.AfterAll {
			out := runHook(hook, teardown)
			if out.failure != nil && failure == nil {
				failure = out.failure
				loc = hook.Location
			}
		}
	}
	if f := teardown.drainCleanups(); f != nil && failure == nil {
		failure = f
		loc = sr.scope.Location
	}
	if failure == nil {
		return
	}

	name := types.JoinPath(sr.scope.Path())
	s.log.Warn("after_all hook failed", "scope", name, "err", failure)
	metrics.RecordError("after_all")
	if failure.Location.IsZero() {
		failure.Location = loc
	}
	s.record(&types.CaseResult{
		Name:      types.AfterAllResultName,
		Path:      append(sr.scope.Path(), types.AfterAllResultName),
		Scopes:    refs,
		Location:  failure.Location,
		Status:    types.StatusFailed,
		Failure:   failure,
		Synthetic: true,
	})
}

func (s *suiteRunner) record(result *types.CaseResult) {
	s.collector.AddCaseResult(s.result, result)
	metrics.RecordCase(s.result.Name, result.Status, result.Attempts, result.Elapsed)
}

func newCaseResult(tc *types.Case, refs []types.ScopeRef) *types.CaseResult {
	return &types.CaseResult{
		Name:     tc.Name,
		Path:     tc.Path(),
		Scopes:   refs,
		Labels:   tc.EffectiveLabels(),
		Location: tc.Location,
	}
}
