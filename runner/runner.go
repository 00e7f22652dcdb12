package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-spec/filter"
	"github.com/ethereum-optimism/infra/op-spec/metrics"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// TestRunner runs or lists a set of independently built suites
type TestRunner interface {
	// RunAll executes every suite and merges their results in registration order.
	RunAll(ctx context.Context) (*types.RunResult, error)
	// List enumerates cases without running any hook or body.
	List() []ListedCase
}

// ListedCase is one entry of listing mode
type ListedCase struct {
	Suite   string
	Path    string
	Labels  []string
	Pending bool
	Focused bool
}

// Config holds configuration for creating a new runner
type Config struct {
	Suites []*types.Suite
	Log    log.Logger

	LabelFilter    string   // label-filter expression
	NameFilters    []string // substrings or globs matched against case paths
	IncludePending bool     // run pending cases as if they were not pending
	FailOnFocus    bool     // fail the run when any focus marker is present

	Concurrency    int           // number of suites run at once; 0 or 1 runs them in order
	DefaultTimeout time.Duration // applied to cases without their own timeout
	TimeoutGrace   time.Duration // wait for a timed out case before tearing down

	Progress ProgressIndicator
	RunID    string
}

type runner struct {
	suites    []*types.Suite
	log       log.Logger
	filterCfg filter.Config
	runID     string

	failOnFocus bool
	concurrency int
	executor    *caseExecutor
	progress    ProgressIndicator
	collector   ResultCollector
	tracer      trace.Tracer
}

// NewTestRunner validates cfg and creates a runner. Malformed filters are
// reported as *types.ConfigError.
func NewTestRunner(cfg Config) (TestRunner, error) {
	if len(cfg.Suites) == 0 {
		return nil, fmt.Errorf("no suites to run")
	}
	for i, s := range cfg.Suites {
		if s == nil || s.Root == nil {
			return nil, fmt.Errorf("suite %d is not built", i)
		}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Concurrency < 0 {
		return nil, types.NewConfigError(fmt.Sprintf("concurrency must not be negative, got %d", cfg.Concurrency))
	}
	if cfg.Concurrency > MaxReasonableConcurrency {
		cfg.Log.Warn("Capping concurrency", "requested", cfg.Concurrency, "max", MaxReasonableConcurrency)
		cfg.Concurrency = MaxReasonableConcurrency
	}
	if cfg.DefaultTimeout < 0 {
		return nil, types.NewConfigError(fmt.Sprintf("default timeout must not be negative, got %s", cfg.DefaultTimeout))
	}
	if cfg.TimeoutGrace <= 0 {
		cfg.TimeoutGrace = DefaultTimeoutGrace
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}

	labels, err := filter.ParseLabelFilter(cfg.LabelFilter)
	if err != nil {
		return nil, err
	}
	names := filter.NewNameFilter(cfg.NameFilters...)
	if err := names.Validate(); err != nil {
		return nil, err
	}

	cfg.Log.Debug("NewTestRunner()", "suites", len(cfg.Suites), "labelFilter", labels.String(),
		"nameFilters", names.Patterns(), "includePending", cfg.IncludePending,
		"failOnFocus", cfg.FailOnFocus, "concurrency", cfg.Concurrency)

	tracer := otel.Tracer(tracerName)
	return &runner{
		suites: cfg.Suites,
		log:    cfg.Log,
		filterCfg: filter.Config{
			Labels:         labels,
			Names:          names,
			IncludePending: cfg.IncludePending,
			FocusMode:      filter.AnyFocus(cfg.Suites),
		},
		runID:       cfg.RunID,
		failOnFocus: cfg.FailOnFocus,
		concurrency: cfg.Concurrency,
		executor: &caseExecutor{
			log:            cfg.Log,
			tracer:         tracer,
			defaultTimeout: cfg.DefaultTimeout,
			grace:          cfg.TimeoutGrace,
		},
		progress:  cfg.Progress,
		collector: NewResultCollector(),
		tracer:    tracer,
	}, nil
}

// RunAll implements the TestRunner interface
func (r *runner) RunAll(ctx context.Context) (*types.RunResult, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", runID))
	defer span.End()

	start := time.Now()
	plans := make([]*filter.Plan, len(r.suites))
	selected := 0
	for i, suite := range r.suites {
		plans[i] = filter.NewPlan(suite, r.filterCfg)
		selected += plans[i].Selected
	}
	r.log.Debug("Running all suites", "run_id", runID, "selected", selected, "focusMode", r.filterCfg.FocusMode)
	if r.filterCfg.FocusMode && selected == 0 {
		return nil, filter.ErrNoFocusedCases
	}

	run := r.collector.NewRunResult(runID)
	run.HasFocus = r.filterCfg.FocusMode

	r.progress.StartRun(selected)
	results := make([]*types.SuiteResult, len(plans))
	if r.concurrency > 1 && len(plans) > 1 {
		p := pool.New().WithMaxGoroutines(r.concurrency)
		for i, plan := range plans {
			p.Go(func() {
				results[i] = r.runSuite(ctx, plan)
			})
		}
		p.Wait()
	} else {
		for i, plan := range plans {
			results[i] = r.runSuite(ctx, plan)
		}
	}
	r.progress.CompleteRun()

	r.collector.FinalizeRun(run, results, time.Since(start))
	if r.failOnFocus && run.HasFocus {
		run.FocusFailed = true
		r.log.Warn("Focus markers present and fail-on-focus is enabled")
	}
	metrics.RecordRun(runID, run.Passed(), run.Stats, run.Elapsed)
	return run, nil
}

func (r *runner) runSuite(ctx context.Context, plan *filter.Plan) *types.SuiteResult {
	sr := &suiteRunner{
		log:       r.log.New("suite", plan.Suite.Name),
		tracer:    r.tracer,
		executor:  r.executor,
		plan:      plan,
		progress:  r.progress,
		collector: r.collector,
		result:    r.collector.NewSuiteResult(plan.Suite, plan.Suite.HasFocus(), plan.Selected),
	}
	return sr.run(ctx)
}

// List implements the TestRunner interface. Only the name filter applies;
// pending, unfocused and label-excluded cases are all listed.
func (r *runner) List() []ListedCase {
	var listed []ListedCase
	for _, suite := range r.suites {
		for _, tc := range suite.Cases() {
			if !r.filterCfg.Names.Match(tc.Path()) {
				continue
			}
			listed = append(listed, ListedCase{
				Suite:   suite.Name,
				Path:    tc.FullPath(),
				Labels:  tc.EffectiveLabels(),
				Pending: tc.IsPending(),
				Focused: tc.IsFocused(),
			})
		}
	}
	return listed
}
