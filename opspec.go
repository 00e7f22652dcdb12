package opspec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-spec/flags"
	"github.com/ethereum-optimism/infra/op-spec/logging"
	"github.com/ethereum-optimism/infra/op-spec/metrics"
	"github.com/ethereum-optimism/infra/op-spec/registry"
	"github.com/ethereum-optimism/infra/op-spec/reporting"
	"github.com/ethereum-optimism/infra/op-spec/runner"
	"github.com/ethereum-optimism/infra/op-spec/service"
	"github.com/ethereum-optimism/infra/op-spec/types"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

var _ cliapp.Lifecycle = &opSpec{}

// opSpec runs or lists the registered suites once and reports the outcome.
type opSpec struct {
	config    *Config
	version   string
	runID     string
	runner    runner.TestRunner
	formatter reporting.Formatter
	service   *service.Service
	out       io.Writer
	result    *types.RunResult

	running atomic.Bool

	shutdownCallback func(error)
}

// New selects the configured suites from reg and prepares a runner for them.
// Reports are written to out.
func New(cfg *Config, reg *registry.Registry, version string, out io.Writer, shutdownCallback func(error)) (*opSpec, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if out == nil {
		out = os.Stdout
	}

	suites, err := reg.Select(cfg.Suites)
	if err != nil {
		return nil, fmt.Errorf("failed to select suites: %w", err)
	}
	formatter, err := reporting.NewFormatter(cfg.Format, reporting.Options{
		NoColor:     cfg.NoColor,
		ShowSkipped: cfg.ShowSkipped,
		Details:     cfg.Details,
	})
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	testRunner, err := runner.NewTestRunner(runner.Config{
		Suites:         suites,
		Log:            cfg.Log,
		LabelFilter:    cfg.LabelFilter,
		NameFilters:    cfg.NameFilters,
		IncludePending: cfg.IncludePending,
		FailOnFocus:    cfg.FailOnFocus,
		Concurrency:    cfg.Concurrency,
		DefaultTimeout: cfg.DefaultTimeout,
		TimeoutGrace:   cfg.TimeoutGrace,
		Progress:       newProgressIndicator(cfg),
		RunID:          runID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	cfg.Log.Debug("Created op-spec", "suites", len(suites), "runID", runID, "profile", cfg.Profile)

	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}
	return &opSpec{
		config:           cfg,
		version:          version,
		runID:            runID,
		runner:           testRunner,
		formatter:        formatter,
		out:              out,
		shutdownCallback: shutdownCallback,
	}, nil
}

func newProgressIndicator(cfg *Config) runner.ProgressIndicator {
	if cfg.List {
		return runner.NewNoOpProgressIndicator()
	}
	switch cfg.Progress {
	case flags.ProgressLog:
		return runner.NewLogProgressIndicator(cfg.Log, runner.DefaultProgressInterval)
	case flags.ProgressBar:
		return runner.NewBarProgressIndicator(os.Stderr)
	default:
		return runner.NewNoOpProgressIndicator()
	}
}

// Start runs the selected suites once, prints the report and writes the
// configured artifacts. A failed run returns a *TestFailureError; anything
// that prevents a verdict returns a *RuntimeError.
// Start implements the cliapp.Lifecycle interface.
func (o *opSpec) Start(ctx context.Context) error {
	o.running.Store(true)
	o.config.Log.Info("Starting op-spec", "version", o.version, "runID", o.runID)

	if o.config.ServeAddr != "" {
		o.service = service.New(o.config.Log)
		if err := o.service.Start(ctx, o.config.ServeAddr); err != nil {
			return NewRuntimeError(fmt.Errorf("failed to start service: %w", err))
		}
	}

	if o.config.List {
		if _, err := fmt.Fprint(o.out, reporting.FormatList(o.runner.List())); err != nil {
			return NewRuntimeError(fmt.Errorf("failed to write case list: %w", err))
		}
		o.shutdown()
		return nil
	}

	result, err := o.runner.RunAll(ctx)
	if err != nil {
		o.config.Log.Error("Runtime error running suites", "error", err)
		return NewRuntimeError(err)
	}
	o.result = result

	report, err := o.formatter.Format(result)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to format results: %w", err))
	}
	if _, err := fmt.Fprint(o.out, report); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to write results: %w", err))
	}
	if err := o.writeArtifacts(result); err != nil {
		return NewRuntimeError(err)
	}

	o.config.Log.Info("Run completed", "runID", result.RunID, "passed", result.Passed(),
		"failed", result.Stats.Failed, "duration", result.Elapsed.Round(time.Millisecond))
	if !result.Passed() {
		o.config.Log.Warn("Run completed with failures, returning exit code 1")
		return NewTestFailureError(result.Stats.Failed, result.FocusFailed)
	}
	o.shutdown()
	return nil
}

func (o *opSpec) writeArtifacts(result *types.RunResult) error {
	var errs []error
	if o.config.LogDir != "" {
		fileLogger, err := logging.NewFileLogger(o.config.LogDir, result.RunID)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create file logger: %w", err))
		} else if err := fileLogger.WriteRun(result); err != nil {
			errs = append(errs, fmt.Errorf("failed to write run results: %w", err))
		} else {
			o.config.Log.Info("Wrote run results", "dir", fileLogger.LogDir())
		}
	}
	if o.config.MetricsFile != "" {
		if err := metrics.WriteTextfile(o.config.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// shutdown asks the app to exit once Start has returned
func (o *opSpec) shutdown() {
	go o.shutdownCallback(nil)
}

// Stop stops the metrics service, if any.
// Stop implements the cliapp.Lifecycle interface.
func (o *opSpec) Stop(ctx context.Context) error {
	if !o.running.Load() {
		return nil
	}
	o.running.Store(false)
	if o.service != nil {
		if err := o.service.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
	}
	o.config.Log.Debug("op-spec stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (o *opSpec) Stopped() bool {
	return !o.running.Load()
}

// Result returns the outcome of the last run, nil before a run completed
func (o *opSpec) Result() *types.RunResult {
	return o.result
}
