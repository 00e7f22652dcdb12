package opspec

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-spec/flags"
	"github.com/ethereum-optimism/infra/op-spec/registry"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// DefaultProfileID is loaded from the profile file when --profile is not given
const DefaultProfileID = "default"

// Config holds the application configuration
type Config struct {
	LabelFilter    string        // label-filter expression
	NameFilters    []string      // --filter values and positional arguments
	Suites         []string      // suites to run; empty runs all registered suites
	IncludePending bool          // run pending cases
	FailOnFocus    bool          // fail the run if any focus marker is present
	List           bool          // list cases instead of running them
	Format         string        // report format
	NoColor        bool          // plain report output
	Details        bool          // include step logs in the report
	ShowSkipped    bool          // include filtered cases in the report
	Concurrency    int           // number of suites run at once
	DefaultTimeout time.Duration // timeout for cases without their own
	TimeoutGrace   time.Duration // wait for a timed out case before tearing down
	Progress       flags.ProgressMode
	LogDir         string // directory for per-run result files, empty disables them
	MetricsFile    string // prometheus textfile written after the run
	ServeAddr      string // healthz/metrics listen address, empty disables the server
	Profile        string // ID of the run profile that was applied
	Log            log.Logger
}

// NewConfig creates a new Config from cli context. Values from the run
// profile apply only to flags that were not set explicitly.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckProfileFlags(ctx); err != nil {
		return nil, types.NewConfigError(err.Error())
	}

	nameFilters := slices.Concat(ctx.StringSlice(flags.Filter.Name), ctx.Args().Slice())
	cfg := &Config{
		LabelFilter:    ctx.String(flags.LabelFilter.Name),
		NameFilters:    nameFilters,
		Suites:         ctx.StringSlice(flags.Suite.Name),
		IncludePending: ctx.Bool(flags.IncludePending.Name),
		FailOnFocus:    ctx.Bool(flags.FailOnFocus.Name),
		List:           ctx.Bool(flags.List.Name),
		Format:         strings.ToLower(ctx.String(flags.Format.Name)),
		NoColor:        ctx.Bool(flags.NoColor.Name),
		Details:        ctx.Bool(flags.Details.Name),
		ShowSkipped:    ctx.Bool(flags.ShowSkipped.Name),
		Concurrency:    ctx.Int(flags.Concurrency.Name),
		DefaultTimeout: ctx.Duration(flags.DefaultTimeout.Name),
		TimeoutGrace:   ctx.Duration(flags.TimeoutGrace.Name),
		Progress:       flags.ProgressMode(ctx.String(flags.Progress.Name)),
		MetricsFile:    ctx.String(flags.MetricsFile.Name),
		ServeAddr:      ctx.String(flags.ServeAddr.Name),
		Log:            log,
	}

	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		id := ctx.String(flags.Profile.Name)
		if id == "" {
			id = DefaultProfileID
		}
		profile, err := registry.LoadProfile(path, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load run profile: %w", err)
		}
		if err := cfg.applyProfile(ctx, profile); err != nil {
			return nil, err
		}
	}

	if logDir := ctx.String(flags.LogDir.Name); logDir != "" {
		abs, err := filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
		cfg.LogDir = abs
	}
	return cfg, nil
}

func (c *Config) applyProfile(ctx *cli.Context, p *types.RunProfile) error {
	c.Profile = p.ID
	if !ctx.IsSet(flags.LabelFilter.Name) && p.LabelFilter != "" {
		c.LabelFilter = p.LabelFilter
	}
	if !ctx.IsSet(flags.Filter.Name) && ctx.NArg() == 0 && len(p.Filters) > 0 {
		c.NameFilters = p.Filters
	}
	if !ctx.IsSet(flags.Suite.Name) && len(p.Suites) > 0 {
		c.Suites = p.Suites
	}
	if !ctx.IsSet(flags.IncludePending.Name) && p.IncludePending != nil {
		c.IncludePending = *p.IncludePending
	}
	if !ctx.IsSet(flags.FailOnFocus.Name) && p.FailOnFocus != nil {
		c.FailOnFocus = *p.FailOnFocus
	}
	if !ctx.IsSet(flags.Concurrency.Name) && p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if !ctx.IsSet(flags.Format.Name) && p.Format != "" {
		c.Format = strings.ToLower(p.Format)
	}
	if !ctx.IsSet(flags.DefaultTimeout.Name) && p.DefaultTimeout != "" {
		d, err := time.ParseDuration(p.DefaultTimeout)
		if err != nil {
			return types.NewConfigError(fmt.Sprintf("profile %q: invalid default_timeout %q: %v", p.ID, p.DefaultTimeout, err))
		}
		c.DefaultTimeout = d
	}
	return nil
}
