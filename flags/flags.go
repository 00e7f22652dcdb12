package flags

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-spec/reporting"
	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_SPEC"

// ProgressMode selects how progress is reported while suites run
type ProgressMode string

const (
	ProgressNone ProgressMode = "none"
	ProgressLog  ProgressMode = "log"
	ProgressBar  ProgressMode = "bar"
)

func (p ProgressMode) String() string {
	return string(p)
}

func (p ProgressMode) IsValid() bool {
	return slices.Contains(ValidProgressModes(), p)
}

func ValidProgressModes() []ProgressMode {
	return []ProgressMode{ProgressNone, ProgressLog, ProgressBar}
}

var (
	LabelFilter = &cli.StringFlag{
		Name:    "label-filter",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LABEL_FILTER"),
		Usage:   "Label filter expression (eg. 'fast+!flaky' or 'integration,e2e')",
	}
	FailOnFocus = &cli.BoolFlag{
		Name:    "fail-on-focus",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_FOCUS"),
		Usage:   "Fail the run when any suite contains a focus marker, even if all selected cases pass",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST"),
		Usage:   "List cases instead of running them",
	}
	IncludePending = &cli.BoolFlag{
		Name:    "include-pending",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INCLUDE_PENDING"),
		Usage:   "Run pending cases as if they were not pending",
	}
	Filter = &cli.StringSliceFlag{
		Name:    "filter",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FILTER"),
		Usage:   "Only run cases whose path contains this text or matches this glob. Can be repeated; positional arguments are filters too",
	}
	Suite = &cli.StringSliceFlag{
		Name:    "suite",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITE"),
		Usage:   "Only run the named suite. Can be repeated",
	}
	NoColor = &cli.BoolFlag{
		Name:    "no-color",
		Value:   false,
		EnvVars: append(opservice.PrefixEnvVar(EnvVarPrefix, "NO_COLOR"), "NO_COLOR"),
		Usage:   "Disable coloured output",
	}
	Format = &cli.StringFlag{
		Name:    "format",
		Value:   reporting.FormatTree,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORMAT"),
		Usage:   fmt.Sprintf("Report format. Options: %s", strings.Join(reporting.Formats, ", ")),
		Action: func(ctx *cli.Context, v string) error {
			return validateFormat(v)
		},
	}
	Details = &cli.BoolFlag{
		Name:    "details",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DETAILS"),
		Usage:   "Include step logs and step failures in the report",
	}
	ShowSkipped = &cli.BoolFlag{
		Name:    "show-skipped",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_SKIPPED"),
		Usage:   "Include cases skipped by filters or focus in the report",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Number of suites run at once. 0 or 1 runs suites one after another",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEFAULT_TIMEOUT"),
		Usage:   "Timeout applied to cases that do not set their own (e.g. '30s', '5m'). 0 disables it",
	}
	TimeoutGrace = &cli.DurationFlag{
		Name:    "timeout-grace",
		Value:   100 * time.Millisecond,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT_GRACE"),
		Usage:   "How long to wait for a timed out case to return before running its cleanups",
	}
	Progress = &cli.StringFlag{
		Name:    "progress",
		Value:   ProgressNone.String(),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS"),
		Usage:   fmt.Sprintf("Progress reporting while running. Options: %s, %s, %s", ProgressNone, ProgressLog, ProgressBar),
		Action: func(ctx *cli.Context, v string) error {
			return validateProgress(v)
		},
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory to write per-run result files to. Empty disables file output",
	}
	MetricsFile = &cli.StringFlag{
		Name:    "metrics-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_FILE"),
		Usage:   "Write the run's metrics in the prometheus text format to this file",
	}
	ServeAddr = &cli.StringFlag{
		Name:    "serve-addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE_ADDR"),
		Usage:   "Serve /healthz and /metrics on this address while running (eg. ':7300')",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a run-profile file (.yaml, .yml or .toml)",
	}
	Profile = &cli.StringFlag{
		Name:    "profile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROFILE"),
		Usage:   "Profile to load from the run-profile file",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	LabelFilter,
	FailOnFocus,
	List,
	IncludePending,
	Filter,
	Suite,
	NoColor,
	Format,
	Details,
	ShowSkipped,
	Concurrency,
	DefaultTimeout,
	TimeoutGrace,
	Progress,
	LogDir,
	MetricsFile,
	ServeAddr,
	ConfigFile,
	Profile,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
}

// NewFlags returns a fresh copy of every configuration option available to
// the binary. urfave/cli flags keep env-derived values after Apply, so each
// app gets its own set.
func NewFlags() []cli.Flag {
	all := slices.Concat(requiredFlags, optionalFlags)
	out := make([]cli.Flag, 0, len(all))
	for _, f := range all {
		out = append(out, copyFlag(f))
	}
	return out
}

func copyFlag(f cli.Flag) cli.Flag {
	switch f := f.(type) {
	case *cli.StringFlag:
		c := *f
		return &c
	case *cli.BoolFlag:
		c := *f
		return &c
	case *cli.IntFlag:
		c := *f
		return &c
	case *cli.DurationFlag:
		c := *f
		return &c
	case *cli.StringSliceFlag:
		c := *f
		if f.Value != nil {
			c.Value = cli.NewStringSlice(f.Value.Value()...)
		}
		return &c
	case *cli.GenericFlag:
		return cliapp.ProtectFlags([]cli.Flag{f})[0]
	default:
		panic(fmt.Sprintf("unsupported flag type %T", f))
	}
}

// CheckProfileFlags rejects a profile name given without a profile file
func CheckProfileFlags(ctx *cli.Context) error {
	if ctx.IsSet(Profile.Name) && ctx.String(ConfigFile.Name) == "" {
		return fmt.Errorf("flag %s requires %s", Profile.Name, ConfigFile.Name)
	}
	return nil
}

func validateFormat(v string) error {
	if !slices.Contains(reporting.Formats, strings.ToLower(v)) {
		return fmt.Errorf("format must be one of: %s", strings.Join(reporting.Formats, ", "))
	}
	return nil
}

func validateProgress(v string) error {
	if !ProgressMode(v).IsValid() {
		return fmt.Errorf("progress must be one of: %s, %s, %s", ProgressNone, ProgressLog, ProgressBar)
	}
	return nil
}
