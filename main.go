package opspec

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-spec/flags"
	"github.com/ethereum-optimism/infra/op-spec/registry"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

// EnvFileVar names the dotenv file loaded before flags are parsed. When it is
// unset, ./.env is loaded if it exists.
const EnvFileVar = "OP_SPEC_ENV_FILE"

// NewApp creates the command line app running the suites of reg
func NewApp(reg *registry.Registry, name, version string) *cli.App {
	app := cli.NewApp()
	app.Version = version
	app.Name = name
	app.Usage = "Run BDD-style specification suites"
	app.ArgsUsage = "[name filter...]"
	app.Description = fmt.Sprintf("%s runs the suites registered in this binary and reports a tree of results", name)
	app.Flags = cliapp.ProtectFlags(flags.NewFlags())
	app.Action = cliapp.LifecycleCmd(func(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
		return setup(ctx, closeApp, reg, version)
	})
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), ExitCode(err)))
	}
	return app
}

func setup(ctx *cli.Context, closeApp context.CancelCauseFunc, reg *registry.Registry, version string) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()

	cfg, err := NewConfig(ctx, logger)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	logger.Debug("Config", "config", cfg)

	app, err := New(cfg, reg, version, ctx.App.Writer, closeApp)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create op-spec: %w", err))
	}
	return app, nil
}

// Main is the entry point of a binary that registered its suites in reg.
// It exits the process with the code of the run.
func Main(reg *registry.Registry, version string) {
	if err := loadEnvFile(); err != nil {
		log.Crit("Failed to load env file", "message", err)
	}

	app := NewApp(reg, "op-spec", version)

	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func loadEnvFile() error {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	return godotenv.Load(path)
}
