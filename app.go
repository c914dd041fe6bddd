package harness

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/ethereum-optimism/infra/op-harness/exitcodes"
	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/registry"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

// NewApp builds the command line application that runs reg once.
// Errors are returned from Run instead of exiting the process.
func NewApp(reg *registry.Registry) *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-harness"
	app.Usage = "Concurrent in-process test harness"
	app.Description = "op-harness runs the registered tests under a concurrency cap and per-test time limits"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(func(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
		return setup(ctx, reg, closeApp)
	})
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func setup(ctx *cli.Context, reg *registry.Registry, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())

	cfg, err := NewConfig(ctx, log)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	h, err := New(cfg, reg, Version, closeApp)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}
	return h, nil
}

// Run executes reg with the given command line and returns the run error.
func Run(ctx context.Context, reg *registry.Registry, args []string) error {
	return NewApp(reg).RunContext(ctx, args)
}

// Main is the entrypoint of a test binary: it sets up telemetry and signal
// handling, runs reg and returns the process exit code.
func Main(reg *registry.Registry, args []string) int {
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName("op-harness"),
		otelconfig.WithServiceVersion(Version),
	)
	if err != nil {
		log.Error("Failed to setup open telemetry", "message", err)
		return exitcodes.RuntimeErr
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = Run(ctx, reg, args)
	if err != nil {
		log.Error("Application failed", "message", err)
	}
	return ExitCode(err)
}
