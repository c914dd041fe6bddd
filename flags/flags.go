package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-harness/runner"
)

const EnvVarPrefix = "OP_HARNESS"

// Output formats accepted by --format.
const (
	FormatConsole = "console"
	FormatTable   = "table"
	FormatJSON    = "json"
)

var (
	PlanFile = &cli.StringFlag{
		Name:    "plan",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLAN"),
		Usage:   "Path to a plan file with profiles and per-test overrides (eg. 'plan.yaml')",
	}
	Profile = &cli.StringFlag{
		Name:    "profile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROFILE"),
		Usage:   "Profile of the plan file to run. Requires --plan",
	}
	Suites = &cli.StringSliceFlag{
		Name:    "suite",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITES"),
		Usage:   "Only run tests of these suites. May be repeated",
	}
	IDs = &cli.StringSliceFlag{
		Name:    "id",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "IDS"),
		Usage:   "Only run these test ids. A theory id selects all of its rows. May be repeated",
	}
	Include = &cli.StringSliceFlag{
		Name:    "include",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INCLUDE"),
		Usage:   "Only run tests carrying any of these attributes ('key' or 'key=value'). May be repeated",
	}
	Exclude = &cli.StringSliceFlag{
		Name:    "exclude",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXCLUDE"),
		Usage:   "Never run tests carrying any of these attributes ('key' or 'key=value'). May be repeated",
	}
	DefaultTimeLimit = &cli.DurationFlag{
		Name:    "default-time-limit",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEFAULT_TIME_LIMIT"),
		Usage:   "Time limit for tests that do not declare one (e.g. '30s'). 0 disables the limit",
	}
	MaxConcurrency = &cli.IntFlag{
		Name:    "max-concurrency",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_CONCURRENCY"),
		Usage:   "Maximum number of tests running at once. 0 means unbounded",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store per-test logs. Set to empty to disable file logs",
	}
	Format = &cli.StringFlag{
		Name:    "format",
		Value:   FormatTable,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORMAT"),
		Usage:   fmt.Sprintf("Output format: %s, %s or %s", FormatConsole, FormatTable, FormatJSON),
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
		Usage:   "Print informational events and individual tests in the summary table",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Periodically log which tests are still running",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   runner.DefaultProgressInterval,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Start the healthz and metrics server while the run executes",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	PlanFile,
	Profile,
	Suites,
	IDs,
	Include,
	Exclude,
	DefaultTimeLimit,
	MaxConcurrency,
	LogDir,
	Format,
	Verbose,
	ShowProgress,
	ProgressInterval,
	Serve,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if ctx.IsSet(Profile.Name) && ctx.String(PlanFile.Name) == "" {
		return fmt.Errorf("flag %s requires %s", Profile.Name, PlanFile.Name)
	}
	switch f := ctx.String(Format.Name); f {
	case FormatConsole, FormatTable, FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", f)
	}
	if ctx.Int(MaxConcurrency.Name) < 0 {
		return fmt.Errorf("flag %s must not be negative", MaxConcurrency.Name)
	}
	return opflags.CheckRequiredXor(ctx)
}
