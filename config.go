package harness

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/service"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Config holds the application configuration
type Config struct {
	PlanFile         string          // Absolute path of the plan file, empty when none
	Profile          string          // Profile of the plan file to run
	Filter           registry.Filter // Selection, profile values merged with flag values
	DefaultTimeLimit time.Duration   // Limit for tests that do not declare one, 0 for none
	MaxConcurrency   int             // 0 means unbounded
	LogDir           string          // Directory for per-test logs, empty disables them
	Format           string          // console, table or json
	Verbose          bool
	ShowProgress     bool          // Whether to show periodic progress updates during test execution
	ProgressInterval time.Duration // Interval between progress updates when ShowProgress is 'true'
	Serve            bool          // Start the healthz and metrics servers
	Service          service.Config
	Out              io.Writer
	Log              log.Logger

	plan *registry.Plan
}

// NewConfig creates a new Config from cli context. Plan file values are
// applied first, flags that are explicitly set override them.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	include, err := types.ParseAttributes(ctx.StringSlice(flags.Include.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", flags.Include.Name, err)
	}
	exclude, err := types.ParseAttributes(ctx.StringSlice(flags.Exclude.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", flags.Exclude.Name, err)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	svcCfg := service.DefaultConfig()
	if metricsCfg.ListenAddr != "" {
		svcCfg.MetricsHost = metricsCfg.ListenAddr
	}
	if metricsCfg.ListenPort != 0 {
		svcCfg.MetricsPort = metricsCfg.ListenPort
	}

	out := io.Writer(os.Stdout)
	if ctx.App != nil && ctx.App.Writer != nil {
		out = ctx.App.Writer
	}

	cfg := &Config{
		Profile: ctx.String(flags.Profile.Name),
		Filter: registry.Filter{
			Suites:  ctx.StringSlice(flags.Suites.Name),
			IDs:     ctx.StringSlice(flags.IDs.Name),
			Include: include,
			Exclude: exclude,
		},
		DefaultTimeLimit: ctx.Duration(flags.DefaultTimeLimit.Name),
		MaxConcurrency:   ctx.Int(flags.MaxConcurrency.Name),
		Format:           ctx.String(flags.Format.Name),
		Verbose:          ctx.Bool(flags.Verbose.Name),
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		Serve:            ctx.Bool(flags.Serve.Name) || metricsCfg.Enabled,
		Service:          svcCfg,
		Out:              out,
		Log:              log,
	}

	if logDir := ctx.String(flags.LogDir.Name); logDir != "" {
		cfg.LogDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	if planFile := ctx.String(flags.PlanFile.Name); planFile != "" {
		cfg.PlanFile, err = filepath.Abs(planFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for plan file '%s': %w", planFile, err)
		}
		cfg.plan, err = registry.LoadPlan(cfg.PlanFile)
		if err != nil {
			return nil, err
		}
		if cfg.Profile != "" {
			if err := cfg.applyProfile(
				ctx.IsSet(flags.DefaultTimeLimit.Name),
				ctx.IsSet(flags.MaxConcurrency.Name),
			); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// applyProfile folds the selected profile into the config. Values already
// set from flags win.
func (c *Config) applyProfile(timeLimitSet, concurrencySet bool) error {
	profile, err := c.plan.Profile(c.Profile)
	if err != nil {
		return err
	}
	c.Filter = registry.ProfileFilter(profile).Merge(c.Filter)
	if profile.TimeLimit != nil && !timeLimitSet {
		c.DefaultTimeLimit = *profile.TimeLimit
	}
	if profile.MaxConcurrency != nil && !concurrencySet {
		c.MaxConcurrency = *profile.MaxConcurrency
	}
	return nil
}

// Plan returns the loaded plan file, or nil.
func (c *Config) Plan() *registry.Plan {
	return c.plan
}
