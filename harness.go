package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/logging"
	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/reporting"
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/service"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Harness runs a sealed registry once as a cliapp.Lifecycle.
type Harness struct {
	config   *Config
	version  string
	registry *registry.Registry
	service  *service.Service
	result   *types.RunSummary

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(config *Config, reg *registry.Registry, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}

	config.Log.Debug("Creating harness with config",
		"plan", config.PlanFile,
		"profile", config.Profile,
		"maxConcurrency", config.MaxConcurrency,
		"defaultTimeLimit", config.DefaultTimeLimit,
		"format", config.Format)

	reg.Seal()

	h := &Harness{
		config:           config,
		version:          version,
		registry:         reg,
		shutdownCallback: shutdownCallback,
	}
	if config.Serve {
		h.service = service.New(config.Service, config.Log)
	}
	return h, nil
}

func (h *Harness) Start(ctx context.Context) error {
	h.running.Store(true)
	h.config.Log.Info("Starting op-harness", "version", h.version, "tests", h.registry.Len())

	if h.service != nil {
		h.service.Start()
	}

	summary, err := h.runTests(ctx)
	if err != nil {
		h.config.Log.Error("Runtime error running tests", "error", err)
		_ = h.Stop(ctx)
		return NewRuntimeError(err)
	}
	h.result = &summary

	if summary.Failed > 0 {
		h.config.Log.Warn("Test run completed with failures", "failed", summary.Failed)
		_ = h.Stop(ctx)
		return NewTestFailureError(summary.String())
	}

	go func() {
		h.shutdownCallback(nil)
	}()
	return nil
}

func (h *Harness) runTests(ctx context.Context) (types.RunSummary, error) {
	cases := h.registry.Cases()
	if plan := h.config.Plan(); plan != nil {
		var err error
		if cases, err = plan.Apply(h.registry); err != nil {
			return types.RunSummary{}, fmt.Errorf("failed to apply plan: %w", err)
		}
	}
	cases = registry.FilterCases(cases, h.config.Filter.Predicate())

	runID := uuid.New().String()
	reporter, fileLogger, err := h.reporters(runID)
	if err != nil {
		return types.RunSummary{}, err
	}

	sched, err := runner.New(runner.Config{
		Log:              h.config.Log,
		Reporter:         reporter,
		DefaultTimeLimit: h.config.DefaultTimeLimit,
		MaxConcurrency:   h.config.MaxConcurrency,
		RunID:            runID,
	})
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("failed to create scheduler: %w", err)
	}

	summary := sched.Run(ctx, cases)

	if fileLogger != nil {
		if err := fileLogger.Err(); err != nil {
			h.config.Log.Warn("Some test logs could not be written", "dir", fileLogger.GetLogDir(), "err", err)
		} else {
			h.config.Log.Info("Test logs written", "dir", fileLogger.GetLogDir())
		}
	}
	return summary, nil
}

// reporters builds the reporter chain for one run.
func (h *Harness) reporters(runID string) (runner.Reporter, *logging.FileLogger, error) {
	var out runner.Reporter
	switch h.config.Format {
	case flags.FormatConsole:
		out = reporting.NewConsoleReporter(h.config.Out, true, h.config.Verbose)
	case flags.FormatJSON:
		out = reporting.NewJSONReporter(h.config.Out)
	default:
		out = reporting.NewTableReporter(h.config.Out, "Run "+runID, h.config.Verbose, true)
	}

	chain := []runner.Reporter{out, metrics.NewReporter()}
	if h.config.ShowProgress {
		chain = append(chain, runner.NewProgressReporter(h.config.Log, h.config.ProgressInterval))
	}

	var fileLogger *logging.FileLogger
	if h.config.LogDir != "" {
		var err error
		fileLogger, err = logging.NewFileLogger(h.config.Log, h.config.LogDir, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		chain = append(chain, fileLogger)
	}
	return reporting.NewMultiReporter(chain...), fileLogger, nil
}

func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping op-harness")
	if !h.running.Load() {
		h.config.Log.Debug("Harness already stopped, nothing to do")
		return nil
	}
	h.running.Store(false)

	if h.service != nil {
		h.service.Shutdown()
	}
	h.config.Log.Info("op-harness stopped successfully")
	return nil
}

func (h *Harness) Stopped() bool {
	return !h.running.Load()
}

// Result returns the summary of the completed run, or nil.
func (h *Harness) Result() *types.RunSummary {
	return h.result
}
