package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Config holds the settings of a Scheduler.
type Config struct {
	Log      log.Logger
	Reporter Reporter
	// DefaultTimeLimit applies to descriptors that do not set their own.
	// Zero or negative disables the watchdog for those tests.
	DefaultTimeLimit time.Duration
	// MaxConcurrency caps the number of admitted tests. Zero means unbounded.
	MaxConcurrency int
	// RunID identifies the run in logs, spans and metrics. Generated when empty.
	RunID string
}

// Scheduler runs test cases under a concurrency cap and drives a Reporter.
type Scheduler struct {
	config   Config
	log      log.Logger
	reporter *serializedReporter
	tracer   trace.Tracer
}

// New creates a Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max concurrency cannot be negative: %d", cfg.MaxConcurrency)
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	if cfg.MaxConcurrency > MaxReasonableConcurrency {
		cfg.Log.Warn("Very high concurrency requested", "maxConcurrency", cfg.MaxConcurrency,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	return &Scheduler{
		config:   cfg,
		log:      cfg.Log.New("component", "scheduler", "run_id", cfg.RunID),
		reporter: newSerializedReporter(cfg.Reporter),
		tracer:   otel.Tracer("test scheduler"),
	}, nil
}

// RunID returns the id reported with this scheduler's run.
func (s *Scheduler) RunID() string {
	return s.config.RunID
}

// Run executes cases and returns the summary that was reported.
//
// Skipped cases are reported immediately and never take a concurrency slot.
// Run returns only after every admitted test has reported Finish and
// ReportAllTestsComplete has been called exactly once. Cancelling ctx stops
// admission; cases that were never admitted are reported as skipped.
func (s *Scheduler) Run(ctx context.Context, cases []registry.TestCase) types.RunSummary {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("run %s", s.config.RunID))
	defer span.End()

	s.log.Info("Starting test run",
		"tests", len(cases),
		"maxConcurrency", s.config.MaxConcurrency,
		"defaultTimeLimit", s.config.DefaultTimeLimit)

	s.reporter.reportRunStart(s.config.RunID, len(cases))

	var (
		ran     atomic.Int64
		failed  atomic.Int64
		skipped atomic.Int64
	)

	g := new(errgroup.Group)
	if s.config.MaxConcurrency > 0 {
		g.SetLimit(s.config.MaxConcurrency)
	}

	for _, tc := range cases {
		tr := newStateTracker(tc.Descriptor.ID, s.log)

		if reason, skip := tc.Descriptor.SkipReason(); skip {
			s.skip(tr, tc.Descriptor, reason)
			skipped.Add(1)
			continue
		}
		if ctx.Err() != nil {
			s.skip(tr, tc.Descriptor, cancelledReason(ctx))
			skipped.Add(1)
			continue
		}

		// Blocks while MaxConcurrency tests are in flight.
		g.Go(func() error {
			// The run may have been cancelled while this test waited for a slot.
			if ctx.Err() != nil {
				s.skip(tr, tc.Descriptor, cancelledReason(ctx))
				skipped.Add(1)
				return nil
			}
			outcome := s.runTest(ctx, tr, tc)
			ran.Add(1)
			if outcome.Failed() {
				failed.Add(1)
			}
			return nil
		})
	}

	// Tests never return errors to the group; failures travel through outcomes.
	_ = g.Wait()

	summary := types.RunSummary{
		RunID:        s.config.RunID,
		TotalRun:     int(ran.Load()),
		Skipped:      int(skipped.Load()),
		Failed:       int(failed.Load()),
		TotalElapsed: time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("tests.run", summary.TotalRun),
		attribute.Int("tests.failed", summary.Failed),
		attribute.Int("tests.skipped", summary.Skipped),
	)

	s.reporter.ReportAllTestsComplete(summary)
	s.log.Info("Test run completed",
		"status", summary.Status(),
		"run", summary.TotalRun,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.TotalElapsed)
	return summary
}

func (s *Scheduler) skip(tr *stateTracker, desc types.TestDescriptor, reason string) {
	tr.transition(types.StateSkipped)
	s.log.Debug("Skipping test", "test", desc.ID, "reason", reason)
	s.reporter.ReportSkip(desc, reason)
	tr.transition(types.StateReported)
}

func cancelledReason(ctx context.Context) string {
	return fmt.Sprintf("run cancelled: %v", context.Cause(ctx))
}
