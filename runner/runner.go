package runner

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// RunTests filters cases, runs them and returns the number of failed tests.
//
// It is the entry point for callers that do not need a Scheduler of their
// own. Failures only surface through the reporter and the returned count:
// nothing raised by a test body escapes. A negative maxConcurrency is
// treated as unbounded.
func RunTests(
	ctx context.Context,
	filter types.Predicate,
	cases []registry.TestCase,
	runWideTimeLimit time.Duration,
	maxConcurrency int,
	reporter Reporter,
) int {
	logger := log.Root()
	if maxConcurrency < 0 {
		logger.Warn("Negative max concurrency, running unbounded", "maxConcurrency", maxConcurrency)
		maxConcurrency = 0
	}

	scheduler, err := New(Config{
		Log:              logger,
		Reporter:         reporter,
		DefaultTimeLimit: runWideTimeLimit,
		MaxConcurrency:   maxConcurrency,
	})
	if err != nil {
		// unreachable: the only validated field was clamped above
		logger.Error("Failed to create scheduler", "err", err)
		return len(cases)
	}

	summary := scheduler.Run(ctx, registry.FilterCases(cases, filter))
	return summary.Failed
}
