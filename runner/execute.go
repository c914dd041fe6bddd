package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/metrics"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// bodyResult is what a body goroutine hands back to its supervisor.
type bodyResult struct {
	fatal   *types.FailureEvent
	crashed bool
}

// runTest executes one admitted case and reports it. It never panics.
func (s *Scheduler) runTest(ctx context.Context, tr *stateTracker, tc registry.TestCase) types.TestOutcome {
	desc := tc.Descriptor
	limit := desc.EffectiveTimeLimit(s.config.DefaultTimeLimit)

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("test %s", desc.ID))
	defer span.End()
	span.SetAttributes(
		attribute.String("test.id", desc.ID),
		attribute.String("test.suite", desc.Suite),
		attribute.Int64("test.time_limit_ms", limit.Milliseconds()),
	)

	metrics.RecordTestStarted()
	defer metrics.RecordTestEnded()

	tr.transition(types.StateRunning)
	s.reporter.ReportStart(desc)
	s.log.Debug("Running test", "test", desc.ID, "timeLimit", limit)

	outcome := s.supervise(ctx, tr, tc, limit)

	if outcome.Failed() {
		span.SetStatus(codes.Error, string(outcome.Status()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.String("test.status", string(outcome.Status())))

	s.reporter.reportEvents(desc, outcome.Events)
	s.reporter.ReportFinish(outcome)
	tr.transition(types.StateReported)

	s.log.Debug("Test finished", "test", desc.ID, "status", outcome.Status(), "elapsed", outcome.Elapsed, "events", len(outcome.Events))
	return outcome
}

// supervise runs the body on its own goroutine and waits for it, or for the
// time limit when there is one. A body that misses its limit is left
// running; its context is cancelled and its late events are discarded.
func (s *Scheduler) supervise(ctx context.Context, tr *stateTracker, tc registry.TestCase, limit time.Duration) types.TestOutcome {
	desc := tc.Descriptor
	sink := check.NewSink()
	t := check.New(desc, sink)

	bodyCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan bodyResult, 1)
	start := time.Now()

	go func() {
		// Stays the result only if invoke never returns, i.e. on runtime.Goexit.
		res := bodyResult{
			fatal:   crashEvent(GoexitMessage),
			crashed: true,
		}
		defer func() { done <- res }()
		res = s.invoke(bodyCtx, t, tc)
	}()

	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}

	outcome := types.TestOutcome{Descriptor: desc}
	select {
	case res := <-done:
		cancel(context.Canceled)
		outcome.Elapsed = time.Since(start)
		outcome.Events = sink.Seal()
		if res.fatal != nil {
			outcome.Events = append(outcome.Events, *res.fatal)
		}
		outcome.Crashed = res.crashed
		tr.transition(types.StateCompleted)

	case <-timeout:
		msg := fmt.Sprintf(TimeoutMessageFormat, limit.Milliseconds())
		cancel(errors.New(msg))
		outcome.Elapsed = limit
		outcome.Events = append(sink.Seal(), types.FailureEvent{
			Severity: types.SeverityFatal,
			Kind:     types.KindTimeoutFault,
			Message:  msg,
			Location: desc.Location,
			Time:     time.Now(),
		})
		outcome.TimedOut = true
		tr.transition(types.StateTimedOut)

		s.log.Warn("Test exceeded its time limit, detaching", "test", desc.ID, "limit", limit)
		s.watchDetached(desc, sink, done)
	}
	return outcome
}

// watchDetached logs when a detached body finally returns.
func (s *Scheduler) watchDetached(desc types.TestDescriptor, sink *check.Sink, done <-chan bodyResult) {
	release := metrics.RecordDetached()
	go func() {
		defer release()
		<-done
		dropped := sink.Dropped()
		metrics.RecordDroppedEvents(dropped)
		s.log.Debug("Detached test body returned", "test", desc.ID, "droppedEvents", dropped)
	}()
}

// invoke calls the body and converts a returned error or a panic into its
// terminating event.
func (s *Scheduler) invoke(ctx context.Context, t *check.T, tc registry.TestCase) (res bodyResult) {
	defer func() {
		if r := recover(); r != nil {
			res = s.classifyPanic(tc.Descriptor, r)
		}
	}()

	if err := tc.Body(ctx, t); err != nil {
		return bodyResult{fatal: &types.FailureEvent{
			Severity: types.SeverityFatal,
			Kind:     types.KindGenericFault,
			Message:  err.Error(),
			Location: tc.Descriptor.Location,
			Time:     time.Now(),
		}}
	}
	return bodyResult{}
}

// classifyPanic runs inside the deferred recover, while the panicking frames
// are still on the stack, so the captured stack points at the panic site.
func (s *Scheduler) classifyPanic(desc types.TestDescriptor, r any) bodyResult {
	if failure, ok := r.(*check.Failure); ok {
		ev := failure.Event()
		return bodyResult{fatal: &ev}
	}

	var (
		ev      *types.FailureEvent
		crashed bool
		err     error
	)
	switch v := r.(type) {
	case runtime.Error:
		err = v
		ev = crashEvent(fmt.Sprintf("panic: %v", v))
		crashed = true
	case error:
		err = v
		ev = &types.FailureEvent{
			Severity: types.SeverityFatal,
			Kind:     types.KindGenericFault,
			Message:  fmt.Sprintf("panic: %v", v),
			Time:     time.Now(),
		}
	default:
		err = fmt.Errorf("%v", v)
		ev = crashEvent(fmt.Sprintf("panic: %v", v))
		crashed = true
	}
	ev.Location = desc.Location

	s.log.Error("Test body panicked", "test", desc.ID, "kind", ev.Kind, "err", err)
	s.log.Debug("Test body panic stack", "test", desc.ID, "stack", fmt.Sprintf("%+v", pkgerrors.WithStack(err)))
	return bodyResult{fatal: ev, crashed: crashed}
}

func crashEvent(msg string) *types.FailureEvent {
	return &types.FailureEvent{
		Severity: types.SeverityFatal,
		Kind:     types.KindUnclassifiedCrash,
		Message:  msg,
		Time:     time.Now(),
	}
}
