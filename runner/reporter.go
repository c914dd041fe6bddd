package runner

import (
	"sync"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Reporter receives the lifecycle of a run.
//
// For every executed test: one ReportStart, its events in emission order,
// then one ReportFinish. For every skipped test: one ReportSkip and nothing
// else. After every test has resolved: one ReportAllTestsComplete.
// Callbacks for different tests may interleave.
type Reporter interface {
	ReportStart(desc types.TestDescriptor)
	ReportEvent(desc types.TestDescriptor, ev types.FailureEvent)
	ReportSkip(desc types.TestDescriptor, reason string)
	ReportFinish(outcome types.TestOutcome)
	ReportAllTestsComplete(summary types.RunSummary)
}

// RunStartReporter is implemented by reporters that want to know the run id
// and the number of selected tests, skipped ones included, before the run starts.
type RunStartReporter interface {
	ReportRunStart(runID string, total int)
}

// NopReporter ignores every callback.
type NopReporter struct{}

func (NopReporter) ReportStart(types.TestDescriptor)                     {}
func (NopReporter) ReportEvent(types.TestDescriptor, types.FailureEvent) {}
func (NopReporter) ReportSkip(types.TestDescriptor, string)              {}
func (NopReporter) ReportFinish(types.TestOutcome)                       {}
func (NopReporter) ReportAllTestsComplete(types.RunSummary)              {}

// serializedReporter guards each callback kind with its own lock so a
// reporter that is not thread-safe never sees two calls of the same kind at
// once. Different kinds may still run concurrently.
type serializedReporter struct {
	inner Reporter

	startMu    sync.Mutex
	eventMu    sync.Mutex
	skipMu     sync.Mutex
	finishMu   sync.Mutex
	completeMu sync.Mutex
}

func newSerializedReporter(inner Reporter) *serializedReporter {
	if inner == nil {
		inner = NopReporter{}
	}
	return &serializedReporter{inner: inner}
}

func (s *serializedReporter) reportRunStart(runID string, total int) {
	if r, ok := s.inner.(RunStartReporter); ok {
		r.ReportRunStart(runID, total)
	}
}

func (s *serializedReporter) ReportStart(desc types.TestDescriptor) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	s.inner.ReportStart(desc)
}

// reportEvents delivers all events of one test under a single lock hold,
// keeping them contiguous as well as ordered.
func (s *serializedReporter) reportEvents(desc types.TestDescriptor, events []types.FailureEvent) {
	if len(events) == 0 {
		return
	}
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	for _, ev := range events {
		s.inner.ReportEvent(desc, ev)
	}
}

func (s *serializedReporter) ReportEvent(desc types.TestDescriptor, ev types.FailureEvent) {
	s.reportEvents(desc, []types.FailureEvent{ev})
}

func (s *serializedReporter) ReportSkip(desc types.TestDescriptor, reason string) {
	s.skipMu.Lock()
	defer s.skipMu.Unlock()
	s.inner.ReportSkip(desc, reason)
}

func (s *serializedReporter) ReportFinish(outcome types.TestOutcome) {
	s.finishMu.Lock()
	defer s.finishMu.Unlock()
	s.inner.ReportFinish(outcome)
}

func (s *serializedReporter) ReportAllTestsComplete(summary types.RunSummary) {
	s.completeMu.Lock()
	defer s.completeMu.Unlock()
	s.inner.ReportAllTestsComplete(summary)
}
