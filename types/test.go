package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the final classification of a test
type TestStatus string

const (
	TestStatusPass    TestStatus = "pass"
	TestStatusFail    TestStatus = "fail"
	TestStatusSkip    TestStatus = "skip"
	TestStatusError   TestStatus = "error"   // body crashed
	TestStatusTimeout TestStatus = "timeout" // watchdog fired
)

// DefaultTimeLimit marks a descriptor that inherits the run-wide time limit.
// A zero TimeLimit is an explicit "no limit", which overrides the run default.
const DefaultTimeLimit time.Duration = -1

// SourceLocation points at the code that declared a test or emitted an event.
type SourceLocation struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Function string `json:"function,omitempty"`
}

// IsZero reports whether the location carries no information.
func (l SourceLocation) IsZero() bool {
	return l.File == "" && l.Line == 0 && l.Function == ""
}

func (l SourceLocation) String() string {
	if l.IsZero() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// TestDescriptor is the immutable metadata of a registered test
type TestDescriptor struct {
	ID         string
	Name       string
	Suite      string
	Attributes Attributes
	TimeLimit  time.Duration // DefaultTimeLimit, 0 for none, or an explicit limit
	Location   SourceLocation
}

// Predicate selects the descriptors that take part in a run.
type Predicate func(TestDescriptor) bool

// All is the predicate that selects every descriptor.
func All(TestDescriptor) bool { return true }

// DisplayName returns the name used in reports, falling back to the id.
func (d TestDescriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// FullName returns "suite/name" for tests that belong to a suite.
func (d TestDescriptor) FullName() string {
	if d.Suite == "" {
		return d.DisplayName()
	}
	return d.Suite + "/" + d.DisplayName()
}

// EffectiveTimeLimit resolves the descriptor limit against the run default.
// The result is 0 when the test must run without a watchdog.
func (d TestDescriptor) EffectiveTimeLimit(runDefault time.Duration) time.Duration {
	if d.TimeLimit >= 0 {
		return d.TimeLimit
	}
	if runDefault < 0 {
		return 0
	}
	return runDefault
}

// SkipReason returns the reason from the reserved Skip attribute.
func (d TestDescriptor) SkipReason() (string, bool) {
	return d.Attributes.SkipReason()
}

// Clone returns a deep copy so callers cannot mutate registered metadata.
func (d TestDescriptor) Clone() TestDescriptor {
	out := d
	if d.Attributes != nil {
		out.Attributes = append(Attributes(nil), d.Attributes...)
	}
	return out
}

// TestOutcome is built while a test executes, finalized once and handed to the Reporter.
type TestOutcome struct {
	Descriptor TestDescriptor
	Events     []FailureEvent // in emission order
	TimedOut   bool
	Crashed    bool
	Elapsed    time.Duration
}

// FailureCount returns the number of events that count as a failure.
func (o TestOutcome) FailureCount() int {
	n := 0
	for _, ev := range o.Events {
		if ev.IsFailure() {
			n++
		}
	}
	return n
}

// Failed reports whether the test failed for any reason.
func (o TestOutcome) Failed() bool {
	return o.TimedOut || o.Crashed || o.FailureCount() > 0
}

// Status classifies the outcome for metrics and summaries
func (o TestOutcome) Status() TestStatus {
	switch {
	case o.TimedOut:
		return TestStatusTimeout
	case o.Crashed:
		return TestStatusError
	case o.FailureCount() > 0:
		return TestStatusFail
	default:
		return TestStatusPass
	}
}

// FirstFailure returns the earliest failing event.
func (o TestOutcome) FirstFailure() (FailureEvent, bool) {
	for _, ev := range o.Events {
		if ev.IsFailure() {
			return ev, true
		}
	}
	return FailureEvent{}, false
}

// FailureSummary joins the messages of all failing events, one per line.
func (o TestOutcome) FailureSummary() string {
	var b strings.Builder
	for _, ev := range o.Events {
		if !ev.IsFailure() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ev.Message)
	}
	return b.String()
}

// RunSummary aggregates a complete run. It is computed once, after the completion barrier.
type RunSummary struct {
	RunID        string
	TotalRun     int
	Skipped      int
	Failed       int
	TotalElapsed time.Duration
}

// Passed returns the number of executed tests that did not fail.
func (s RunSummary) Passed() int {
	return s.TotalRun - s.Failed
}

// Status returns fail if anything failed, skip if nothing ran, otherwise pass.
func (s RunSummary) Status() TestStatus {
	switch {
	case s.Failed > 0:
		return TestStatusFail
	case s.TotalRun == 0:
		return TestStatusSkip
	default:
		return TestStatusPass
	}
}

func (s RunSummary) String() string {
	return fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d (%.1fs)",
		s.TotalRun, s.Passed(), s.Failed, s.Skipped, s.TotalElapsed.Seconds())
}
