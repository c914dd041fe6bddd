package types

import (
	"fmt"
	"strings"
	"time"
)

// FailureKind records where an event came from.
type FailureKind string

const (
	KindInformational     FailureKind = "informational"      // debug, info and warning events
	KindCheckFailure      FailureKind = "check_failure"      // non-fatal, recorded
	KindAssertionFailure  FailureKind = "assertion_failure"  // fatal, raised by an assertion helper
	KindGenericFault      FailureKind = "generic_fault"      // fatal, returned or panicked error
	KindUnclassifiedCrash FailureKind = "unclassified_crash" // fatal, runtime panic or Goexit
	KindTimeoutFault      FailureKind = "timeout_fault"      // fatal, synthesized by the watchdog
)

// Comparison holds the rendered operands of a failed comparison.
type Comparison struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// FailureEvent is one diagnostic emitted by, or on behalf of, a test body.
type FailureEvent struct {
	Severity   Severity       `json:"severity"`
	Kind       FailureKind    `json:"kind"`
	Message    string         `json:"message"`
	Call       string         `json:"call,omitempty"`
	Comparison *Comparison    `json:"comparison,omitempty"`
	Location   SourceLocation `json:"location"`
	Time       time.Time      `json:"time"`
}

// IsFailure reports whether the event fails its test.
func (e FailureEvent) IsFailure() bool {
	return e.Severity.IsFailure()
}

func (e FailureEvent) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Severity)
	if e.Call != "" {
		fmt.Fprintf(&b, "%s: ", e.Call)
	}
	b.WriteString(e.Message)
	if e.Comparison != nil {
		fmt.Fprintf(&b, " (expected: %s, actual: %s)", e.Comparison.Expected, e.Comparison.Actual)
	}
	if !e.Location.IsZero() {
		fmt.Fprintf(&b, " at %s", e.Location)
	}
	return b.String()
}

// KindForSeverity returns the default kind for events emitted through the sink.
func KindForSeverity(s Severity) FailureKind {
	switch {
	case s == SeverityCheck:
		return KindCheckFailure
	case s.IsFatal():
		return KindAssertionFailure
	default:
		return KindInformational
	}
}
