// Package types contains the data model shared by the registry, the scheduler and reporters.
package types

import (
	"fmt"
	"strings"
)

// Severity orders diagnostic events emitted while a test runs.
// Anything above SeverityWarning counts as a failure.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCheck
	SeverityAssert
	SeverityFatal
)

var severityNames = map[Severity]string{
	SeverityDebug:   "debug",
	SeverityInfo:    "info",
	SeverityWarning: "warning",
	SeverityCheck:   "check",
	SeverityAssert:  "assert",
	SeverityFatal:   "fatal",
}

// IsFailure reports whether an event of this severity fails the test.
func (s Severity) IsFailure() bool {
	return s > SeverityWarning
}

// IsFatal reports whether an event of this severity terminates the test body.
func (s Severity) IsFatal() bool {
	return s >= SeverityAssert
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity converts a name such as "warning" back into a Severity.
func ParseSeverity(name string) (Severity, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for sev, n := range severityNames {
		if n == want {
			return sev, nil
		}
	}
	return SeverityDebug, fmt.Errorf("unknown severity %q", name)
}

// MarshalText implements encoding.TextMarshaler so reporters can emit names instead of numbers.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
