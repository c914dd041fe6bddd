package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ConsoleReporter streams one line per lifecycle callback, in the style of `go test -v`.
type ConsoleReporter struct {
	mu      sync.Mutex
	out     io.Writer
	colored bool
	verbose bool // also print informational events
}

func NewConsoleReporter(out io.Writer, colored, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, colored: colored, verbose: verbose}
}

func (r *ConsoleReporter) ReportRunStart(runID string, total int) {
	r.printf(text.Colors{text.Bold}, "=== RUN %s (%d tests)\n", runID, total)
}

func (r *ConsoleReporter) ReportStart(desc types.TestDescriptor) {
	r.printf(nil, "=== START %s\n", desc.ID)
}

func (r *ConsoleReporter) ReportEvent(desc types.TestDescriptor, ev types.FailureEvent) {
	if !ev.IsFailure() && !r.verbose {
		return
	}
	var colors text.Colors
	switch {
	case ev.Severity.IsFatal():
		colors = text.Colors{text.FgRed, text.Bold}
	case ev.IsFailure():
		colors = text.Colors{text.FgRed}
	case ev.Severity == types.SeverityWarning:
		colors = text.Colors{text.FgYellow}
	}
	r.printf(colors, "    %s: %s\n", desc.ID, ev)
}

func (r *ConsoleReporter) ReportSkip(desc types.TestDescriptor, reason string) {
	r.printf(text.Colors{text.FgYellow}, "--- SKIP %s: %s\n", desc.ID, reason)
}

func (r *ConsoleReporter) ReportFinish(outcome types.TestOutcome) {
	status := outcome.Status()
	colors := text.Colors{text.FgGreen}
	if status != types.TestStatusPass {
		colors = text.Colors{text.FgRed}
	}
	r.printf(colors, "--- %s %s (%s)\n", statusLabel(status), outcome.Descriptor.ID, formatDuration(outcome.Elapsed))
}

func (r *ConsoleReporter) ReportAllTestsComplete(summary types.RunSummary) {
	colors := text.Colors{text.FgGreen, text.Bold}
	if summary.Failed > 0 {
		colors = text.Colors{text.FgRed, text.Bold}
	}
	r.printf(colors, "%s %s\n", statusLabel(summary.Status()), summary)
}

func (r *ConsoleReporter) printf(colors text.Colors, format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if r.colored && len(colors) > 0 {
		line = colors.Sprint(line)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.out, line)
}

func statusLabel(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "PASS"
	case types.TestStatusSkip:
		return "SKIP"
	case types.TestStatusTimeout:
		return "TIMEOUT"
	case types.TestStatusError:
		return "ERROR"
	default:
		return "FAIL"
	}
}
