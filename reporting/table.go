package reporting

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// TableFormatter renders collected results as an ASCII table.
type TableFormatter struct {
	title               string
	showIndividualTests bool
	colored             bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(title string, showIndividualTests, colored bool) *TableFormatter {
	return &TableFormatter{
		title:               title,
		showIndividualTests: showIndividualTests,
		colored:             colored,
	}
}

// Format renders the suites and the run summary.
func (tf *TableFormatter) Format(suites []SuiteStats, summary types.RunSummary) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.SetTitle(fmt.Sprintf("%s (%s)", tf.title, formatDuration(summary.TotalElapsed)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, suite := range suites {
		name := suite.Name
		if name == "" {
			name = "(no suite)"
		}
		t.AppendRow(table.Row{
			"Suite",
			name,
			formatDuration(suite.Duration),
			suite.Total,
			suite.Passed,
			suite.Failed,
			suite.Skipped,
			getResultString(suite.Status()),
			"",
		})

		if tf.showIndividualTests {
			for i, test := range suite.Tests {
				prefix := "├──"
				if i == len(suite.Tests)-1 {
					prefix = "└──"
				}
				t.AppendRow(table.Row{
					"Test",
					fmt.Sprintf("%s %s", prefix, test.Descriptor.ID),
					formatDuration(test.Elapsed),
					1,
					boolToInt(test.Status == types.TestStatusPass),
					boolToInt(isFailure(test.Status)),
					boolToInt(test.Status == types.TestStatusSkip),
					getResultString(test.Status),
					keyErrorMessage(test),
				})
			}
		}
		t.AppendSeparator()
	}

	if tf.colored {
		switch summary.Status() {
		case types.TestStatusPass:
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		case types.TestStatusSkip:
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		default:
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(summary.TotalElapsed),
		summary.TotalRun + summary.Skipped,
		summary.Passed(),
		summary.Failed,
		summary.Skipped,
		getResultString(summary.Status()),
		"",
	})

	t.Render()
	return buf.String()
}

// TableReporter collects results and prints a table when the run completes.
type TableReporter struct {
	*Collector
	formatter *TableFormatter
	out       io.Writer
}

// NewTableReporter creates a reporter that writes its table to out.
func NewTableReporter(out io.Writer, title string, showIndividualTests, colored bool) *TableReporter {
	return &TableReporter{
		Collector: NewCollector(),
		formatter: NewTableFormatter(title, showIndividualTests, colored),
		out:       out,
	}
}

func (r *TableReporter) ReportAllTestsComplete(summary types.RunSummary) {
	r.Collector.ReportAllTestsComplete(summary)
	fmt.Fprint(r.out, r.formatter.Format(r.Suites(), summary))
}

// keyErrorMessage returns the first line of the first failure, or the skip reason.
func keyErrorMessage(r TestResult) string {
	if r.Status == types.TestStatusSkip {
		return r.SkipReason
	}
	for _, ev := range r.Events {
		if ev.IsFailure() {
			msg := ev.Message
			if idx := strings.Index(msg, "\n"); idx != -1 {
				msg = msg[:idx]
			}
			return msg
		}
	}
	return ""
}

func isFailure(status types.TestStatus) bool {
	return status == types.TestStatusFail || status == types.TestStatusError || status == types.TestStatusTimeout
}

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a symbol and name for the result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	case types.TestStatusTimeout:
		return "✗ timeout"
	case types.TestStatusError:
		return "✗ error"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 3 decimal places
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
