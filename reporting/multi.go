package reporting

import (
	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// MultiReporter fans every callback out to its children in order.
type MultiReporter []runner.Reporter

var _ runner.Reporter = MultiReporter(nil)
var _ runner.RunStartReporter = MultiReporter(nil)

func NewMultiReporter(reporters ...runner.Reporter) MultiReporter {
	out := make(MultiReporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m MultiReporter) ReportRunStart(runID string, total int) {
	for _, r := range m {
		if rs, ok := r.(runner.RunStartReporter); ok {
			rs.ReportRunStart(runID, total)
		}
	}
}

func (m MultiReporter) ReportStart(desc types.TestDescriptor) {
	for _, r := range m {
		r.ReportStart(desc)
	}
}

func (m MultiReporter) ReportEvent(desc types.TestDescriptor, ev types.FailureEvent) {
	for _, r := range m {
		r.ReportEvent(desc, ev)
	}
}

func (m MultiReporter) ReportSkip(desc types.TestDescriptor, reason string) {
	for _, r := range m {
		r.ReportSkip(desc, reason)
	}
}

func (m MultiReporter) ReportFinish(outcome types.TestOutcome) {
	for _, r := range m {
		r.ReportFinish(outcome)
	}
}

func (m MultiReporter) ReportAllTestsComplete(summary types.RunSummary) {
	for _, r := range m {
		r.ReportAllTestsComplete(summary)
	}
}
