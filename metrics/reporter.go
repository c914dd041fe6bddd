package metrics

import "github.com/ethereum-optimism/infra/op-harness/types"

// Reporter records the lifecycle of a run as Prometheus metrics.
type Reporter struct{}

func NewReporter() *Reporter {
	return &Reporter{}
}

func (r *Reporter) ReportStart(types.TestDescriptor) {}

func (r *Reporter) ReportEvent(_ types.TestDescriptor, ev types.FailureEvent) {
	RecordEvent(ev.Severity, ev.Kind)
}

func (r *Reporter) ReportSkip(desc types.TestDescriptor, _ string) {
	RecordTestResult(desc.Suite, types.TestStatusSkip, 0)
}

func (r *Reporter) ReportFinish(outcome types.TestOutcome) {
	RecordTestResult(outcome.Descriptor.Suite, outcome.Status(), outcome.Elapsed)
}

func (r *Reporter) ReportAllTestsComplete(summary types.RunSummary) {
	RecordRun(summary)
}
