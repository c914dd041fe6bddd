package reporting

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// GoTestEvent mirrors the test2json format so the stream can be fed to tools like gotestsum.
type GoTestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test,omitempty"`
	Output  string    `json:"Output,omitempty"`
	Elapsed float64   `json:"Elapsed,omitempty"`
}

// JSONReporter writes one GoTestEvent per line. Suites map to packages.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
	err error
}

func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(out), now: time.Now}
}

// Err returns the first write error, if any.
func (r *JSONReporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *JSONReporter) ReportStart(desc types.TestDescriptor) {
	r.write(GoTestEvent{Action: "run", Package: desc.Suite, Test: desc.ID})
}

func (r *JSONReporter) ReportEvent(desc types.TestDescriptor, ev types.FailureEvent) {
	r.write(GoTestEvent{Time: ev.Time, Action: "output", Package: desc.Suite, Test: desc.ID, Output: ev.String() + "\n"})
}

func (r *JSONReporter) ReportSkip(desc types.TestDescriptor, reason string) {
	r.write(GoTestEvent{Action: "output", Package: desc.Suite, Test: desc.ID, Output: "SKIP: " + reason + "\n"})
	r.write(GoTestEvent{Action: "skip", Package: desc.Suite, Test: desc.ID})
}

func (r *JSONReporter) ReportFinish(outcome types.TestOutcome) {
	action := "pass"
	if outcome.Failed() {
		action = "fail"
	}
	r.write(GoTestEvent{
		Action:  action,
		Package: outcome.Descriptor.Suite,
		Test:    outcome.Descriptor.ID,
		Elapsed: outcome.Elapsed.Seconds(),
	})
}

func (r *JSONReporter) ReportAllTestsComplete(summary types.RunSummary) {
	action := "pass"
	if summary.Failed > 0 {
		action = "fail"
	}
	r.write(GoTestEvent{Action: "output", Output: summary.String() + "\n"})
	r.write(GoTestEvent{Action: action, Elapsed: summary.TotalElapsed.Seconds()})
}

func (r *JSONReporter) write(ev GoTestEvent) {
	if ev.Time.IsZero() {
		ev.Time = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	r.err = r.enc.Encode(ev)
}
