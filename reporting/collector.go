package reporting

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// TestResult is the final record of one test, executed or skipped.
type TestResult struct {
	Descriptor types.TestDescriptor
	Status     types.TestStatus
	Events     []types.FailureEvent
	Elapsed    time.Duration
	SkipReason string
	Order      int // resolution order within the run
}

// SuiteStats aggregates the tests of one suite.
type SuiteStats struct {
	Name     string
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Tests    []TestResult
}

// Status returns fail if any test failed, skip if all were skipped, otherwise pass.
func (s SuiteStats) Status() types.TestStatus {
	switch {
	case s.Failed > 0:
		return types.TestStatusFail
	case s.Skipped == s.Total:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}

// Collector accumulates results as a Reporter. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	results []TestResult
	summary *types.RunSummary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) ReportStart(types.TestDescriptor) {}

func (c *Collector) ReportEvent(types.TestDescriptor, types.FailureEvent) {}

func (c *Collector) ReportSkip(desc types.TestDescriptor, reason string) {
	c.add(TestResult{Descriptor: desc, Status: types.TestStatusSkip, SkipReason: reason})
}

func (c *Collector) ReportFinish(outcome types.TestOutcome) {
	c.add(TestResult{
		Descriptor: outcome.Descriptor,
		Status:     outcome.Status(),
		Events:     outcome.Events,
		Elapsed:    outcome.Elapsed,
	})
}

func (c *Collector) ReportAllTestsComplete(summary types.RunSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = &summary
}

func (c *Collector) add(r TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r.Order = len(c.results)
	c.results = append(c.results, r)
}

// Results returns every result in resolution order.
func (c *Collector) Results() []TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TestResult(nil), c.results...)
}

// Summary returns the run summary once the run is complete.
func (c *Collector) Summary() (types.RunSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return types.RunSummary{}, false
	}
	return *c.summary, true
}

// Suites groups results by suite, sorted by suite name, with tests sorted by id.
func (c *Collector) Suites() []SuiteStats {
	bySuite := make(map[string]*SuiteStats)
	for _, r := range c.Results() {
		s, ok := bySuite[r.Descriptor.Suite]
		if !ok {
			s = &SuiteStats{Name: r.Descriptor.Suite}
			bySuite[r.Descriptor.Suite] = s
		}
		s.Total++
		s.Duration += r.Elapsed
		switch r.Status {
		case types.TestStatusSkip:
			s.Skipped++
		case types.TestStatusPass:
			s.Passed++
		default:
			s.Failed++
		}
		s.Tests = append(s.Tests, r)
	}

	suites := make([]SuiteStats, 0, len(bySuite))
	for _, s := range bySuite {
		sort.Slice(s.Tests, func(i, j int) bool { return s.Tests[i].Descriptor.ID < s.Tests[j].Descriptor.ID })
		suites = append(suites, *s)
	}
	sort.Slice(suites, func(i, j int) bool { return suites[i].Name < suites[j].Name })
	return suites
}
