package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ProgressReporter periodically logs how far a run has got and which tests
// have been running longest. It stops on ReportAllTestsComplete.
type ProgressReporter struct {
	logger   log.Logger
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex

	runID          string
	totalTests     int
	completedTests int
	failedTests    int
	skippedTests   int
	runStartTime   time.Time

	// test id -> start time
	runningTests map[string]time.Time
}

var (
	_ Reporter         = (*ProgressReporter)(nil)
	_ RunStartReporter = (*ProgressReporter)(nil)
)

// NewProgressReporter starts a reporter that logs an update every updateInterval.
func NewProgressReporter(logger log.Logger, updateInterval time.Duration) *ProgressReporter {
	if updateInterval <= 0 {
		updateInterval = DefaultProgressInterval
	}

	p := &ProgressReporter{
		logger:       logger,
		ticker:       time.NewTicker(updateInterval),
		stopCh:       make(chan struct{}),
		runningTests: make(map[string]time.Time),
		runStartTime: time.Now(),
	}

	go p.progressReporter()

	return p
}

func (p *ProgressReporter) ReportRunStart(runID string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runID = runID
	p.totalTests = total
	p.completedTests = 0
	p.failedTests = 0
	p.skippedTests = 0
	p.runStartTime = time.Now()
	p.runningTests = make(map[string]time.Time)

	p.logger.Info("Starting run", "run_id", runID, "totalTests", total)
}

func (p *ProgressReporter) ReportStart(desc types.TestDescriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runningTests[desc.ID] = time.Now()
	p.logger.Debug("Test started", "test", desc.ID, "runningTests", len(p.runningTests))
}

func (p *ProgressReporter) ReportEvent(types.TestDescriptor, types.FailureEvent) {}

func (p *ProgressReporter) ReportSkip(desc types.TestDescriptor, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completedTests++
	p.skippedTests++
	p.logger.Debug("Test skipped", "test", desc.ID, "reason", reason)
}

func (p *ProgressReporter) ReportFinish(outcome types.TestOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.runningTests, outcome.Descriptor.ID)
	p.completedTests++
	if outcome.Failed() {
		p.failedTests++
	}

	// Log individual test completion at debug level to avoid spam
	p.logger.Debug("Test completed", "test", outcome.Descriptor.ID, "status", outcome.Status(),
		"completed", p.completedTests, "total", p.totalTests, "runningTests", len(p.runningTests))
}

func (p *ProgressReporter) ReportAllTestsComplete(summary types.RunSummary) {
	p.Stop()

	p.mu.RLock()
	defer p.mu.RUnlock()
	p.logger.Info("Completed run", "run_id", summary.RunID, "totalTests", p.totalTests,
		"completed", p.completedTests, "duration", time.Since(p.runStartTime).Truncate(time.Millisecond))
}

// progressReporter runs in a goroutine and periodically reports progress
func (p *ProgressReporter) progressReporter() {
	for {
		select {
		case <-p.ticker.C:
			p.reportProgress()
		case <-p.stopCh:
			return
		}
	}
}

func (p *ProgressReporter) reportProgress() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	detailsStr := formatRunningTests(p.runningTests, maxShowRunning)

	var percentComplete float64
	if p.totalTests > 0 {
		percentComplete = float64(p.completedTests) * 100.0 / float64(p.totalTests)
	}

	logFields := []interface{}{
		"run_id", p.runID,
		"completed", p.completedTests,
		"total", p.totalTests,
		"failed", p.failedTests,
		"skipped", p.skippedTests,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(p.runningTests),
		"longestRunning", detailsStr,
	}

	p.logger.Info("Progress update", logFields...)
}

// Stop stops the periodic updates. It is safe to call more than once.
func (p *ProgressReporter) Stop() {
	p.stopOnce.Do(func() {
		p.ticker.Stop()
		close(p.stopCh)
	})
}

// formatRunningTests lists the longest running tests first, at most maxShow of them.
func formatRunningTests(runningTests map[string]time.Time, maxShow int) string {
	if len(runningTests) == 0 {
		return ""
	}

	type runningTest struct {
		name     string
		duration time.Duration
	}

	var running []runningTest
	now := time.Now()
	for testName, startTime := range runningTests {
		running = append(running, runningTest{
			name:     testName,
			duration: now.Sub(startTime),
		})
	}

	sort.Slice(running, func(i, j int) bool {
		return running[i].duration > running[j].duration
	})

	var runningStrs []string
	for i, test := range running {
		if i >= maxShow {
			break
		}
		duration := test.duration.Truncate(time.Millisecond)
		runningStrs = append(runningStrs, fmt.Sprintf("%s (%v)", test.name, duration))
	}

	if len(running) > maxShow {
		runningStrs = append(runningStrs, fmt.Sprintf("+%d more", len(running)-maxShow))
	}

	return strings.Join(runningStrs, ", ")
}
