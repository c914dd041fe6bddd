package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/reporting"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
	AllLogsFilename    = "all.log"
	RawEventsFilename  = "raw_go_events.log"
	PassedDirname      = "passed"
	FailedDirname      = "failed"
)

// ResultSink consumes finalized results of a run.
type ResultSink interface {
	// Consume processes a single test result
	Consume(result reporting.TestResult, runID string) error
	// Complete is called once after every result has been consumed
	Complete(summary types.RunSummary) error
}

// FileLogger is a Reporter that writes a run's results under <baseDir>/testrun-<runID>.
type FileLogger struct {
	log         log.Logger
	baseDir     string
	logDir      string
	failedDir   string
	passedDir   string
	summaryFile string
	allLogsFile string
	runID       string

	collector *reporting.Collector
	raw       *reporting.JSONReporter

	mu           sync.Mutex
	sinks        []ResultSink
	asyncWriters map[string]*AsyncFile
	errs         []error
}

// NewFileLogger creates the run directory layout and the default sinks.
func NewFileLogger(logger log.Logger, baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if logger == nil {
		logger = log.Root()
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	l := &FileLogger{
		log:          logger.New("component", "filelogger"),
		baseDir:      baseDir,
		logDir:       logDir,
		failedDir:    filepath.Join(logDir, FailedDirname),
		passedDir:    filepath.Join(logDir, PassedDirname),
		summaryFile:  filepath.Join(logDir, SummaryFilename),
		allLogsFile:  filepath.Join(logDir, AllLogsFilename),
		runID:        runID,
		collector:    reporting.NewCollector(),
		asyncWriters: make(map[string]*AsyncFile),
	}

	for _, dir := range []string{baseDir, logDir, l.failedDir, l.passedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	rawFile, err := l.getAsyncWriter(filepath.Join(logDir, RawEventsFilename))
	if err != nil {
		return nil, err
	}
	l.raw = reporting.NewJSONReporter(rawFile)

	l.sinks = []ResultSink{
		&AllLogsFileSink{logger: l},
		&PerTestFileSink{logger: l},
		&TextSummarySink{logger: l},
	}
	return l, nil
}

// AddSink registers an extra sink. It must be called before the run starts.
func (l *FileLogger) AddSink(sink ResultSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.asyncWriters[path]; ok {
		return w, nil
	}
	w, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = w
	return w, nil
}

func (l *FileLogger) closeAllWriters() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for path, w := range l.asyncWriters {
		if err := w.Close(); err != nil {
			l.errs = append(l.errs, err)
			l.log.Error("Failed to close log file", "path", path, "err", err)
		}
		delete(l.asyncWriters, path)
	}
}

func (l *FileLogger) recordErr(err error, msg string, ctx ...interface{}) {
	if err == nil {
		return
	}
	l.mu.Lock()
	l.errs = append(l.errs, err)
	l.mu.Unlock()
	l.log.Error(msg, append(ctx, "err", err)...)
}

// Err returns every error seen while writing, joined.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.errs...)
}

func (l *FileLogger) ReportRunStart(runID string, total int) {
	if runID != l.runID {
		l.log.Warn("Run id differs from the log directory", "run_id", runID, "dir_run_id", l.runID)
	}
	l.log.Debug("Writing run logs", "dir", l.logDir, "tests", total)
}

func (l *FileLogger) ReportStart(desc types.TestDescriptor) {
	l.raw.ReportStart(desc)
}

func (l *FileLogger) ReportEvent(desc types.TestDescriptor, ev types.FailureEvent) {
	l.raw.ReportEvent(desc, ev)
}

func (l *FileLogger) ReportSkip(desc types.TestDescriptor, reason string) {
	l.raw.ReportSkip(desc, reason)
	l.collector.ReportSkip(desc, reason)
	l.consume(reporting.TestResult{Descriptor: desc, Status: types.TestStatusSkip, SkipReason: reason})
}

func (l *FileLogger) ReportFinish(outcome types.TestOutcome) {
	l.raw.ReportFinish(outcome)
	l.collector.ReportFinish(outcome)
	l.consume(reporting.TestResult{
		Descriptor: outcome.Descriptor,
		Status:     outcome.Status(),
		Events:     outcome.Events,
		Elapsed:    outcome.Elapsed,
	})
}

func (l *FileLogger) ReportAllTestsComplete(summary types.RunSummary) {
	l.raw.ReportAllTestsComplete(summary)
	l.collector.ReportAllTestsComplete(summary)
	l.recordErr(l.raw.Err(), "Failed to write raw events")

	for _, sink := range l.getSinks() {
		l.recordErr(sink.Complete(summary), "Sink failed to complete", "sink", fmt.Sprintf("%T", sink))
	}
	l.closeAllWriters()
	l.log.Info("Run logs written", "dir", l.logDir)
}

func (l *FileLogger) consume(result reporting.TestResult) {
	for _, sink := range l.getSinks() {
		l.recordErr(sink.Consume(result, l.runID), "Sink failed to consume result",
			"sink", fmt.Sprintf("%T", sink), "test", result.Descriptor.ID)
	}
}

func (l *FileLogger) getSinks() []ResultSink {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ResultSink(nil), l.sinks...)
}

// GetDirectoryForRunID returns the log directory of runID.
func (l *FileLogger) GetDirectoryForRunID(runID string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("runID cannot be empty")
	}
	return filepath.Join(l.baseDir, RunDirectoryPrefix+runID), nil
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetLogDir returns the directory of the current run.
func (l *FileLogger) GetLogDir() string {
	return l.logDir
}

// GetFailedDir returns the directory holding logs of failed tests.
func (l *FileLogger) GetFailedDir() string {
	return l.failedDir
}

// GetPassedDir returns the directory holding logs of passed tests.
func (l *FileLogger) GetPassedDir() string {
	return l.passedDir
}

// GetSummaryFile returns the path of summary.log.
func (l *FileLogger) GetSummaryFile() string {
	return l.summaryFile
}

// GetAllLogsFile returns the path of all.log.
func (l *FileLogger) GetAllLogsFile() string {
	return l.allLogsFile
}

// AllLogsFileSink appends every result to all.log in a boxed, human readable format.
type AllLogsFileSink struct {
	logger *FileLogger
}

func (s *AllLogsFileSink) Consume(result reporting.TestResult, runID string) error {
	writer, err := s.logger.getAsyncWriter(s.logger.allLogsFile)
	if err != nil {
		return err
	}
	_, err = writer.Write([]byte(formatResult(result)))
	return err
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(types.RunSummary) error {
	return nil
}

// PerTestFileSink writes one file per executed test into the passed or failed directory.
type PerTestFileSink struct {
	logger *FileLogger
}

func (s *PerTestFileSink) Consume(result reporting.TestResult, runID string) error {
	if result.Status == types.TestStatusSkip {
		return nil
	}
	dir := s.logger.passedDir
	if result.Status != types.TestStatusPass {
		dir = s.logger.failedDir
	}
	path := filepath.Join(dir, safeFilename(result.Descriptor.ID)+".log")
	if err := os.WriteFile(path, []byte(formatResult(result)), 0644); err != nil {
		return fmt.Errorf("failed to write test log %s: %w", path, err)
	}
	return nil
}

func (s *PerTestFileSink) Complete(types.RunSummary) error {
	return nil
}

// TextSummarySink writes the result table and totals to summary.log.
type TextSummarySink struct {
	logger *FileLogger
}

func (s *TextSummarySink) Consume(reporting.TestResult, string) error {
	return nil
}

func (s *TextSummarySink) Complete(summary types.RunSummary) error {
	formatter := reporting.NewTableFormatter("Run "+summary.RunID, true, false)
	var b strings.Builder
	b.WriteString(formatter.Format(s.logger.collector.Suites(), summary))
	b.WriteString("\n")
	b.WriteString(summary.String())
	b.WriteString("\n")
	if err := os.WriteFile(s.logger.summaryFile, []byte(stripansi.Strip(b.String())), 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", s.logger.summaryFile, err)
	}
	return nil
}

func formatResult(result reporting.TestResult) string {
	var content strings.Builder

	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ TEST: %-61s │\n", truncateString(result.Descriptor.ID, 61))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ Status:   %-57s │\n", result.Status)
	fmt.Fprintf(&content, "│ Suite:    %-57s │\n", truncateString(result.Descriptor.Suite, 57))
	fmt.Fprintf(&content, "│ Name:     %-57s │\n", truncateString(result.Descriptor.DisplayName(), 57))
	fmt.Fprintf(&content, "│ Duration: %-57s │\n", result.Elapsed)
	if !result.Descriptor.Location.IsZero() {
		fmt.Fprintf(&content, "│ Source:   %-57s │\n", truncateString(result.Descriptor.Location.String(), 57))
	}
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")

	if result.SkipReason != "" {
		fmt.Fprintf(&content, "SKIPPED: %s\n\n", stripansi.Strip(result.SkipReason))
	}

	if len(result.Events) > 0 {
		fmt.Fprintf(&content, "EVENTS:\n")
		fmt.Fprintf(&content, "~~~~~~~\n")
		for _, ev := range result.Events {
			fmt.Fprintf(&content, "%s %s\n", ev.Time.Format(time.RFC3339Nano), indentText(stripansi.Strip(ev.String()), "  "))
		}
	}

	fmt.Fprintf(&content, "\n")
	return content.String()
}

// indentText indents every line after the first
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to the specified max length
// and adds an ellipsis if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func safeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
		"[", "_", "]", "", "...", "",
	)
	return replacer.Replace(s)
}
