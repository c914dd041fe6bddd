package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

const (
	MetricsNamespace = "op_harness"
)

var (
	Debug        bool = true
	validResults      = []types.TestStatus{
		types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip,
		types.TestStatusError, types.TestStatusTimeout,
	}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of resolved tests by suite and result",
	}, []string{
		"suite",
		"result",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of executed tests",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{
		"suite",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "events_total",
		Help:      "Count of reported test events",
	}, []string{
		"severity",
		"kind",
	})

	testsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_in_flight",
		Help:      "Number of test bodies currently admitted",
	})

	detachedBodies = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "detached_bodies",
		Help:      "Number of timed-out test bodies still running",
	})

	droppedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dropped_events_total",
		Help:      "Events emitted by test bodies after their outcome was finalized",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of a test run",
	}, []string{
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of executed tests per run",
	}, []string{
		"run_id",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed tests per run",
	}, []string{
		"run_id",
	})

	runTestSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_skipped",
		Help:      "Number of skipped tests per run",
	}, []string{
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of a test run in seconds",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTestResult counts a resolved test. Skipped tests pass a zero duration
// and are not observed in the duration histogram.
func RecordTestResult(suite string, result types.TestStatus, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordTestResult - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"suite", suite,
			"result", result,
			"duration", duration)
	}
	testsTotal.WithLabelValues(suite, string(result)).Inc()
	if result != types.TestStatusSkip {
		testDuration.WithLabelValues(suite).Observe(duration.Seconds())
	}
}

func RecordEvent(severity types.Severity, kind types.FailureKind) {
	eventsTotal.WithLabelValues(severity.String(), string(kind)).Inc()
}

func RecordTestStarted() {
	testsInFlight.Inc()
}

func RecordTestEnded() {
	testsInFlight.Dec()
}

// RecordDetached tracks a body the watchdog stopped waiting for. Call the
// returned func when the body eventually returns.
func RecordDetached() func() {
	detachedBodies.Inc()
	return detachedBodies.Dec
}

func RecordDroppedEvents(n int) {
	if n > 0 {
		droppedEventsTotal.Add(float64(n))
	}
}

func RecordRun(summary types.RunSummary) {
	runResults.WithLabelValues(summary.RunID, string(summary.Status())).Set(1)
	runTestTotal.WithLabelValues(summary.RunID).Add(float64(summary.TotalRun))
	runTestFailed.WithLabelValues(summary.RunID).Add(float64(summary.Failed))
	runTestSkipped.WithLabelValues(summary.RunID).Add(float64(summary.Skipped))
	runDuration.WithLabelValues(summary.RunID).Set(summary.TotalElapsed.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
