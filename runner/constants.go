package runner

import "time"

const (
	// TimeoutMessageFormat is the message of the event synthesized by the watchdog.
	TimeoutMessageFormat = "Test failed to complete within %d milliseconds."

	// GoexitMessage is reported for a body that called runtime.Goexit.
	GoexitMessage = "test body exited without returning (runtime.Goexit)"

	// DefaultProgressInterval is used when progress is enabled without an interval.
	DefaultProgressInterval = 30 * time.Second

	// MaxReasonableConcurrency triggers a warning, not a cap.
	MaxReasonableConcurrency = 32

	// maxShowRunning bounds the tests listed in a progress update.
	maxShowRunning = 3
)
