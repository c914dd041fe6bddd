// Package runner executes registered tests in-process.
//
// The main components are:
//   - Scheduler: filters cases, admits them under a concurrency cap and waits on the completion barrier
//   - the per-test supervisor: runs a body on its own goroutine, races it against the time limit and classifies the outcome
//   - Reporter: the lifecycle callbacks a run drives, serialized per callback kind
//   - ProgressReporter: periodic progress logging while a run is in flight
//
// A body that outlives its time limit is reported as timed out and left
// running detached; its context is cancelled so cooperative bodies can return.
package runner
