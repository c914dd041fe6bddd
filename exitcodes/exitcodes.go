// Package exitcodes defines the exit codes of harness binaries.
package exitcodes

// * Success (0): every selected test passed or was skipped
// * TestFailure (1): one or more tests failed, timed out or crashed
// * RuntimeErr (2): the run could not be set up (bad flags, plan file, registry)
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
