// Package check is the test-authoring surface of the harness.
//
// A test body receives a *T. Non-fatal helpers (Check*, Warn*, Log*, Debug*)
// record an event on the test's Sink and return, so any number of them may
// fire in one run. Fatal helpers (Assert*, Fail*) raise a *Failure, which
// stops the remaining statements of the body; the scheduler converts it into
// a single Assert-severity event.
//
// Fatal helpers must be called from the goroutine running the body, for the
// same reason testing.T.FailNow must.
package check
