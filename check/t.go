package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// TestFunc is the body of a test. A non-nil error is a fatal generic fault.
type TestFunc func(ctx context.Context, t *T) error

// T is the handle a test body uses to emit events and raise failures.
type T struct {
	desc types.TestDescriptor
	sink *Sink
}

// New returns a handle that records into sink.
func New(desc types.TestDescriptor, sink *Sink) *T {
	return &T{desc: desc, sink: sink}
}

// Descriptor returns the metadata of the running test.
func (t *T) Descriptor() types.TestDescriptor {
	return t.desc
}

// Name returns the display name of the running test.
func (t *T) Name() string {
	return t.desc.DisplayName()
}

func (t *T) record(sev types.Severity, call, msg string, cmp *types.Comparison) {
	t.sink.Append(types.FailureEvent{
		Severity:   sev,
		Kind:       types.KindForSeverity(sev),
		Message:    msg,
		Call:       call,
		Comparison: cmp,
		Location:   callerLocation(),
		Time:       time.Now(),
	})
}

func (t *T) raise(call, msg string, cmp *types.Comparison, msgAndArgs []any) {
	panic(&Failure{
		Call:          call,
		Message:       msg,
		CustomMessage: messageFromMsgAndArgs(msgAndArgs...),
		Comparison:    cmp,
		Location:      callerLocation(),
	})
}

// Emit records a non-fatal event. Fatal severities are downgraded to Check,
// since only Assert* and Fail* may stop a body.
func (t *T) Emit(sev types.Severity, msg string) {
	if sev.IsFatal() {
		sev = types.SeverityCheck
	}
	t.record(sev, "", msg, nil)
}

func (t *T) Debug(args ...any)                 { t.record(types.SeverityDebug, "", fmt.Sprint(args...), nil) }
func (t *T) Debugf(format string, args ...any) { t.record(types.SeverityDebug, "", fmt.Sprintf(format, args...), nil) }
func (t *T) Log(args ...any)                   { t.record(types.SeverityInfo, "", fmt.Sprint(args...), nil) }
func (t *T) Logf(format string, args ...any)   { t.record(types.SeverityInfo, "", fmt.Sprintf(format, args...), nil) }
func (t *T) Warn(args ...any)                  { t.record(types.SeverityWarning, "", fmt.Sprint(args...), nil) }
func (t *T) Warnf(format string, args ...any)  { t.record(types.SeverityWarning, "", fmt.Sprintf(format, args...), nil) }

// Errorf records a Check failure and continues.
func (t *T) Errorf(format string, args ...any) {
	t.record(types.SeverityCheck, "Errorf", fmt.Sprintf(format, args...), nil)
}

// Check records a Check failure when cond is false. It returns cond.
func (t *T) Check(cond bool, msgAndArgs ...any) bool {
	if !cond {
		t.record(types.SeverityCheck, "Check", joinMessages("condition is false", messageFromMsgAndArgs(msgAndArgs...)), nil)
	}
	return cond
}

// CheckEqual records a Check failure when the values differ.
func (t *T) CheckEqual(expected, actual any, msgAndArgs ...any) bool {
	if assert.ObjectsAreEqual(expected, actual) {
		return true
	}
	t.record(types.SeverityCheck, "CheckEqual", joinMessages("values are not equal", messageFromMsgAndArgs(msgAndArgs...)), render(expected, actual))
	return false
}

// CheckNoError records a Check failure when err is not nil.
func (t *T) CheckNoError(err error, msgAndArgs ...any) bool {
	if err == nil {
		return true
	}
	t.record(types.SeverityCheck, "CheckNoError", joinMessages(fmt.Sprintf("unexpected error: %v", err), messageFromMsgAndArgs(msgAndArgs...)), nil)
	return false
}

// Assert stops the test when cond is false.
func (t *T) Assert(cond bool, msgAndArgs ...any) {
	if !cond {
		t.raise("Assert", "condition is false", nil, msgAndArgs)
	}
}

// AssertEqual stops the test when the values differ.
func (t *T) AssertEqual(expected, actual any, msgAndArgs ...any) {
	if !assert.ObjectsAreEqual(expected, actual) {
		t.raise("AssertEqual", "values are not equal", render(expected, actual), msgAndArgs)
	}
}

// AssertNotEqual stops the test when the values are equal.
func (t *T) AssertNotEqual(unexpected, actual any, msgAndArgs ...any) {
	if assert.ObjectsAreEqual(unexpected, actual) {
		t.raise("AssertNotEqual", fmt.Sprintf("values should differ, both are %v", actual), nil, msgAndArgs)
	}
}

// AssertNoError stops the test when err is not nil.
func (t *T) AssertNoError(err error, msgAndArgs ...any) {
	if err != nil {
		t.raise("AssertNoError", fmt.Sprintf("unexpected error: %v", err), nil, msgAndArgs)
	}
}

// AssertError stops the test when err is nil.
func (t *T) AssertError(err error, msgAndArgs ...any) {
	if err == nil {
		t.raise("AssertError", "expected an error, got nil", nil, msgAndArgs)
	}
}

// AssertPanics stops the test unless fn panics.
func (t *T) AssertPanics(fn func(), msgAndArgs ...any) {
	if didPanic, _ := runRecovering(fn); !didPanic {
		t.raise("AssertPanics", "function did not panic", nil, msgAndArgs)
	}
}

// Fail stops the test unconditionally.
func (t *T) Fail(msg string) {
	t.raise("Fail", msg, nil, nil)
}

// Failf stops the test unconditionally with a formatted message.
func (t *T) Failf(format string, args ...any) {
	t.raise("Fail", fmt.Sprintf(format, args...), nil, nil)
}

func runRecovering(fn func()) (didPanic bool, value any) {
	didPanic = true
	defer func() {
		if didPanic {
			value = recover()
		}
	}()
	fn()
	didPanic = false
	return
}

// PendingEvent is an event under construction. Send delivers it exactly once,
// so the usual pattern is
//
//	ev := t.Event(types.SeverityWarning).Messagef("retrying %s", name)
//	defer ev.Send()
//
// and the event reaches the sink when the enclosing function returns,
// including when it unwinds because of a failure.
type PendingEvent struct {
	t     *T
	once  sync.Once
	mu    sync.Mutex
	event types.FailureEvent
}

// Event starts building a non-fatal event. Fatal severities become Check.
func (t *T) Event(sev types.Severity) *PendingEvent {
	if sev.IsFatal() {
		sev = types.SeverityCheck
	}
	return &PendingEvent{
		t: t,
		event: types.FailureEvent{
			Severity: sev,
			Kind:     types.KindForSeverity(sev),
			Location: callerLocation(),
		},
	}
}

// Messagef sets the message of the event.
func (p *PendingEvent) Messagef(format string, args ...any) *PendingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.event.Message = fmt.Sprintf(format, args...)
	return p
}

// Compare attaches rendered expected and actual values.
func (p *PendingEvent) Compare(expected, actual any) *PendingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.event.Comparison = render(expected, actual)
	return p
}

// Send delivers the event. Calls after the first are no-ops.
func (p *PendingEvent) Send() {
	p.once.Do(func() {
		p.mu.Lock()
		ev := p.event
		p.mu.Unlock()
		ev.Time = time.Now()
		p.t.sink.Append(ev)
	})
}
