package check

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

func newT() (*T, *Sink) {
	sink := NewSink()
	return New(types.TestDescriptor{ID: "id", Name: "Name"}, sink), sink
}

// catchFailure runs fn and returns the *Failure it raised, if any.
func catchFailure(t *testing.T, fn func()) *Failure {
	t.Helper()
	var failure *Failure
	func() {
		defer func() {
			if r := recover(); r != nil {
				f, ok := r.(*Failure)
				require.True(t, ok, "expected *Failure, got %T", r)
				failure = f
			}
		}()
		fn()
	}()
	return failure
}

func TestT_NonFatalHelpersRecordInOrder(t *testing.T) {
	tt, sink := newT()

	tt.Debug("d")
	tt.Logf("i %d", 1)
	tt.Warn("w")
	assert.False(t, tt.Check(false, "first"))
	assert.True(t, tt.Check(true, "not recorded"))
	assert.False(t, tt.CheckEqual(1, 2))
	assert.False(t, tt.CheckNoError(errors.New("boom")))
	tt.Errorf("custom %s", "check")

	events := sink.Events()
	require.Len(t, events, 7)

	wantSeverities := []types.Severity{
		types.SeverityDebug, types.SeverityInfo, types.SeverityWarning,
		types.SeverityCheck, types.SeverityCheck, types.SeverityCheck, types.SeverityCheck,
	}
	for i, ev := range events {
		assert.Equal(t, wantSeverities[i], ev.Severity, "event %d", i)
	}
	assert.Equal(t, "i 1", events[1].Message)
	assert.Equal(t, "first: condition is false", events[3].Message)
	assert.Equal(t, types.KindCheckFailure, events[3].Kind)
	require.NotNil(t, events[4].Comparison)
	assert.Equal(t, "1", events[4].Comparison.Expected)
	assert.Equal(t, "2", events[4].Comparison.Actual)
	assert.Contains(t, events[5].Message, "boom")
	assert.Equal(t, "custom check", events[6].Message)
	assert.Equal(t, "t_test.go", events[0].Location.File, "location points at the caller")
}

func TestT_FatalHelpersRaiseFailure(t *testing.T) {
	tt, sink := newT()

	tests := []struct {
		name     string
		fn       func()
		wantCall string
	}{
		{name: "Assert", fn: func() { tt.Assert(false, "must hold") }, wantCall: "Assert"},
		{name: "AssertEqual", fn: func() { tt.AssertEqual("a", "b") }, wantCall: "AssertEqual"},
		{name: "AssertNotEqual", fn: func() { tt.AssertNotEqual(3, 3) }, wantCall: "AssertNotEqual"},
		{name: "AssertNoError", fn: func() { tt.AssertNoError(errors.New("x")) }, wantCall: "AssertNoError"},
		{name: "AssertError", fn: func() { tt.AssertError(nil) }, wantCall: "AssertError"},
		{name: "AssertPanics", fn: func() { tt.AssertPanics(func() {}) }, wantCall: "AssertPanics"},
		{name: "Fail", fn: func() { tt.Fail("stop") }, wantCall: "Fail"},
		{name: "Failf", fn: func() { tt.Failf("stop %d", 2) }, wantCall: "Fail"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := catchFailure(t, tc.fn)
			require.NotNil(t, f)
			assert.Equal(t, tc.wantCall, f.Call)
			assert.Equal(t, types.SeverityAssert, f.Event().Severity)
			assert.Equal(t, types.KindAssertionFailure, f.Event().Kind)
		})
	}

	assert.Empty(t, sink.Events(), "fatal helpers do not write to the sink themselves")
}

func TestT_PassingAssertionsDoNotRaise(t *testing.T) {
	tt, _ := newT()
	f := catchFailure(t, func() {
		tt.Assert(true)
		tt.AssertEqual([]int{1, 2}, []int{1, 2})
		tt.AssertNotEqual(1, 2)
		tt.AssertNoError(nil)
		tt.AssertError(errors.New("expected"))
		tt.AssertPanics(func() { panic("yes") })
	})
	assert.Nil(t, f)
}

func TestFailure_MessageAndComparison(t *testing.T) {
	tt, _ := newT()
	f := catchFailure(t, func() { tt.AssertEqual("1", 1, "ids %s", "differ") })
	require.NotNil(t, f)

	assert.Equal(t, "ids differ", f.CustomMessage)
	require.NotNil(t, f.Comparison)
	assert.Equal(t, `"1"`, f.Comparison.Expected)
	assert.Equal(t, "1", f.Comparison.Actual)

	ev := f.Event()
	assert.Equal(t, "ids differ: values are not equal", ev.Message)
	assert.Equal(t, "AssertEqual", ev.Call)
	assert.Contains(t, f.Error(), "AssertEqual failed")
}

func TestMessageFromMsgAndArgs(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{name: "empty", args: nil, want: ""},
		{name: "plain string", args: []any{"hello"}, want: "hello"},
		{name: "single value", args: []any{42}, want: "42"},
		{name: "format and args", args: []any{"check %d of %s", 3, "five"}, want: "check 3 of five"},
		{name: "values without format", args: []any{1, "two", 3.5}, want: "1 two 3.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, messageFromMsgAndArgs(tc.args...))
		})
	}
}

func TestT_EmitDowngradesFatal(t *testing.T) {
	tt, sink := newT()
	tt.Emit(types.SeverityFatal, "not allowed to abort")
	tt.Emit(types.SeverityInfo, "info")

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, types.SeverityCheck, events[0].Severity)
	assert.Equal(t, types.SeverityInfo, events[1].Severity)
}

func TestPendingEvent_DeliveredOnceOnScopeExit(t *testing.T) {
	tt, sink := newT()

	func() {
		ev := tt.Event(types.SeverityWarning).Messagef("retrying %s", "dial")
		defer ev.Send()
		defer ev.Send()
		assert.Empty(t, sink.Events(), "nothing delivered before the scope exits")
	}()

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "retrying dial", events[0].Message)
	assert.Equal(t, types.SeverityWarning, events[0].Severity)
}

func TestPendingEvent_DeliveredWhenScopeUnwinds(t *testing.T) {
	tt, sink := newT()

	f := catchFailure(t, func() {
		ev := tt.Event(types.SeverityCheck).Messagef("partial result").Compare(3, 4)
		defer ev.Send()
		tt.Fail("abort")
	})

	require.NotNil(t, f)
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "partial result", events[0].Message)
	require.NotNil(t, events[0].Comparison)
	assert.Equal(t, "3", events[0].Comparison.Expected)
}

func TestSink_SealDropsLateEvents(t *testing.T) {
	sink := NewSink()
	require.True(t, sink.Append(types.FailureEvent{Message: "early"}))

	sealed := sink.Seal()
	require.Len(t, sealed, 1)

	assert.False(t, sink.Append(types.FailureEvent{Message: "late"}))
	assert.Equal(t, 1, sink.Dropped())
	assert.Len(t, sink.Events(), 1)
}

func TestSink_ConcurrentAppends(t *testing.T) {
	sink := NewSink()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Append(types.FailureEvent{Severity: types.SeverityInfo})
		}()
	}
	wg.Wait()
	assert.Len(t, sink.Events(), 50)
}
