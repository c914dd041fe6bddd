package check

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Failure is the fatal signal raised by assertion helpers.
type Failure struct {
	Call          string // helper that failed, e.g. "AssertEqual"
	Message       string // what the helper checked
	CustomMessage string // message supplied by the test author
	Comparison    *types.Comparison
	Location      types.SourceLocation
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Call)
	b.WriteString(" failed")
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.CustomMessage != "" {
		b.WriteString(": ")
		b.WriteString(f.CustomMessage)
	}
	if f.Comparison != nil {
		fmt.Fprintf(&b, " (expected: %s, actual: %s)", f.Comparison.Expected, f.Comparison.Actual)
	}
	return b.String()
}

// Event converts the signal into the event reported for it.
func (f *Failure) Event() types.FailureEvent {
	return types.FailureEvent{
		Severity:   types.SeverityAssert,
		Kind:       types.KindAssertionFailure,
		Message:    joinMessages(f.Message, f.CustomMessage),
		Call:       f.Call,
		Comparison: f.Comparison,
		Location:   f.Location,
		Time:       time.Now(),
	}
}

func joinMessages(base, custom string) string {
	switch {
	case base == "":
		return custom
	case custom == "":
		return base
	default:
		return custom + ": " + base
	}
}

// messageFromMsgAndArgs follows testify's convention: a single value is used
// as-is, more than one is treated as a format string and its arguments.
func messageFromMsgAndArgs(msgAndArgs ...any) string {
	switch len(msgAndArgs) {
	case 0:
		return ""
	case 1:
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%+v", msgAndArgs[0])
	default:
		if format, ok := msgAndArgs[0].(string); ok {
			return fmt.Sprintf(format, msgAndArgs[1:]...)
		}
		parts := make([]string, len(msgAndArgs))
		for i, a := range msgAndArgs {
			parts[i] = fmt.Sprintf("%+v", a)
		}
		return strings.Join(parts, " ")
	}
}

// render formats both operands, switching to %#v when %v cannot tell them apart.
func render(expected, actual any) *types.Comparison {
	e, a := fmt.Sprintf("%v", expected), fmt.Sprintf("%v", actual)
	if e == a {
		e, a = fmt.Sprintf("%#v", expected), fmt.Sprintf("%#v", actual)
	}
	return &types.Comparison{Expected: e, Actual: a}
}
