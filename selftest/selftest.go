// Package selftest holds suites that exercise every feature of the harness.
// Suites registered by Register pass; suites registered by RegisterFailures
// carry the demo=failure attribute and fail in each of the ways a body can.
package selftest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

const (
	DemoAttribute = "demo"
	DemoFailure   = "failure"
)

// Register adds the passing suites.
func Register(reg *registry.Registry) error {
	var cases []registry.TestCase
	cases = append(cases, arithmetic()...)
	cases = append(cases, diagnostics()...)
	cases = append(cases, timing()...)
	cases = append(cases, skipped()...)
	return reg.Add(cases...)
}

// RegisterFailures adds the failing demo suites.
func RegisterFailures(reg *registry.Registry) error {
	return reg.Add(failures()...)
}

func arithmetic() []registry.TestCase {
	cases := []registry.TestCase{
		registry.Test("arith", "add", func(ctx context.Context, t *check.T) error {
			t.AssertEqual(4, 2+2)
			t.AssertNotEqual(5, 2+2)
			return nil
		}, registry.WithAttribute("area", "math")),
		registry.Test("arith", "parse", func(ctx context.Context, t *check.T) error {
			var n int
			_, err := fmt.Sscanf("42", "%d", &n)
			t.AssertNoError(err)
			t.AssertEqual(42, n)
			_, err = fmt.Sscanf("x", "%d", &n)
			t.AssertError(err, "parsing a letter as a number")
			return nil
		}, registry.WithAttribute("area", "math")),
	}

	type pair struct{ in, want int }
	cases = append(cases, registry.Theory("arith", "double", []pair{{1, 2}, {2, 4}, {21, 42}},
		func(ctx context.Context, t *check.T, p pair) error {
			t.AssertEqual(p.want, p.in*2)
			return nil
		}, registry.WithAttribute("area", "math"))...)

	cases = append(cases, registry.Theory("arith", "upper", []string{"a", "harness"},
		func(ctx context.Context, t *check.T, s string) error {
			t.CheckEqual(strings.ToUpper(s), strings.ToUpper(strings.ToLower(s)))
			t.Check(len(strings.ToUpper(s)) == len(s), "length is preserved")
			return nil
		})...)
	return cases
}

func diagnostics() []registry.TestCase {
	return []registry.TestCase{
		registry.Test("diag", "levels", func(ctx context.Context, t *check.T) error {
			t.Debugf("running %s", t.Name())
			t.Log("informational events never fail a test")
			t.Warn("neither do warnings")
			return nil
		}),
		registry.Test("diag", "scoped_event", func(ctx context.Context, t *check.T) error {
			ev := t.Event(types.SeverityInfo).Messagef("leaving %s", t.Name())
			defer ev.Send()
			t.AssertPanics(func() { panic("expected") })
			return nil
		}),
	}
}

func timing() []registry.TestCase {
	return []registry.TestCase{
		registry.Test("timing", "honours_context", func(ctx context.Context, t *check.T) error {
			select {
			case <-time.After(10 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return context.Cause(ctx)
			}
		}, registry.WithTimeLimit(5*time.Second)),
		registry.Test("timing", "unlimited", func(ctx context.Context, t *check.T) error {
			time.Sleep(5 * time.Millisecond)
			return nil
		}, registry.WithTimeLimit(0)),
	}
}

func skipped() []registry.TestCase {
	return []registry.TestCase{
		registry.Test("skips", "needs_network", func(ctx context.Context, t *check.T) error {
			t.Fail("skipped tests never run")
			return nil
		}, registry.Skip("requires network access")),
	}
}

func failures() []registry.TestCase {
	demo := registry.WithAttribute(DemoAttribute, DemoFailure)
	var nilMap map[string]int

	return []registry.TestCase{
		registry.Test("demo", "checks", func(ctx context.Context, t *check.T) error {
			t.Check(false, "first check")
			t.CheckEqual("a", "b", "second check")
			t.CheckNoError(errors.New("boom"), "third check")
			return nil
		}, demo),
		registry.Test("demo", "assertion", func(ctx context.Context, t *check.T) error {
			t.AssertEqual(1, 2, "one is not two")
			t.Log("never reached")
			return nil
		}, demo),
		registry.Test("demo", "returned_error", func(ctx context.Context, t *check.T) error {
			return errors.New("body returned an error")
		}, demo),
		registry.Test("demo", "crash", func(ctx context.Context, t *check.T) error {
			nilMap["x"] = 1
			return nil
		}, demo),
		registry.Test("demo", "goexit", func(ctx context.Context, t *check.T) error {
			runtime.Goexit()
			return nil
		}, demo),
		registry.Test("demo", "timeout", func(ctx context.Context, t *check.T) error {
			time.Sleep(500 * time.Millisecond)
			return nil
		}, demo, registry.WithTimeLimit(20*time.Millisecond)),
	}
}
