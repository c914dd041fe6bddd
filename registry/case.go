package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Option adjusts the descriptor built by Test and Theory.
type Option func(*types.TestDescriptor)

// WithID replaces the generated id.
func WithID(id string) Option {
	return func(d *types.TestDescriptor) { d.ID = id }
}

// WithAttributes appends attributes.
func WithAttributes(attrs ...types.Attribute) Option {
	return func(d *types.TestDescriptor) { d.Attributes = d.Attributes.With(attrs...) }
}

// WithAttribute appends a single key/value attribute.
func WithAttribute(key, value string) Option {
	return WithAttributes(types.Attribute{Key: key, Value: value})
}

// WithTimeLimit sets an explicit limit. Zero disables the watchdog for this
// test even when the run has a default limit.
func WithTimeLimit(limit time.Duration) Option {
	return func(d *types.TestDescriptor) { d.TimeLimit = limit }
}

// Skip marks the test as skipped with the given reason.
func Skip(reason string) Option {
	return WithAttribute(types.AttributeSkip, reason)
}

// Test builds a case named name in suite. The id defaults to "suite.name"
// and the location to the line calling Test.
func Test(suite, name string, body check.TestFunc, opts ...Option) TestCase {
	desc := newDescriptor(suite, name, check.Caller(1))
	for _, opt := range opts {
		opt(&desc)
	}
	return TestCase{Descriptor: desc, Body: body}
}

// Theory expands one parameterized body into an independent case per row.
// Row ids are "<id>[<n>]" and row names "<name>(<row>)", with the row
// rendered by fmt.Sprint so Stringer implementations are honoured.
func Theory[R any](suite, name string, rows []R, fn func(ctx context.Context, t *check.T, row R) error, opts ...Option) []TestCase {
	base := newDescriptor(suite, name, check.Caller(1))
	for _, opt := range opts {
		opt(&base)
	}

	cases := make([]TestCase, 0, len(rows))
	for i, row := range rows {
		desc := base.Clone()
		desc.ID = fmt.Sprintf("%s[%d]", base.ID, i)
		desc.Name = fmt.Sprintf("%s(%v)", base.DisplayName(), row)
		cases = append(cases, TestCase{
			Descriptor: desc,
			Body: func(ctx context.Context, t *check.T) error {
				return fn(ctx, t, row)
			},
		})
	}
	return cases
}

func newDescriptor(suite, name string, loc types.SourceLocation) types.TestDescriptor {
	id := name
	if suite != "" {
		id = suite + "." + name
	}
	return types.TestDescriptor{
		ID:        id,
		Name:      name,
		Suite:     suite,
		TimeLimit: types.DefaultTimeLimit,
		Location:  loc,
	}
}

// BaseID strips a theory row suffix, so "math.add[3]" becomes "math.add".
func BaseID(id string) string {
	if strings.HasSuffix(id, "]") {
		if i := strings.LastIndex(id, "["); i > 0 {
			return id[:i]
		}
	}
	return id
}
