package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

func noop(context.Context, *check.T) error { return nil }

func newTestRegistry() *Registry {
	return New(Config{Log: log.NewLogger(log.DiscardHandler())})
}

func ids(cases []TestCase) []string {
	out := make([]string, len(cases))
	for i, tc := range cases {
		out[i] = tc.Descriptor.ID
	}
	return out
}

func TestRegistry_AddPreservesOrder(t *testing.T) {
	reg := newTestRegistry()
	require.NoError(t, reg.Add(Test("b", "second", noop), Test("a", "first", noop)))
	require.NoError(t, reg.Add(Test("", "third", noop)))

	assert.Equal(t, []string{"b.second", "a.first", "third"}, ids(reg.Cases()))
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_AddRejects(t *testing.T) {
	tests := []struct {
		name    string
		cases   []TestCase
		wantErr error
	}{
		{
			name:    "duplicate within call",
			cases:   []TestCase{Test("s", "x", noop), Test("s", "x", noop)},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "duplicate of existing",
			cases:   []TestCase{Test("s", "existing", noop)},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "empty id",
			cases:   []TestCase{{Descriptor: types.TestDescriptor{Name: "anon"}, Body: noop}},
			wantErr: ErrInvalidCase,
		},
		{
			name:    "nil body",
			cases:   []TestCase{Test("s", "nobody", nil)},
			wantErr: ErrInvalidCase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry()
			require.NoError(t, reg.Add(Test("s", "existing", noop)))

			err := reg.Add(tt.cases...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, 1, reg.Len(), "a rejected batch adds nothing")
		})
	}
}

func TestRegistry_Sealed(t *testing.T) {
	reg := newTestRegistry()
	reg.MustAdd(Test("s", "a", noop))
	reg.Seal()

	assert.True(t, reg.Sealed())
	assert.ErrorIs(t, reg.Add(Test("s", "b", noop)), ErrSealed)
	assert.Panics(t, func() { reg.MustAdd(Test("s", "c", noop)) })
}

func TestRegistry_SelectReturnsCopies(t *testing.T) {
	reg := newTestRegistry()
	reg.MustAdd(
		Test("s", "fast", noop, WithAttribute("Category", "Fast")),
		Test("s", "slow", noop, WithAttribute("Category", "Slow")),
		Test("t", "fast2", noop, WithAttribute("Category", "Fast")),
	)

	fast := reg.Select(func(d types.TestDescriptor) bool {
		v, _ := d.Attributes.Find("Category")
		return v == "Fast"
	})
	assert.Equal(t, []string{"s.fast", "t.fast2"}, ids(fast))

	fast[0].Descriptor.Attributes[0].Value = "mutated"
	tc, ok := reg.Lookup("s.fast")
	require.True(t, ok)
	assert.Equal(t, "Fast", tc.Descriptor.Attributes[0].Value)

	assert.Len(t, reg.Select(nil), 3)
	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestTest_Options(t *testing.T) {
	tc := Test("suite", "name", noop,
		WithID("custom"),
		WithTimeLimit(2*time.Second),
		WithAttribute("Owner", "infra"),
		Skip("flaky"),
	)

	assert.Equal(t, "custom", tc.Descriptor.ID)
	assert.Equal(t, "name", tc.Descriptor.Name)
	assert.Equal(t, 2*time.Second, tc.Descriptor.TimeLimit)
	reason, skipped := tc.Descriptor.SkipReason()
	assert.True(t, skipped)
	assert.Equal(t, "flaky", reason)
	assert.Equal(t, "registry_test.go", tc.Descriptor.Location.File)

	plain := Test("suite", "plain", noop)
	assert.Equal(t, types.DefaultTimeLimit, plain.Descriptor.TimeLimit)
}

func TestTheory_ExpandsRows(t *testing.T) {
	var seen []int
	cases := Theory("math", "double", []int{1, 2, 3}, func(ctx context.Context, t *check.T, row int) error {
		seen = append(seen, row*2)
		return nil
	}, WithAttribute("Category", "Math"))

	require.Len(t, cases, 3)
	assert.Equal(t, []string{"math.double[0]", "math.double[1]", "math.double[2]"}, ids(cases))
	assert.Equal(t, "double(2)", cases[1].Descriptor.Name)
	assert.True(t, cases[2].Descriptor.Attributes.Has("Category"))

	for _, tc := range cases {
		require.NoError(t, tc.Body(context.Background(), check.New(tc.Descriptor, check.NewSink())))
	}
	assert.Equal(t, []int{2, 4, 6}, seen)

	// rows do not share attribute storage
	cases[0].Descriptor.Attributes[0].Value = "changed"
	assert.Equal(t, "Math", cases[1].Descriptor.Attributes[0].Value)
}

func TestBaseID(t *testing.T) {
	assert.Equal(t, "math.add", BaseID("math.add[3]"))
	assert.Equal(t, "math.add", BaseID("math.add"))
	assert.Equal(t, "[0]", BaseID("[0]"))
	assert.Equal(t, "a[1]", BaseID("a[1][2]"))
}
