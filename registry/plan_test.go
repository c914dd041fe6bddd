package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

const planYAML = `
profiles:
  - id: base
    description: "Everything that is fast"
    include:
      - key: Category
        value: Fast
    time_limit: 5s
    max_concurrency: 4
  - id: nightly
    description: "Fast tests plus the slow suite"
    inherits: [base]
    suites: [slow]
    max_concurrency: 1
overrides:
  - id: slow.big
    time_limit: 0s
  - id: math.double
    skip: "tracked separately"
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlan_ResolvesProfiles(t *testing.T) {
	plan, err := LoadPlan(writePlan(t, planYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"base", "nightly"}, plan.ProfileIDs())

	nightly, err := plan.Profile("nightly")
	require.NoError(t, err)
	assert.Equal(t, []string{"slow"}, nightly.Suites)
	assert.Equal(t, []types.Attribute{{Key: "Category", Value: "Fast"}}, nightly.Include)
	require.NotNil(t, nightly.TimeLimit)
	assert.Equal(t, 5*time.Second, *nightly.TimeLimit)
	require.NotNil(t, nightly.MaxConcurrency)
	assert.Equal(t, 1, *nightly.MaxConcurrency, "child value wins")

	_, err = plan.Profile("missing")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestParsePlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "profiles:\n  - id: a\n    bogus: 1\n",
			wantErr: "field bogus not found",
		},
		{
			name:    "duplicate profile",
			content: "profiles:\n  - id: a\n  - id: a\n",
			wantErr: `duplicate profile "a"`,
		},
		{
			name:    "circular inheritance",
			content: "profiles:\n  - id: a\n    inherits: [b]\n  - id: b\n    inherits: [a]\n",
			wantErr: "circular inheritance",
		},
		{
			name:    "missing parent",
			content: "profiles:\n  - id: a\n    inherits: [ghost]\n",
			wantErr: `non-existent profile "ghost"`,
		},
		{
			name:    "negative concurrency",
			content: "profiles:\n  - id: a\n    max_concurrency: -1\n",
			wantErr: "must not be negative",
		},
		{
			name:    "duplicate override",
			content: "overrides:\n  - id: x\n  - id: x\n",
			wantErr: `duplicate override for "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadPlan_MissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading plan file")
}

func TestPlan_Apply(t *testing.T) {
	reg := newTestRegistry()
	reg.MustAdd(Test("slow", "big", noop, WithTimeLimit(time.Minute)))
	reg.MustAdd(Theory("math", "double", []int{1, 2}, nil)...)
	reg.Seal()

	plan, err := ParsePlan([]byte(planYAML))
	require.NoError(t, err)

	cases, err := plan.Apply(reg)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	assert.Equal(t, time.Duration(0), cases[0].Descriptor.TimeLimit)
	for _, tc := range cases[1:] {
		reason, ok := tc.Descriptor.SkipReason()
		assert.True(t, ok, tc.Descriptor.ID)
		assert.Equal(t, "tracked separately", reason)
	}

	original, _ := reg.Lookup("slow.big")
	assert.Equal(t, time.Minute, original.Descriptor.TimeLimit, "registry is not modified")
}

func TestPlan_ApplyUnknownOverride(t *testing.T) {
	reg := newTestRegistry()
	reg.MustAdd(Test("s", "a", noop))

	plan, err := ParsePlan([]byte("overrides:\n  - id: s.b\n    skip: nope\n"))
	require.NoError(t, err)

	_, err = plan.Apply(reg)
	assert.ErrorIs(t, err, ErrUnknownTest)
}
