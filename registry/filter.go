package registry

import (
	"slices"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Filter selects tests by suite, id and attributes. Empty fields select
// everything. Include is an OR over its attributes; Exclude always wins.
// Skip attributes play no part in filtering: a skipped test that passes
// the filter is reported as skipped rather than dropped.
type Filter struct {
	Suites  []string
	IDs     []string // exact ids, or theory base ids selecting every row
	Include []types.Attribute
	Exclude []types.Attribute
}

// IsEmpty reports whether the filter selects every test.
func (f Filter) IsEmpty() bool {
	return len(f.Suites) == 0 && len(f.IDs) == 0 && len(f.Include) == 0 && len(f.Exclude) == 0
}

// Match reports whether d passes the filter.
func (f Filter) Match(d types.TestDescriptor) bool {
	if len(f.Exclude) > 0 && d.Attributes.MatchesAny(f.Exclude) {
		return false
	}
	if len(f.Suites) > 0 && !slices.Contains(f.Suites, d.Suite) {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, d.ID) && !slices.Contains(f.IDs, BaseID(d.ID)) {
		return false
	}
	if len(f.Include) > 0 && !d.Attributes.MatchesAny(f.Include) {
		return false
	}
	return true
}

// Predicate returns Match as a types.Predicate.
func (f Filter) Predicate() types.Predicate {
	return f.Match
}

// Merge returns a filter whose non-empty fields from other replace those of f.
func (f Filter) Merge(other Filter) Filter {
	if len(other.Suites) > 0 {
		f.Suites = other.Suites
	}
	if len(other.IDs) > 0 {
		f.IDs = other.IDs
	}
	if len(other.Include) > 0 {
		f.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		f.Exclude = other.Exclude
	}
	return f
}

// ProfileFilter builds the filter described by a resolved profile.
func ProfileFilter(p types.ProfileConfig) Filter {
	return Filter{
		Suites:  p.Suites,
		IDs:     p.IDs,
		Include: p.Include,
		Exclude: p.Exclude,
	}
}
