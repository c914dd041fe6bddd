package types

import (
	"fmt"
	"time"
)

// PlanConfig is the on-disk description of how a registry should be run.
type PlanConfig struct {
	Profiles  []ProfileConfig  `yaml:"profiles"`
	Overrides []OverrideConfig `yaml:"overrides,omitempty"`
}

// ProfileConfig selects a subset of the registry and the run-wide settings to use with it
type ProfileConfig struct {
	ID             string         `yaml:"id"`
	Description    string         `yaml:"description"`
	Inherits       []string       `yaml:"inherits,omitempty"`
	Suites         []string       `yaml:"suites,omitempty"`
	IDs            []string       `yaml:"ids,omitempty"`
	Include        []Attribute    `yaml:"include,omitempty"`
	Exclude        []Attribute    `yaml:"exclude,omitempty"`
	TimeLimit      *time.Duration `yaml:"time_limit,omitempty"`
	MaxConcurrency *int           `yaml:"max_concurrency,omitempty"`
}

// OverrideConfig adjusts the metadata of one registered test.
type OverrideConfig struct {
	ID         string         `yaml:"id"`
	TimeLimit  *time.Duration `yaml:"time_limit,omitempty"`
	Attributes []Attribute    `yaml:"attributes,omitempty"`
	Skip       string         `yaml:"skip,omitempty"`
}

// ResolveInherited merges selections from the profiles named in Inherits.
//
// Inheritance is depth-first, so more distant ancestors are merged before
// closer ones. Selection lists are unioned with deduplication; scalar
// settings (time limit, concurrency) are only taken from a parent when the
// child leaves them unset.
func (p *ProfileConfig) ResolveInherited(profiles map[string]ProfileConfig) error {
	processed := make(map[string]bool)
	return p.resolveInheritedRecursive(profiles, processed)
}

func (p *ProfileConfig) resolveInheritedRecursive(profiles map[string]ProfileConfig, processed map[string]bool) error {
	if len(p.Inherits) == 0 {
		return nil
	}

	suites := newStringSet(p.Suites)
	ids := newStringSet(p.IDs)
	include := newAttributeSet(p.Include)
	exclude := newAttributeSet(p.Exclude)

	for _, inheritFrom := range p.Inherits {
		if processed[inheritFrom] {
			return fmt.Errorf("circular inheritance detected for profile %q", inheritFrom)
		}

		parent, ok := profiles[inheritFrom]
		if !ok {
			return fmt.Errorf("profile %q inherits from non-existent profile %q", p.ID, inheritFrom)
		}

		processed[inheritFrom] = true
		if err := parent.resolveInheritedRecursive(profiles, processed); err != nil {
			return fmt.Errorf("resolving inheritance for parent profile %q: %w", inheritFrom, err)
		}
		processed[inheritFrom] = false

		suites.add(parent.Suites...)
		ids.add(parent.IDs...)
		include.add(parent.Include...)
		exclude.add(parent.Exclude...)
		if p.TimeLimit == nil {
			p.TimeLimit = parent.TimeLimit
		}
		if p.MaxConcurrency == nil {
			p.MaxConcurrency = parent.MaxConcurrency
		}
	}

	p.Suites = suites.items
	p.IDs = ids.items
	p.Include = include.items
	p.Exclude = exclude.items
	return nil
}

type stringSet struct {
	seen  map[string]bool
	items []string
}

func newStringSet(initial []string) *stringSet {
	s := &stringSet{seen: make(map[string]bool)}
	s.add(initial...)
	return s
}

func (s *stringSet) add(values ...string) {
	for _, v := range values {
		if !s.seen[v] {
			s.seen[v] = true
			s.items = append(s.items, v)
		}
	}
}

type attributeSet struct {
	seen  map[Attribute]bool
	items []Attribute
}

func newAttributeSet(initial []Attribute) *attributeSet {
	s := &attributeSet{seen: make(map[Attribute]bool)}
	s.add(initial...)
	return s
}

func (s *attributeSet) add(values ...Attribute) {
	for _, v := range values {
		if !s.seen[v] {
			s.seen[v] = true
			s.items = append(s.items, v)
		}
	}
}
