package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrUnknownTest    = errors.New("unknown test")
)

// Plan is a loaded plan file with every profile's inheritance resolved.
type Plan struct {
	profiles  map[string]types.ProfileConfig
	overrides []types.OverrideConfig
}

// LoadPlan reads and resolves a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	log.Debug("Reading plan file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	plan, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("plan file %s: %w", path, err)
	}
	return plan, nil
}

// ParsePlan decodes a YAML plan. Unknown fields are rejected.
func ParsePlan(data []byte) (*Plan, error) {
	var cfg types.PlanConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	return NewPlan(cfg)
}

// NewPlan validates cfg and resolves profile inheritance.
func NewPlan(cfg types.PlanConfig) (*Plan, error) {
	profiles := make(map[string]types.ProfileConfig, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		if p.ID == "" {
			return nil, errors.New("profile with empty id")
		}
		if _, dup := profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.ID)
		}
		profiles[p.ID] = p
	}

	resolved := make(map[string]types.ProfileConfig, len(profiles))
	for id, p := range profiles {
		if err := p.ResolveInherited(profiles); err != nil {
			return nil, fmt.Errorf("invalid profile inheritance: %w", err)
		}
		if p.MaxConcurrency != nil && *p.MaxConcurrency < 0 {
			return nil, fmt.Errorf("profile %q: max_concurrency must not be negative", id)
		}
		resolved[id] = p
	}

	seen := make(map[string]bool, len(cfg.Overrides))
	for _, o := range cfg.Overrides {
		if o.ID == "" {
			return nil, errors.New("override with empty id")
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("duplicate override for %q", o.ID)
		}
		seen[o.ID] = true
	}

	return &Plan{profiles: resolved, overrides: cfg.Overrides}, nil
}

// Profile returns the resolved profile with the given id.
func (p *Plan) Profile(id string) (types.ProfileConfig, error) {
	profile, ok := p.profiles[id]
	if !ok {
		return types.ProfileConfig{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProfile, id, p.ProfileIDs())
	}
	return profile, nil
}

// ProfileIDs returns the sorted ids of every profile.
func (p *Plan) ProfileIDs() []string {
	ids := make([]string, 0, len(p.profiles))
	for id := range p.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply returns the registered cases with the plan's overrides applied.
// The registry itself is left untouched. An override naming a theory's base
// id applies to every row; an override matching no test is an error.
func (p *Plan) Apply(reg *Registry) ([]TestCase, error) {
	cases := reg.Cases()
	for _, o := range p.overrides {
		matched := false
		for i := range cases {
			d := &cases[i].Descriptor
			if d.ID != o.ID && BaseID(d.ID) != o.ID {
				continue
			}
			matched = true
			if o.TimeLimit != nil {
				d.TimeLimit = *o.TimeLimit
			}
			d.Attributes = d.Attributes.With(o.Attributes...)
			if o.Skip != "" {
				d.Attributes = d.Attributes.With(types.Attribute{Key: types.AttributeSkip, Value: o.Skip})
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: override for %q", ErrUnknownTest, o.ID)
		}
	}
	return cases, nil
}
