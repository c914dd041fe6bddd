package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

var (
	ErrDuplicateID = errors.New("duplicate test id")
	ErrSealed      = errors.New("registry is sealed")
	ErrInvalidCase = errors.New("invalid test case")
)

// TestCase pairs a descriptor with the body that implements it.
type TestCase struct {
	Descriptor types.TestDescriptor
	Body       check.TestFunc
}

// Registry holds the ordered set of registered tests. It is populated once
// and read-only after Seal.
type Registry struct {
	config Config
	cases  []TestCase
	index  map[string]int
	sealed bool
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Registry{
		config: cfg,
		index:  make(map[string]int),
	}
}

// Add registers cases in order. Either every case is added or none is.
func (r *Registry) Add(cases ...TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}

	pending := make(map[string]bool, len(cases))
	for _, tc := range cases {
		if err := validate(tc); err != nil {
			return err
		}
		if _, exists := r.index[tc.Descriptor.ID]; exists || pending[tc.Descriptor.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, tc.Descriptor.ID)
		}
		pending[tc.Descriptor.ID] = true
	}

	for _, tc := range cases {
		tc.Descriptor = tc.Descriptor.Clone()
		r.index[tc.Descriptor.ID] = len(r.cases)
		r.cases = append(r.cases, tc)
		r.config.Log.Debug("Registered test", "id", tc.Descriptor.ID, "suite", tc.Descriptor.Suite, "location", tc.Descriptor.Location)
	}
	return nil
}

// MustAdd is Add for package-level registration, where an error is a programming mistake.
func (r *Registry) MustAdd(cases ...TestCase) {
	if err := r.Add(cases...); err != nil {
		panic(err)
	}
}

func validate(tc TestCase) error {
	if tc.Descriptor.ID == "" {
		return fmt.Errorf("%w: empty id (name %q)", ErrInvalidCase, tc.Descriptor.Name)
	}
	if tc.Body == nil {
		return fmt.Errorf("%w: test %q has no body", ErrInvalidCase, tc.Descriptor.ID)
	}
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sealed {
		r.sealed = true
		r.config.Log.Debug("Registry sealed", "tests", len(r.cases))
	}
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Len returns the number of registered tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cases)
}

// Cases returns a copy of every registered test in registration order.
func (r *Registry) Cases() []TestCase {
	return r.Select(types.All)
}

// Lookup returns the test registered under id.
func (r *Registry) Lookup(id string) (TestCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return TestCase{}, false
	}
	tc := r.cases[i]
	tc.Descriptor = tc.Descriptor.Clone()
	return tc, true
}

// Select returns the tests accepted by pred, preserving registration order.
// Descriptors are copies; mutating them does not affect the registry.
func (r *Registry) Select(pred types.Predicate) []TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	selected := FilterCases(r.cases, pred)
	out := make([]TestCase, len(selected))
	for i, tc := range selected {
		tc.Descriptor = tc.Descriptor.Clone()
		out[i] = tc
	}
	return out
}

// FilterCases returns the cases accepted by pred, preserving order.
func FilterCases(cases []TestCase, pred types.Predicate) []TestCase {
	if pred == nil {
		return cases
	}
	selected := make([]TestCase, 0, len(cases))
	for _, tc := range cases {
		if pred(tc.Descriptor) {
			selected = append(selected, tc)
		}
	}
	return selected
}
