package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-spec/builder"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// Registry holds the suites of one binary in registration order
type Registry struct {
	log    log.Logger
	mu     sync.RWMutex
	suites []*types.Suite
	byName map[string]*types.Suite
}

// NewRegistry creates an empty registry
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	return &Registry{
		log:    logger,
		byName: make(map[string]*types.Suite),
	}
}

// Register adds a built suite. Suite names must be unique.
func (r *Registry) Register(suite *types.Suite) error {
	if suite == nil || suite.Root == nil {
		return fmt.Errorf("cannot register an unbuilt suite")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[suite.Name]; exists {
		return fmt.Errorf("suite %q is already registered", suite.Name)
	}
	r.suites = append(r.suites, suite)
	r.byName[suite.Name] = suite
	r.log.Debug("Registered suite", "suite", suite.Name, "cases", len(suite.Cases()))
	return nil
}

// Add builds a suite from its declaration function and registers it
func (r *Registry) Add(name string, fn func(c *builder.Context)) error {
	suite, err := builder.Build(name, fn)
	if err != nil {
		return fmt.Errorf("failed to build suite %q: %w", name, err)
	}
	return r.Register(suite)
}

// MustAdd is like Add but panics on error. It is meant for package-level
// registration in a binary's main package.
func (r *Registry) MustAdd(name string, fn func(c *builder.Context)) {
	if err := r.Add(name, fn); err != nil {
		panic(err)
	}
}

// Suites returns every registered suite in registration order
func (r *Registry) Suites() []*types.Suite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*types.Suite(nil), r.suites...)
}

// Select returns the named suites in registration order, or every suite when
// names is empty. Unknown names are a configuration error.
func (r *Registry) Select(names []string) ([]*types.Suite, error) {
	if len(names) == 0 {
		return r.Suites(), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(names))
	issues := types.NewConfigError()
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			issues.Addf("unknown suite %q", name)
			continue
		}
		wanted[name] = true
	}
	if err := issues.Err(); err != nil {
		return nil, err
	}

	var selected []*types.Suite
	for _, s := range r.suites {
		if wanted[s.Name] {
			selected = append(selected, s)
		}
	}
	return selected, nil
}
