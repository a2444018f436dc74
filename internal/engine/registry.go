package engine

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory is a function that creates an Engine instance.
type Factory func() (Engine, error)

// registry is the global engine registry instance.
var registry = &Registry{
	engines: make(map[string]Factory),
}

// Registry manages engine factories for different database dialects.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Factory
}

// Register adds an engine factory to the registry.
// Panics if the dialect is already registered.
func (r *Registry) Register(dialect string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[dialect]; exists {
		panic(fmt.Sprintf("engine: dialect %q already registered", dialect))
	}

	r.engines[dialect] = factory
}

// New creates an Engine for the specified dialect.
// Returns an error if the dialect is not registered.
func (r *Registry) New(dialect string) (Engine, error) {
	r.mu.RLock()
	factory, exists := r.engines[strings.ToLower(dialect)]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}

	return factory()
}

// List returns all registered dialect names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dialects := make([]string, 0, len(r.engines))
	for dialect := range r.engines {
		dialects = append(dialects, dialect)
	}
	slices.Sort(dialects)

	return dialects
}

// IsRegistered reports whether a dialect is registered.
func (r *Registry) IsRegistered(dialect string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.engines[dialect]
	return exists
}

// Register allows external packages to register custom engines.
func Register(dialect string, factory Factory) {
	registry.Register(dialect, factory)
}

// ListRegistered returns all registered dialect names.
func ListRegistered() []string {
	return registry.List()
}

// IsDialectSupported reports whether a dialect is supported.
func IsDialectSupported(dialect string) bool {
	return registry.IsRegistered(dialect)
}
