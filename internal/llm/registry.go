package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/mail-agent/internal/core"
)

// Builder constructs a provider instance. Builders run lazily on first
// resolution so an unconfigured, unused backend never blocks startup; a
// backend that is selected by a rule fails fast with the builder's
// error.
type Builder func() (core.Provider, error)

// Registry resolves provider names to constructed instances, building
// and caching one instance per name per process. It is safe for
// concurrent use; construction on first use is guarded so two goroutines
// cannot build the same backend twice.
type Registry struct {
	mu        sync.Mutex
	builders  map[string]Builder
	instances map[string]core.Provider
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		builders:  make(map[string]Builder),
		instances: make(map[string]core.Provider),
		logger:    logger,
	}
}

// Register adds a named builder. Later registrations replace earlier
// ones for the same name.
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[strings.ToLower(name)] = builder
}

// Get returns the provider for name, constructing it on first use. An
// unknown name fails with an error enumerating every registered name.
func (r *Registry) Get(name string) (core.Provider, error) {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.instances[key]; ok {
		return provider, nil
	}

	builder, ok := r.builders[key]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s (available providers: %s)",
			name, strings.Join(r.namesLocked(), ", "))
	}

	provider, err := builder()
	if err != nil {
		return nil, core.NewProviderError(key, fmt.Errorf("failed to initialize provider: %w", err))
	}

	r.logger.Debug("Initialized LLM provider", zap.String("provider", key))
	r.instances[key] = provider
	return provider, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
