package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// Factory constructs a provider from its configuration.
type Factory func(ctx context.Context, config BaseConfig) (Provider, error)

// Registry maps provider types to their factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[ProviderType]Factory
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[ProviderType]Factory)}
}

// DefaultRegistry returns a registry with the Anthropic, OpenAI and Google
// providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderTypeAnthropic, func(_ context.Context, c BaseConfig) (Provider, error) {
		return NewAnthropicProvider(c)
	})
	r.Register(ProviderTypeOpenAI, func(_ context.Context, c BaseConfig) (Provider, error) {
		return NewOpenAIProvider(c)
	})
	r.Register(ProviderTypeGoogle, func(ctx context.Context, c BaseConfig) (Provider, error) {
		return NewGoogleProvider(ctx, c)
	})
	return r
}

// Register adds or replaces the factory for a provider type.
func (r *Registry) Register(providerType ProviderType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
}

// Has checks if a provider type is registered
func (r *Registry) Has(providerType ProviderType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[providerType]
	return ok
}

// Available returns all registered provider types in lexical order.
func (r *Registry) Available() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ProviderType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// New constructs and validates a provider of the given type.
func (r *Registry) New(ctx context.Context, providerType ProviderType, config BaseConfig) (Provider, error) {
	providerType = ProviderType(strings.ToLower(string(providerType)))

	r.mu.RLock()
	factory, ok := r.factories[providerType]
	r.mu.RUnlock()
	if !ok {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable,
			fmt.Sprintf("provider not registered: %s (available: %v)", providerType, r.Available()), nil)
	}

	provider, err := factory(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerType, err)
	}
	if err := provider.ValidateConfig(); err != nil {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable,
			fmt.Sprintf("invalid provider config for %s", providerType), err)
	}
	return provider, nil
}
