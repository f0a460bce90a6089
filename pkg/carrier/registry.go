package carrier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered shipping carriers. Providers are registered
// once at startup; lookup by slug is the only runtime operation.
type Registry struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by slug.
func (r *Registry) Get(slug string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[slug]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, slug)
}

// All returns all registered providers.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	return result
}

// Names returns the slugs of all registered providers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// PickupPointResult pairs a carrier slug with its pickup points.
type PickupPointResult struct {
	Carrier string
	Points  []PickupPoint
}

// AllPickupPoints fans out to every provider that lists pickup points.
// Errors from individual carriers are collected, not fatal.
func (r *Registry) AllPickupPoints(ctx context.Context, cfgs map[string]*Config, city string) ([]PickupPointResult, []error) {
	providers := r.All()

	results := make([]PickupPointResult, 0, len(providers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, p := range providers {
		lister, ok := p.(PickupPointLister)
		if !ok {
			continue
		}
		cfg, ok := cfgs[p.Name()]
		if !ok {
			continue
		}
		name := p.Name()
		g.Go(func() error {
			points, err := lister.GetPickupPoints(ctx, cfg, city)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return nil // keep collecting from other carriers
			}
			results = append(results, PickupPointResult{Carrier: name, Points: points})
			return nil
		})
	}

	g.Wait()
	return results, errs
}
