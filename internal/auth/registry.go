package auth

import (
	"fmt"
	"slices"
	"sort"

	"github.com/aqeluk/THYNKAPI/internal/core"
)

// Registry is the immutable set of configured OAuth providers, keyed by provider key.
// It is built once at startup and shared read-only between requests.
type Registry struct {
	providers map[string]core.OAuthProvider
	keys      []string
}

// NewRegistry builds a registry from providers. Keys must be unique.
func NewRegistry(providers ...core.OAuthProvider) (*Registry, error) {
	r := &Registry{providers: make(map[string]core.OAuthProvider, len(providers))}
	for _, p := range providers {
		key := p.Key()
		if _, exists := r.providers[key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, key)
		}
		r.providers[key] = p
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
	return r, nil
}

// Get returns the provider registered under key.
func (r *Registry) Get(key string) (core.OAuthProvider, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.providers[key]
	return p, ok
}

// Keys returns the registered provider keys in sorted order.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.keys)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.providers)
}
