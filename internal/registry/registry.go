// Package registry resolves payment provider adapters by identifier and keeps
// the payment_provider table in step with the adapters the process loaded.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/harborline/payments-core/internal/provider"
	pkgerrors "github.com/harborline/payments-core/pkg/errors"
)

// Registry is the in-memory map of loaded provider adapters. Registration
// happens during startup wiring; lookups are concurrent after that.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
}

func New() *Registry {
	return &Registry{providers: map[string]provider.Provider{}}
}

func (r *Registry) Register(p provider.Provider) error {
	if p == nil {
		return fmt.Errorf("provider is required")
	}
	id := p.Identifier()
	if id == "" {
		return fmt.Errorf("provider identifier is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %q registered twice", id)
	}
	r.providers[id] = p
	return nil
}

func (r *Registry) Get(id string) (provider.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "could not find a payment provider with id: %s", id)
	}
	return p, nil
}

// Identifiers returns the registered provider ids in stable order.
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
