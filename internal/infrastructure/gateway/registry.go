// Package gateway dispatches payment operations to provider adapters.
package gateway

import (
	"fmt"

	"github.com/hoangtle/renthub-settlement/internal/application"
	"github.com/hoangtle/renthub-settlement/internal/domain"
)

// Registry holds one adapter per online provider. Offline methods (cash,
// bank transfer) never dispatch through it.
type Registry struct {
	adapters map[domain.Provider]application.GatewayAdapter
}

func NewRegistry(adapters ...application.GatewayAdapter) *Registry {
	registry := &Registry{adapters: map[domain.Provider]application.GatewayAdapter{}}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[adapter.Provider()] = adapter
	}
	return registry
}

func (r *Registry) Get(provider domain.Provider) (application.GatewayAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("no gateway adapter registered for provider %s", provider))
	}
	return adapter, nil
}
