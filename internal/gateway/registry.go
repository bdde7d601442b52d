package gateway

import (
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/sony/gobreaker/v2"
)

// Registry maps the closed gateway type enumeration to registered service
// implementations. Lookups of unregistered types are not errors: the selector
// skips them. Each registered service gets a circuit breaker guarding its
// processing calls.
type Registry struct {
	services map[gateway.Type]services.PaymentService
	breakers map[gateway.Type]*gobreaker.CircuitBreaker[*services.Result]
}

func NewRegistry() *Registry {
	return &Registry{
		services: make(map[gateway.Type]services.PaymentService),
		breakers: make(map[gateway.Type]*gobreaker.CircuitBreaker[*services.Result]),
	}
}

// NewDefaultRegistry registers the stock service set.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, svc := range services.Default() {
		r.Register(gateway.Type(name), svc)
	}
	return r
}

func (r *Registry) Register(t gateway.Type, svc services.PaymentService) {
	r.services[t] = svc
	r.breakers[t] = gobreaker.NewCircuitBreaker[*services.Result](gobreaker.Settings{
		Name:        string(t),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Lookup returns the service registered for a type. ok is false for unknown
// types; callers skip those rather than failing.
func (r *Registry) Lookup(t gateway.Type) (services.PaymentService, bool) {
	svc, ok := r.services[t]
	return svc, ok
}

// Breaker returns the circuit breaker for a registered type.
func (r *Registry) Breaker(t gateway.Type) (*gobreaker.CircuitBreaker[*services.Result], bool) {
	b, ok := r.breakers[t]
	return b, ok
}

// Types returns the registered type tags.
func (r *Registry) Types() []gateway.Type {
	types := make([]gateway.Type, 0, len(r.services))
	for t := range r.services {
		types = append(types, t)
	}
	return types
}
