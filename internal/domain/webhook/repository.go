package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeliveryRepository is the persistence port for deliveries.
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	Update(ctx context.Context, d *Delivery) error

	// TransitionState atomically compare-and-sets the delivery status from any
	// of the given states to the target state. It returns false when the
	// delivery was not in one of the expected states; this is the
	// mutual-exclusion gate preventing concurrent sends of the same delivery.
	TransitionState(ctx context.Context, id uuid.UUID, from []Status, to Status, now time.Time) (bool, error)

	// ListRetryEligible returns retry_scheduled deliveries whose next attempt
	// time has elapsed, oldest first, up to limit.
	ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]*Delivery, error)

	// ListByEndpoint returns deliveries for an endpoint, newest first.
	ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]*Delivery, error)
}

// EndpointRepository is the persistence port for endpoints. Counter updates
// are atomic with respect to concurrent deliveries on the same endpoint.
type EndpointRepository interface {
	Create(ctx context.Context, e *Endpoint) error
	GetByID(ctx context.Context, id uuid.UUID) (*Endpoint, error)
	Update(ctx context.Context, e *Endpoint) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*Endpoint, error)

	// RecordSuccess atomically increments the success counter and advances
	// last_delivery_at.
	RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error

	// RecordFailure atomically increments the failure counter.
	RecordFailure(ctx context.Context, id uuid.UUID) error
}
