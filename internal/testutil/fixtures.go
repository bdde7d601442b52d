package testutil

import (
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/google/uuid"
)

func NewTestDescriptor(t gateway.Type, priority int, currencies ...string) *gateway.Descriptor {
	return &gateway.Descriptor{
		Type:                t,
		Code:                string(t) + "_test",
		Enabled:             true,
		Priority:            priority,
		SupportedCurrencies: currencies,
		SupportsHealthCheck: true,
		CreatedAt:           time.Now(),
	}
}

func NewTestEndpoint(url, secret string) *webhook.Endpoint {
	return webhook.NewEndpoint(uuid.New(), url, secret, time.Now().UTC())
}

func NewTestDelivery(endpointID uuid.UUID, eventType string, payload map[string]any, maxAttempts int) *webhook.Delivery {
	return webhook.NewDelivery(endpointID, eventType, payload, maxAttempts, time.Now().UTC())
}

func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
