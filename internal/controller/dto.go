package controller

import (
	"time"

	domainGateway "github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/internal/fees"
	"github.com/odhiambodaniel/pesaflow/internal/gateway"
	"github.com/google/uuid"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string enums, validation tags).
// Controllers convert them to domain types before calling business logic.

// SelectGatewayRequest holds selection criteria. Every field is optional; an
// omitted field leaves that dimension unconstrained.
type SelectGatewayRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Country     string `json:"country" validate:"omitempty,len=2"`
	Method      string `json:"method" validate:"omitempty,oneof=card mobile_money bank_transfer"`
}

// ReportFaultRequest holds an operational gateway failure report.
type ReportFaultRequest struct {
	Message string `json:"message" validate:"required"`
}

// CreateEndpointRequest holds the input for registering a webhook endpoint.
type CreateEndpointRequest struct {
	ApplicationID  string            `json:"application_id" validate:"required,uuid"`
	URL            string            `json:"url" validate:"required,url"`
	Secret         string            `json:"secret"`
	Headers        map[string]string `json:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" validate:"gte=0,lte=300"`
}

// UpdateEndpointRequest holds the mutable endpoint fields. Pointer fields
// distinguish "leave unchanged" from explicit zero values.
type UpdateEndpointRequest struct {
	URL            *string            `json:"url,omitempty" validate:"omitempty,url"`
	Secret         *string            `json:"secret,omitempty"`
	Headers        *map[string]string `json:"headers,omitempty"`
	TimeoutSeconds *int               `json:"timeout_seconds,omitempty" validate:"omitempty,gte=0,lte=300"`
	Active         *bool              `json:"active,omitempty"`
}

// DispatchEventRequest holds the input for dispatching a webhook event.
type DispatchEventRequest struct {
	EndpointID string         `json:"endpoint_id" validate:"required,uuid"`
	EventType  string         `json:"event_type" validate:"required"`
	Payload    map[string]any `json:"payload" validate:"required"`
}

// AssignRoleRequest holds the input for granting a role to an actor.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner admin finance developer viewer"`
}

// FeeQuoteRequest holds the input for a payout fee quote.
type FeeQuoteRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Country     string `json:"country" validate:"required,len=2"`
	Method      string `json:"method" validate:"required"`
}

// --- Response DTOs ---

// CandidateResponse represents one ranked gateway in API responses.
type CandidateResponse struct {
	GatewayType         string   `json:"gateway_type"`
	Code                string   `json:"code"`
	Priority            int      `json:"priority"`
	Healthy             bool     `json:"healthy"`
	SupportedCurrencies []string `json:"supported_currencies,omitempty"`
}

// SelectionResponse is the full ranked selection outcome.
type SelectionResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	Best       *CandidateResponse  `json:"best,omitempty"`
}

// DeliveryResponse represents a webhook delivery in API responses.
type DeliveryResponse struct {
	ID            string         `json:"id"`
	EndpointID    string         `json:"endpoint_id"`
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload,omitempty"`
	Status        string         `json:"status"`
	AttemptCount  int            `json:"attempt_count"`
	MaxAttempts   int            `json:"max_attempts"`
	NextAttemptAt *time.Time     `json:"next_attempt_at,omitempty"`
	LastError     *string        `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// FeeQuoteResponse represents a computed payout fee.
type FeeQuoteResponse struct {
	AmountCents int64  `json:"amount_cents"`
	FeeCents    int64  `json:"fee_cents"`
	NetCents    int64  `json:"net_cents"`
	Currency    string `json:"currency"`
	Display     string `json:"display"`
}

// ActorRolesResponse lists the roles held by an actor.
type ActorRolesResponse struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromCandidate converts a ranked candidate to API response.
func FromCandidate(c gateway.Candidate) CandidateResponse {
	return CandidateResponse{
		GatewayType:         string(c.Descriptor.Type),
		Code:                c.Descriptor.Code,
		Priority:            c.Descriptor.Priority,
		Healthy:             c.Healthy,
		SupportedCurrencies: c.Descriptor.SupportedCurrencies,
	}
}

// FromDelivery converts a domain delivery to API response.
func FromDelivery(d *webhook.Delivery) *DeliveryResponse {
	return &DeliveryResponse{
		ID:            d.ID.String(),
		EndpointID:    d.EndpointID.String(),
		EventType:     d.EventType,
		Payload:       d.Payload,
		Status:        string(d.Status),
		AttemptCount:  d.AttemptCount,
		MaxAttempts:   d.MaxAttempts,
		NextAttemptAt: d.NextAttemptAt,
		LastError:     d.LastError,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		CompletedAt:   d.CompletedAt,
	}
}

// FromActorRoles converts an actor's role list to API response.
func FromActorRoles(actorID uuid.UUID, roles []domainRBAC.Role) *ActorRolesResponse {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return &ActorRolesResponse{ActorID: actorID.String(), Roles: out}
}

// FromQuote converts a fee quote to API response.
func FromQuote(q fees.Quote) *FeeQuoteResponse {
	return &FeeQuoteResponse{
		AmountCents: q.AmountCents,
		FeeCents:    q.FeeCents,
		NetCents:    q.NetCents,
		Currency:    q.Currency,
		Display:     q.String(),
	}
}

func (r SelectGatewayRequest) toCriteria() domainGateway.SelectionCriteria {
	return domainGateway.SelectionCriteria{
		AmountCents: r.AmountCents,
		Currency:    r.Currency,
		Country:     r.Country,
		MethodClass: domainGateway.MethodClass(r.Method),
	}
}

// parseUUID parses a UUID string, returning nil if invalid.
func parseUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
