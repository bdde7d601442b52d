package webhook

import (
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the delivery state in the state machine.
type Status string

const (
	StatusPending        Status = "pending"
	StatusSending        Status = "sending"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusRetryScheduled Status = "retry_scheduled"
	StatusExhausted      Status = "exhausted"
)

// Delivery is one attempt-tracked transmission of an event to an endpoint.
//
// State machine:
//
//	[pending] ---(worker claims)---> [sending]
//	[pending] ---(enqueue fault)---> [retry_scheduled]
//	[sending] ---(2xx)---> [succeeded]
//	[sending] ---(failure, attempts remain)---> [retry_scheduled]
//	[sending] ---(failure, attempts exhausted)---> [exhausted]
//	[sending] ---(non-retryable dispatch fault)---> [failed]
//	[retry_scheduled] ---(next_attempt_at reached)---> [sending]
//
// succeeded, failed and exhausted are terminal.
type Delivery struct {
	ID            uuid.UUID
	EndpointID    uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	AttemptCount  int
	MaxAttempts   int
	NextAttemptAt *time.Time
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewDelivery creates a pending delivery for an endpoint.
func NewDelivery(endpointID uuid.UUID, eventType string, payload map[string]any, maxAttempts int, now time.Time) *Delivery {
	return &Delivery{
		ID:           uuid.New(),
		EndpointID:   endpointID,
		EventType:    eventType,
		Payload:      payload,
		Status:       StatusPending,
		AttemptCount: 0,
		MaxAttempts:  maxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var deliveryTransitions = map[Status][]Status{
	StatusPending:        {StatusSending, StatusRetryScheduled, StatusFailed},
	StatusSending:        {StatusSucceeded, StatusFailed, StatusRetryScheduled, StatusExhausted},
	StatusRetryScheduled: {StatusSending, StatusFailed},
	StatusSucceeded:      {},
	StatusFailed:         {},
	StatusExhausted:      {},
}

// CanTransitionTo checks if the delivery can move to the given status.
func (d *Delivery) CanTransitionTo(next Status) bool {
	allowed, ok := deliveryTransitions[d.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the delivery to a new status.
func (d *Delivery) TransitionTo(next Status, now time.Time) error {
	if !d.CanTransitionTo(next) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition delivery from "+string(d.Status)+" to "+string(next),
			errors.ErrInvalidStateTransition,
		)
	}
	d.Status = next
	d.UpdatedAt = now
	if d.IsTerminal() {
		t := now
		d.CompletedAt = &t
	}
	return nil
}

// MarkSucceeded finalizes a successful send.
func (d *Delivery) MarkSucceeded(now time.Time) error {
	if err := d.TransitionTo(StatusSucceeded, now); err != nil {
		return err
	}
	d.NextAttemptAt = nil
	return nil
}

// MarkFailed finalizes the delivery after a non-retryable dispatch fault,
// e.g. the endpoint was removed or the payload cannot be serialized.
func (d *Delivery) MarkFailed(reason string, now time.Time) error {
	if err := d.TransitionTo(StatusFailed, now); err != nil {
		return err
	}
	d.LastError = &reason
	d.NextAttemptAt = nil
	return nil
}

// RegisterFailure records a failed send attempt. Attempts that remain under
// the cap schedule a retry per the backoff policy; hitting the cap lands the
// delivery in exhausted.
func (d *Delivery) RegisterFailure(reason string, policy BackoffPolicy, now time.Time) error {
	d.AttemptCount++
	d.LastError = &reason

	if d.AttemptCount >= d.MaxAttempts {
		if err := d.TransitionTo(StatusExhausted, now); err != nil {
			return err
		}
		d.NextAttemptAt = nil
		return nil
	}

	if err := d.TransitionTo(StatusRetryScheduled, now); err != nil {
		return err
	}
	next := now.Add(policy.Delay(d.AttemptCount))
	d.NextAttemptAt = &next
	return nil
}

// IsTerminal reports whether the delivery reached a terminal state.
func (d *Delivery) IsTerminal() bool {
	return d.Status == StatusSucceeded || d.Status == StatusFailed || d.Status == StatusExhausted
}

// RetryEligible reports whether the delivery is due for a retry at the given
// instant.
func (d *Delivery) RetryEligible(now time.Time) bool {
	return d.Status == StatusRetryScheduled &&
		d.NextAttemptAt != nil &&
		!d.NextAttemptAt.After(now)
}
