package webhook_test

import (
	"testing"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingDelivery(maxAttempts int) *webhook.Delivery {
	return webhook.NewDelivery(uuid.New(), "payment.succeeded", map[string]any{"id": "pi_1"}, maxAttempts, time.Now().UTC())
}

func TestNewDelivery(t *testing.T) {
	d := newPendingDelivery(5)
	assert.Equal(t, webhook.StatusPending, d.Status)
	assert.Equal(t, 0, d.AttemptCount)
	assert.Equal(t, 5, d.MaxAttempts)
	assert.Nil(t, d.NextAttemptAt)
	assert.Nil(t, d.CompletedAt)
}

func TestTransition_PendingToSending(t *testing.T) {
	d := newPendingDelivery(5)
	assert.NoError(t, d.TransitionTo(webhook.StatusSending, time.Now()))
	assert.Equal(t, webhook.StatusSending, d.Status)
}

func TestTransition_PendingToSucceededRejected(t *testing.T) {
	d := newPendingDelivery(5)
	err := d.TransitionTo(webhook.StatusSucceeded, time.Now())
	assert.ErrorIs(t, err, errors.ErrInvalidStateTransition)
	assert.Equal(t, webhook.StatusPending, d.Status)
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	now := time.Now().UTC()
	for _, terminal := range []webhook.Status{webhook.StatusSucceeded, webhook.StatusFailed, webhook.StatusExhausted} {
		d := newPendingDelivery(5)
		d.Status = terminal
		for _, next := range []webhook.Status{webhook.StatusPending, webhook.StatusSending, webhook.StatusRetryScheduled, webhook.StatusSucceeded} {
			assert.Error(t, d.TransitionTo(next, now), "%s -> %s must be rejected", terminal, next)
		}
		assert.True(t, d.IsTerminal())
	}
}

func TestMarkSucceeded(t *testing.T) {
	d := newPendingDelivery(5)
	now := time.Now().UTC()
	require.NoError(t, d.TransitionTo(webhook.StatusSending, now))

	require.NoError(t, d.MarkSucceeded(now))
	assert.Equal(t, webhook.StatusSucceeded, d.Status)
	assert.Nil(t, d.NextAttemptAt)
	require.NotNil(t, d.CompletedAt)
}

func TestMarkFailed(t *testing.T) {
	d := newPendingDelivery(5)
	now := time.Now().UTC()
	require.NoError(t, d.TransitionTo(webhook.StatusSending, now))

	require.NoError(t, d.MarkFailed("endpoint no longer exists", now))
	assert.Equal(t, webhook.StatusFailed, d.Status)
	require.NotNil(t, d.LastError)
	assert.Equal(t, "endpoint no longer exists", *d.LastError)
	require.NotNil(t, d.CompletedAt)
}

func TestRegisterFailure_SchedulesRetry(t *testing.T) {
	d := newPendingDelivery(3)
	now := time.Now().UTC()
	require.NoError(t, d.TransitionTo(webhook.StatusSending, now))

	policy := webhook.FixedBackoff(3, time.Minute)
	require.NoError(t, d.RegisterFailure("503 from receiver", policy, now))

	assert.Equal(t, webhook.StatusRetryScheduled, d.Status)
	assert.Equal(t, 1, d.AttemptCount)
	require.NotNil(t, d.NextAttemptAt)
	assert.Equal(t, now.Add(time.Minute), *d.NextAttemptAt)
}

func TestRegisterFailure_ExhaustsAtCap(t *testing.T) {
	d := newPendingDelivery(2)
	now := time.Now().UTC()
	policy := webhook.FixedBackoff(2, time.Minute)

	require.NoError(t, d.TransitionTo(webhook.StatusSending, now))
	require.NoError(t, d.RegisterFailure("attempt 1 failed", policy, now))
	assert.Equal(t, webhook.StatusRetryScheduled, d.Status)

	require.NoError(t, d.TransitionTo(webhook.StatusSending, now))
	require.NoError(t, d.RegisterFailure("attempt 2 failed", policy, now))
	assert.Equal(t, webhook.StatusExhausted, d.Status)
	assert.Equal(t, 2, d.AttemptCount)
	assert.Nil(t, d.NextAttemptAt)
	require.NotNil(t, d.CompletedAt)
}

func TestRetryEligible(t *testing.T) {
	now := time.Now().UTC()
	d := newPendingDelivery(3)
	require.NoError(t, d.TransitionTo(webhook.StatusRetryScheduled, now))

	past := now.Add(-time.Second)
	d.NextAttemptAt = &past
	assert.True(t, d.RetryEligible(now))

	future := now.Add(time.Hour)
	d.NextAttemptAt = &future
	assert.False(t, d.RetryEligible(now))

	d.NextAttemptAt = nil
	assert.False(t, d.RetryEligible(now))
}

func TestRetryEligible_OnlyForRetryScheduled(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Second)

	d := newPendingDelivery(3)
	d.NextAttemptAt = &past
	assert.False(t, d.RetryEligible(now), "pending deliveries are queue-driven, not scan-driven")
}
