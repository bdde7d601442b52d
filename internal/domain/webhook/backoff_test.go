package webhook_test

import (
	"testing"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	policy := webhook.ExponentialBackoff(5, 15*time.Second, 2.0, 10*time.Minute)

	assert.Equal(t, 15*time.Second, policy.Delay(1))
	assert.Equal(t, 30*time.Second, policy.Delay(2))
	assert.Equal(t, 60*time.Second, policy.Delay(3))
	assert.Equal(t, 120*time.Second, policy.Delay(4))
}

func TestExponentialBackoff_Cap(t *testing.T) {
	policy := webhook.ExponentialBackoff(10, 15*time.Second, 2.0, time.Minute)

	assert.Equal(t, time.Minute, policy.Delay(3))
	assert.Equal(t, time.Minute, policy.Delay(9))
}

func TestFixedBackoff(t *testing.T) {
	policy := webhook.FixedBackoff(3, 30*time.Second)

	assert.Equal(t, 30*time.Second, policy.Delay(1))
	assert.Equal(t, 30*time.Second, policy.Delay(2))
	assert.Equal(t, 3, policy.MaxAttempts)
}

func TestDelay_Guards(t *testing.T) {
	assert.Zero(t, webhook.BackoffPolicy{MaxAttempts: 3}.Delay(1))
	assert.Zero(t, webhook.FixedBackoff(3, time.Second).Delay(0))
	assert.Zero(t, webhook.FixedBackoff(3, time.Second).Delay(-1))
}

func TestDefaultBackoffPolicy(t *testing.T) {
	policy := webhook.DefaultBackoffPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 15*time.Second, policy.Delay(1))
}
