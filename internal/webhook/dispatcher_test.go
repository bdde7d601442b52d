package webhook_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	domainWebhook "github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/internal/testutil"
	"github.com/odhiambodaniel/pesaflow/internal/webhook"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() domainWebhook.BackoffPolicy {
	return domainWebhook.ExponentialBackoff(3, 10*time.Millisecond, 2.0, time.Second)
}

func newTestDispatcher(
	deliveries *testutil.MockDeliveryRepository,
	endpoints *testutil.MockEndpointRepository,
	queue *testutil.MockQueue,
) *webhook.Dispatcher {
	return webhook.NewDispatcher(
		deliveries, endpoints, queue,
		webhook.NewHTTPClient(time.Second),
		testPolicy(), 0, nil, zerolog.Nop(),
	)
}

func TestDispatch_CreatesPendingAndEnqueues(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint("https://receiver.test/hooks", "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	queue := &testutil.MockQueue{}
	d := newTestDispatcher(deliveries, endpoints, queue)

	delivery, err := d.Dispatch(context.Background(), endpoint, "payment.succeeded",
		map[string]any{"id": "pi_1"}, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, delivery)

	assert.Equal(t, domainWebhook.StatusPending, deliveries.Status(delivery.ID))
	assert.Equal(t, []uuid.UUID{delivery.ID}, queue.Enqueued())
	assert.Equal(t, 3, delivery.MaxAttempts)
}

func TestDispatch_InactiveEndpoint(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint("https://receiver.test/hooks", "whsec_test")
	endpoint.Active = false
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	_, err := d.Dispatch(context.Background(), endpoint, "payment.succeeded", nil, time.Now().UTC())
	assert.ErrorIs(t, err, domainErrors.ErrEndpointInactive)
}

func TestDispatch_EnqueueFailureHandsToRetryScanner(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint("https://receiver.test/hooks", "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	queue := &testutil.MockQueue{
		EnqueueFunc: func(ctx context.Context, deliveryID uuid.UUID, eventType string) error {
			return errors.New("stream unavailable")
		},
	}
	d := newTestDispatcher(deliveries, endpoints, queue)

	now := time.Now().UTC()
	delivery, err := d.Dispatch(context.Background(), endpoint, "payment.succeeded",
		map[string]any{"id": "pi_1"}, now)
	require.NoError(t, err)

	// The delivery is not lost: it is rescheduled for an immediate retry scan.
	stored, err := deliveries.GetByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, domainWebhook.StatusRetryScheduled, stored.Status)
	require.NotNil(t, stored.NextAttemptAt)
	assert.False(t, stored.NextAttemptAt.After(now))
}

func TestAttemptSend_Success(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.succeeded", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	outcome, err := d.AttemptSend(context.Background(), delivery, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)

	assert.Equal(t, domainWebhook.StatusSucceeded, deliveries.Status(delivery.ID))
	assert.Equal(t, int64(1), endpoint.SuccessCount)
	require.NotNil(t, endpoint.LastDeliveryAt)

	// The signature over the exact bytes sent must verify with the secret.
	signer := webhook.NewSigner()
	sig := gotHeader.Get("X-Webhook-Signature")
	assert.Equal(t, "sha256="+signer.SignBytes(gotBody, "whsec_test"), sig)
	assert.Equal(t, "payment.succeeded", gotHeader.Get("X-Webhook-Event"))
	assert.Equal(t, delivery.ID.String(), gotHeader.Get("X-Webhook-Delivery"))
	assert.Equal(t, webhook.UserAgent, gotHeader.Get("User-Agent"))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
}

func TestAttemptSend_CustomHeadersOverrideBuiltins(t *testing.T) {
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoint.Headers = map[string]string{
		"Authorization": "Bearer tok_123",
		"User-Agent":    "Custom-Agent/2.0",
	}
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payout.settled", map[string]any{"id": "po_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	outcome, err := d.AttemptSend(context.Background(), delivery, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, outcome.Success)

	assert.Equal(t, "Bearer tok_123", gotHeader.Get("Authorization"))
	assert.Equal(t, "Custom-Agent/2.0", gotHeader.Get("User-Agent"))
}

func TestAttemptSend_ConcurrentAttemptsSendOnce(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.succeeded", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	const attempts = 8
	var wg sync.WaitGroup
	var skipped atomic.Int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own, err := deliveries.GetByID(context.Background(), delivery.ID)
			if err != nil {
				return
			}
			outcome, err := d.AttemptSend(context.Background(), own, time.Now().UTC())
			if err == nil && outcome.Skipped {
				skipped.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), posts.Load(), "exactly one POST must reach the endpoint")
	assert.Equal(t, int32(attempts-1), skipped.Load())
	assert.Equal(t, domainWebhook.StatusSucceeded, deliveries.Status(delivery.ID))
}

func TestAttemptSend_Non2xxSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try later", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.failed", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	now := time.Now().UTC()
	outcome, err := d.AttemptSend(context.Background(), delivery, now)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, http.StatusServiceUnavailable, outcome.StatusCode)

	stored, err := deliveries.GetByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, domainWebhook.StatusRetryScheduled, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.NextAttemptAt)
	assert.True(t, stored.NextAttemptAt.After(now))
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "503")
	assert.Equal(t, int64(1), endpoint.FailureCount)
}

func TestAttemptSend_TimeoutIsFailureOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoint.Timeout = 30 * time.Millisecond
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.succeeded", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	outcome, err := d.AttemptSend(context.Background(), delivery, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Err)

	// A hung receiver leaves the delivery retry-scheduled, never stuck in
	// sending.
	assert.Equal(t, domainWebhook.StatusRetryScheduled, deliveries.Status(delivery.ID))
}

func TestAttemptSend_ConfiguredSendTimeoutBoundsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	// No per-endpoint timeout: the platform send timeout governs the request.
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := webhook.NewDispatcher(
		deliveries, endpoints, &testutil.MockQueue{},
		webhook.NewHTTPClient(time.Second),
		testPolicy(), 30*time.Millisecond, nil, zerolog.Nop(),
	)

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.succeeded", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	outcome, err := d.AttemptSend(context.Background(), delivery, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Err)
	assert.Equal(t, domainWebhook.StatusRetryScheduled, deliveries.Status(delivery.ID))
}

func TestAttemptSend_MissingEndpointFailsPermanently(t *testing.T) {
	deliveries := testutil.NewMockDeliveryRepository()
	endpoints := testutil.NewMockEndpointRepository()
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(uuid.New(), "payment.succeeded", map[string]any{"id": "pi_1"}, 3)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	_, err := d.AttemptSend(context.Background(), delivery, time.Now().UTC())
	require.NoError(t, err)

	stored, err := deliveries.GetByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, domainWebhook.StatusFailed, stored.Status)
	require.NotNil(t, stored.LastError)
}

func TestAttemptSend_ExhaustsAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	deliveries := testutil.NewMockDeliveryRepository()
	endpoint := testutil.NewTestEndpoint(srv.URL, "whsec_test")
	endpoints := testutil.NewMockEndpointRepository(endpoint)
	d := newTestDispatcher(deliveries, endpoints, &testutil.MockQueue{})

	delivery := testutil.NewTestDelivery(endpoint.ID, "payment.failed", map[string]any{"id": "pi_1"}, 2)
	require.NoError(t, deliveries.Create(context.Background(), delivery))

	now := time.Now().UTC()
	_, err := d.AttemptSend(context.Background(), delivery, now)
	require.NoError(t, err)
	assert.Equal(t, domainWebhook.StatusRetryScheduled, deliveries.Status(delivery.ID))

	stored, err := deliveries.GetByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	_, err = d.AttemptSend(context.Background(), stored, now.Add(time.Minute))
	require.NoError(t, err)

	final, err := deliveries.GetByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, domainWebhook.StatusExhausted, final.Status)
	assert.Equal(t, 2, final.AttemptCount)
	assert.Nil(t, final.NextAttemptAt)
	require.NotNil(t, final.CompletedAt)
}
