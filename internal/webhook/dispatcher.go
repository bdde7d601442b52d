package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/odhiambodaniel/pesaflow/pkg/retry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// UserAgent identifies the platform on every outbound delivery.
	UserAgent = "PesaFlow-Webhooks/1.0"

	// DefaultConnectTimeout bounds connection establishment, separately from
	// the endpoint's full-request timeout.
	DefaultConnectTimeout = 10 * time.Second

	headerSignature  = "X-Webhook-Signature"
	headerEventType  = "X-Webhook-Event"
	headerDeliveryID = "X-Webhook-Delivery"

	maxResponseBodyBytes = 4 << 10
)

// DeliveryQueue is the port the dispatcher enqueues send attempts through, so
// Dispatch never blocks its caller on network delivery.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, deliveryID uuid.UUID, eventType string) error
}

// HTTPClient is the outbound transport, narrowed for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TxRunner runs fn atomically against the backing store. A nil runner executes
// fn directly, which is what the mock-backed tests use.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewHTTPClient builds the production transport with a bounded connect
// timeout. Per-request deadlines come from each request's context.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConnsPerHost: 10,
		},
	}
}

// SendOutcome classifies one send attempt. All expected failure modes are
// represented here rather than raised to callers.
type SendOutcome struct {
	// Skipped is set when the sending gate was already held by a concurrent
	// attempt and this call no-opped.
	Skipped bool
	Success bool
	// StatusCode is 0 for transport faults that produced no response.
	StatusCode   int
	ResponseBody string
	Err          string
}

// Dispatcher creates delivery records, enqueues send attempts, performs the
// HTTP send and classifies outcomes.
type Dispatcher struct {
	deliveries  webhook.DeliveryRepository
	endpoints   webhook.EndpointRepository
	queue       DeliveryQueue
	signer      Signer
	client      HTTPClient
	policy      webhook.BackoffPolicy
	sendTimeout time.Duration
	tx          TxRunner
	logger      zerolog.Logger
}

func NewDispatcher(
	deliveries webhook.DeliveryRepository,
	endpoints webhook.EndpointRepository,
	queue DeliveryQueue,
	client HTTPClient,
	policy webhook.BackoffPolicy,
	sendTimeout time.Duration,
	tx TxRunner,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		deliveries:  deliveries,
		endpoints:   endpoints,
		queue:       queue,
		signer:      NewSigner(),
		client:      client,
		policy:      policy,
		sendTimeout: sendTimeout,
		tx:          tx,
		logger:      logger,
	}
}

// effectiveTimeout resolves the deadline for one send: the endpoint's own
// timeout wins, then the configured platform default, then DefaultTimeout.
func (d *Dispatcher) effectiveTimeout(endpoint *webhook.Endpoint) time.Duration {
	if endpoint.Timeout > 0 {
		return endpoint.Timeout
	}
	if d.sendTimeout > 0 {
		return d.sendTimeout
	}
	return webhook.DefaultTimeout
}

// atomically runs fn in a transaction when a runner is configured.
func (d *Dispatcher) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.tx == nil {
		return fn(ctx)
	}
	return d.tx.WithTransaction(ctx, fn)
}

// Dispatch records a pending delivery for the event and enqueues an
// asynchronous send attempt. The caller never blocks on network I/O.
func (d *Dispatcher) Dispatch(ctx context.Context, endpoint *webhook.Endpoint, eventType string, payload map[string]any, now time.Time) (*webhook.Delivery, error) {
	if endpoint == nil {
		return nil, domainErrors.ErrEndpointNotFound
	}
	if !endpoint.Active {
		return nil, domainErrors.ErrEndpointInactive
	}

	delivery := webhook.NewDelivery(endpoint.ID, eventType, payload, d.policy.MaxAttempts, now)
	if err := d.deliveries.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("create delivery: %w", err)
	}

	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}, func() error {
		return d.queue.Enqueue(ctx, delivery.ID, eventType)
	})
	if err != nil {
		// The delivery exists but nobody will pick it up from the queue; hand
		// it to the retry scheduler instead of losing it.
		d.logger.Warn().Err(err).Str("delivery_id", delivery.ID.String()).Msg("enqueue failed, scheduling for retry scan")
		if terr := delivery.TransitionTo(webhook.StatusRetryScheduled, now); terr == nil {
			next := now
			delivery.NextAttemptAt = &next
			if uerr := d.deliveries.Update(ctx, delivery); uerr != nil {
				d.logger.Error().Err(uerr).Str("delivery_id", delivery.ID.String()).Msg("failed to reschedule unenqueued delivery")
			}
		}
	}

	return delivery, nil
}

// AttemptSend performs one send attempt for a delivery. The transition to
// sending is a compare-and-set gate: a concurrent attempt that loses the CAS
// no-ops, so at most one POST is in flight per delivery. Transport failures
// and non-2xx responses are recorded on the delivery, never returned as
// errors; the error return is reserved for persistence faults.
func (d *Dispatcher) AttemptSend(ctx context.Context, delivery *webhook.Delivery, now time.Time) (SendOutcome, error) {
	claimed, err := d.deliveries.TransitionState(
		ctx, delivery.ID,
		[]webhook.Status{webhook.StatusPending, webhook.StatusRetryScheduled},
		webhook.StatusSending, now,
	)
	if err != nil {
		return SendOutcome{}, fmt.Errorf("claim delivery %s: %w", delivery.ID, err)
	}
	if !claimed {
		return SendOutcome{Skipped: true}, nil
	}
	delivery.Status = webhook.StatusSending

	endpoint, err := d.endpoints.GetByID(ctx, delivery.EndpointID)
	if err != nil {
		return d.failPermanently(ctx, delivery, fmt.Sprintf("load endpoint: %v", err), now)
	}
	if endpoint == nil {
		return d.failPermanently(ctx, delivery, "endpoint no longer exists", now)
	}

	canonical, err := d.signer.Canonicalize(delivery.Payload)
	if err != nil {
		return d.failPermanently(ctx, delivery, fmt.Sprintf("canonicalize payload: %v", err), now)
	}
	signature := d.signer.SignBytes(canonical, endpoint.Secret)

	outcome := d.send(ctx, endpoint, delivery, canonical, signature)

	if outcome.Success {
		if err := delivery.MarkSucceeded(now); err != nil {
			return outcome, err
		}
		// The delivery result and the endpoint counters move together.
		err := d.atomically(ctx, func(ctx context.Context) error {
			if err := d.deliveries.Update(ctx, delivery); err != nil {
				return fmt.Errorf("record delivery success: %w", err)
			}
			return d.endpoints.RecordSuccess(ctx, endpoint.ID, now)
		})
		if err != nil {
			return outcome, err
		}
		d.logger.Info().
			Str("delivery_id", delivery.ID.String()).
			Str("event", delivery.EventType).
			Int("status", outcome.StatusCode).
			Msg("webhook delivered")
		return outcome, nil
	}

	reason := outcome.Err
	if reason == "" {
		reason = fmt.Sprintf("endpoint responded %d: %s", outcome.StatusCode, outcome.ResponseBody)
	}
	if err := delivery.RegisterFailure(reason, d.policy, now); err != nil {
		return outcome, err
	}
	err = d.atomically(ctx, func(ctx context.Context) error {
		if err := d.deliveries.Update(ctx, delivery); err != nil {
			return fmt.Errorf("record delivery failure: %w", err)
		}
		return d.endpoints.RecordFailure(ctx, endpoint.ID)
	})
	if err != nil {
		return outcome, err
	}
	d.logger.Warn().
		Str("delivery_id", delivery.ID.String()).
		Str("event", delivery.EventType).
		Int("attempt", delivery.AttemptCount).
		Str("status", string(delivery.Status)).
		Str("reason", reason).
		Msg("webhook delivery failed")
	return outcome, nil
}

// send issues the POST and classifies the outcome. The request context carries
// the endpoint's timeout, so a hung receiver deterministically produces a
// failure outcome instead of leaving the delivery in sending.
func (d *Dispatcher) send(ctx context.Context, endpoint *webhook.Endpoint, delivery *webhook.Delivery, body []byte, signature string) SendOutcome {
	reqCtx, cancel := context.WithTimeout(ctx, d.effectiveTimeout(endpoint))
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return SendOutcome{Err: fmt.Sprintf("build request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(headerSignature, "sha256="+signature)
	req.Header.Set(headerEventType, delivery.EventType)
	req.Header.Set(headerDeliveryID, delivery.ID.String())
	// Custom headers merge last and may override the built-ins.
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return SendOutcome{Err: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SendOutcome{Success: true, StatusCode: resp.StatusCode}
	}
	return SendOutcome{
		StatusCode:   resp.StatusCode,
		ResponseBody: string(respBody),
	}
}

func (d *Dispatcher) failPermanently(ctx context.Context, delivery *webhook.Delivery, reason string, now time.Time) (SendOutcome, error) {
	if err := delivery.MarkFailed(reason, now); err != nil {
		return SendOutcome{Err: reason}, err
	}
	if err := d.deliveries.Update(ctx, delivery); err != nil {
		return SendOutcome{Err: reason}, fmt.Errorf("record permanent failure: %w", err)
	}
	d.logger.Error().
		Str("delivery_id", delivery.ID.String()).
		Str("reason", reason).
		Msg("webhook delivery failed permanently")
	return SendOutcome{Err: reason}, nil
}
