package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryRepository implements webhook.DeliveryRepository using PostgreSQL.
type DeliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository creates a new DeliveryRepository.
func NewDeliveryRepository(pool *pgxpool.Pool) *DeliveryRepository {
	return &DeliveryRepository{pool: pool}
}

func (r *DeliveryRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const deliveryColumns = `id, endpoint_id, event_type, payload, status, attempt_count,
	max_attempts, next_attempt_at, last_error, created_at, updated_at, completed_at`

// Create inserts a new delivery.
func (r *DeliveryRepository) Create(ctx context.Context, d *webhook.Delivery) error {
	payload, err := json.Marshal(d.Payload)
	if err != nil {
		return fmt.Errorf("marshal delivery payload: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO webhook_deliveries
		 (`+deliveryColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.EndpointID, d.EventType, payload, d.Status, d.AttemptCount,
		d.MaxAttempts, d.NextAttemptAt, d.LastError, d.CreatedAt, d.UpdatedAt, d.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// GetByID retrieves a delivery by its ID. Returns ErrDeliveryNotFound when
// absent.
func (r *DeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Delivery, error) {
	return r.scanDelivery(r.db(ctx).QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM webhook_deliveries WHERE id = $1`, id))
}

// Update persists the delivery's attempt bookkeeping and status.
func (r *DeliveryRepository) Update(ctx context.Context, d *webhook.Delivery) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_deliveries
		 SET status = $1, attempt_count = $2, next_attempt_at = $3, last_error = $4,
		     updated_at = $5, completed_at = $6
		 WHERE id = $7`,
		d.Status, d.AttemptCount, d.NextAttemptAt, d.LastError,
		d.UpdatedAt, d.CompletedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrDeliveryNotFound
	}
	return nil
}

// TransitionState moves a delivery from one of the given states to another in
// a single compare-and-set statement. It returns false without error when the
// delivery was not in any of the from states, which is how concurrent workers
// lose the claim race cleanly.
func (r *DeliveryRepository) TransitionState(ctx context.Context, id uuid.UUID, from []webhook.Status, to webhook.Status, now time.Time) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_deliveries
		 SET status = $1, updated_at = $2
		 WHERE id = $3 AND status = ANY($4)`,
		to, now, id, states,
	)
	if err != nil {
		return false, fmt.Errorf("transition delivery state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRetryEligible returns deliveries whose retry is due, soonest first.
// SKIP LOCKED lets concurrent schedulers partition the backlog instead of
// blocking on each other's rows.
func (r *DeliveryRepository) ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]*webhook.Delivery, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+deliveryColumns+` FROM webhook_deliveries
		 WHERE status = 'retry_scheduled' AND next_attempt_at <= $1
		 ORDER BY next_attempt_at ASC
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list retry eligible deliveries: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// ListByEndpoint returns an endpoint's deliveries, newest first.
func (r *DeliveryRepository) ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]*webhook.Delivery, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+deliveryColumns+` FROM webhook_deliveries
		 WHERE endpoint_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, endpointID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries by endpoint: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *DeliveryRepository) collect(rows pgx.Rows) ([]*webhook.Delivery, error) {
	var deliveries []*webhook.Delivery
	for rows.Next() {
		d, err := r.scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepository) scanDelivery(row scanner) (*webhook.Delivery, error) {
	d := &webhook.Delivery{}
	var payload []byte
	if err := row.Scan(
		&d.ID, &d.EndpointID, &d.EventType, &payload, &d.Status, &d.AttemptCount,
		&d.MaxAttempts, &d.NextAttemptAt, &d.LastError, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &d.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal delivery payload: %w", err)
		}
	}
	return d, nil
}
