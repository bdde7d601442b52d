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

// EndpointRepository implements webhook.EndpointRepository using PostgreSQL.
// Counter updates run as single UPDATE statements, so increments are atomic
// under concurrent deliveries to the same endpoint.
type EndpointRepository struct {
	pool *pgxpool.Pool
}

// NewEndpointRepository creates a new EndpointRepository.
func NewEndpointRepository(pool *pgxpool.Pool) *EndpointRepository {
	return &EndpointRepository{pool: pool}
}

func (r *EndpointRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const endpointColumns = `id, application_id, url, secret, headers, timeout_ms, active,
	success_count, failure_count, last_delivery_at, created_at, updated_at`

// Create inserts a new endpoint.
func (r *EndpointRepository) Create(ctx context.Context, e *webhook.Endpoint) error {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("marshal endpoint headers: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO webhook_endpoints
		 (`+endpointColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.ApplicationID, e.URL, e.Secret, headers, e.Timeout.Milliseconds(), e.Active,
		e.SuccessCount, e.FailureCount, e.LastDeliveryAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert endpoint: %w", err)
	}
	return nil
}

// GetByID retrieves an endpoint by its ID. Returns ErrEndpointNotFound when
// absent.
func (r *EndpointRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Endpoint, error) {
	return r.scanEndpoint(r.db(ctx).QueryRow(ctx,
		`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE id = $1`, id))
}

// Update persists the mutable endpoint fields. Counters are not written here;
// they only move through RecordSuccess/RecordFailure.
func (r *EndpointRepository) Update(ctx context.Context, e *webhook.Endpoint) error {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("marshal endpoint headers: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_endpoints
		 SET url = $1, secret = $2, headers = $3, timeout_ms = $4, active = $5, updated_at = $6
		 WHERE id = $7`,
		e.URL, e.Secret, headers, e.Timeout.Milliseconds(), e.Active, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEndpointNotFound
	}
	return nil
}

// Delete removes an endpoint.
func (r *EndpointRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx,
		`DELETE FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEndpointNotFound
	}
	return nil
}

// ListByApplication returns an application's endpoints, oldest first.
func (r *EndpointRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*webhook.Endpoint, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+endpointColumns+` FROM webhook_endpoints
		 WHERE application_id = $1
		 ORDER BY created_at ASC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*webhook.Endpoint
	for rows.Next() {
		e, err := r.scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

// RecordSuccess atomically bumps the success counter and advances
// last_delivery_at.
func (r *EndpointRepository) RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_endpoints
		 SET success_count = success_count + 1,
		     last_delivery_at = $1,
		     updated_at = $1
		 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("record endpoint success: %w", err)
	}
	return nil
}

// RecordFailure atomically bumps the failure counter.
func (r *EndpointRepository) RecordFailure(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_endpoints
		 SET failure_count = failure_count + 1
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("record endpoint failure: %w", err)
	}
	return nil
}

func (r *EndpointRepository) scanEndpoint(row scanner) (*webhook.Endpoint, error) {
	e := &webhook.Endpoint{}
	var headers []byte
	var timeoutMs int64
	if err := row.Scan(
		&e.ID, &e.ApplicationID, &e.URL, &e.Secret, &headers, &timeoutMs, &e.Active,
		&e.SuccessCount, &e.FailureCount, &e.LastDeliveryAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("scan endpoint: %w", err)
	}
	e.Timeout = time.Duration(timeoutMs) * time.Millisecond
	if len(headers) > 0 {
		e.Headers = make(map[string]string)
		if err := json.Unmarshal(headers, &e.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal endpoint headers: %w", err)
		}
	}
	return e, nil
}
