package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository implements gateway.Catalog using PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// ListEnabled returns enabled gateway descriptors ordered by ascending
// priority; ties keep insertion order.
func (r *CatalogRepository) ListEnabled(ctx context.Context) ([]*gateway.Descriptor, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT type, code, enabled, priority, supported_currencies, default_currency,
		        min_amount_cents, max_amount_cents, supports_health_check, created_at
		 FROM gateway_catalog
		 WHERE enabled = true
		 ORDER BY priority ASC, created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list enabled gateways: %v: %w", err, domainErrors.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var descriptors []*gateway.Descriptor
	for rows.Next() {
		d := &gateway.Descriptor{}
		var gwType string
		if err := rows.Scan(
			&gwType, &d.Code, &d.Enabled, &d.Priority, &d.SupportedCurrencies, &d.DefaultCurrency,
			&d.MinAmountCents, &d.MaxAmountCents, &d.SupportsHealthCheck, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan gateway descriptor: %w", err)
		}
		d.Type = gateway.Type(gwType)
		descriptors = append(descriptors, d)
	}
	return descriptors, rows.Err()
}

// RecordFault inserts an operational gateway fault row.
func (r *CatalogRepository) RecordFault(ctx context.Context, fault *gateway.Fault) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO gateway_faults (gateway_type, message, occurred_at)
		 VALUES ($1, $2, $3)`,
		string(fault.GatewayType), fault.Message, fault.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("record gateway fault: %w", err)
	}
	return nil
}
