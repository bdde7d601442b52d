package postgres

import (
	"context"
	"fmt"

	"github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists permission check records and role assignments.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// RecordCheck appends one audit entry for a permission check.
func (r *AuditRepository) RecordCheck(ctx context.Context, record rbac.CheckRecord) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO permission_audit (actor_id, permission, allowed, checked_at)
		 VALUES ($1, $2, $3, $4)`,
		record.ActorID, record.Permission, record.Allowed, record.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("record permission check: %w", err)
	}
	return nil
}

// RolesFor returns the roles assigned to an actor.
func (r *AuditRepository) RolesFor(ctx context.Context, actorID uuid.UUID) ([]rbac.Role, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT role FROM role_assignments WHERE actor_id = $1 ORDER BY role ASC`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Assign grants a role to an actor. Assigning an already held role is a no-op.
func (r *AuditRepository) Assign(ctx context.Context, actorID uuid.UUID, role rbac.Role) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO role_assignments (actor_id, role)
		 VALUES ($1, $2)
		 ON CONFLICT (actor_id, role) DO NOTHING`, actorID, role)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Revoke removes a role from an actor.
func (r *AuditRepository) Revoke(ctx context.Context, actorID uuid.UUID, role rbac.Role) error {
	_, err := r.db(ctx).Exec(ctx,
		`DELETE FROM role_assignments WHERE actor_id = $1 AND role = $2`, actorID, role)
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}
