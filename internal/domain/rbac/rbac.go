package rbac

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleFinance   Role = "finance"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// Permission names a guarded platform operation.
type Permission string

const (
	PermGatewaysSelect     Permission = "gateways:select"
	PermGatewaysManage     Permission = "gateways:manage"
	PermEndpointsRead      Permission = "endpoints:read"
	PermEndpointsManage    Permission = "endpoints:manage"
	PermDeliveriesRead     Permission = "deliveries:read"
	PermDeliveriesRetry    Permission = "deliveries:retry"
	PermDeliveriesDispatch Permission = "deliveries:dispatch"
	PermPayoutsRead        Permission = "payouts:read"
	PermPayoutsManage      Permission = "payouts:manage"
	PermRolesManage        Permission = "roles:manage"
)

// DefaultRolePermissions is the built-in role to permission mapping.
var DefaultRolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermGatewaysSelect, PermGatewaysManage,
		PermEndpointsRead, PermEndpointsManage,
		PermDeliveriesRead, PermDeliveriesRetry, PermDeliveriesDispatch,
		PermPayoutsRead, PermPayoutsManage,
		PermRolesManage,
	},
	RoleAdmin: {
		PermGatewaysSelect, PermGatewaysManage,
		PermEndpointsRead, PermEndpointsManage,
		PermDeliveriesRead, PermDeliveriesRetry, PermDeliveriesDispatch,
		PermPayoutsRead, PermPayoutsManage,
	},
	RoleFinance: {
		PermGatewaysSelect,
		PermPayoutsRead, PermPayoutsManage,
		PermDeliveriesRead,
	},
	RoleDeveloper: {
		PermGatewaysSelect,
		PermEndpointsRead, PermEndpointsManage,
		PermDeliveriesRead, PermDeliveriesRetry, PermDeliveriesDispatch,
	},
	RoleViewer: {
		PermEndpointsRead,
		PermDeliveriesRead,
		PermPayoutsRead,
	},
}

// Actor is the explicit current-user context passed to every check; the
// platform never consults ambient/global identity.
type Actor struct {
	ID    uuid.UUID
	Roles []Role
}

// CheckRecord is one audit entry for a permission check.
type CheckRecord struct {
	ActorID    uuid.UUID
	Permission Permission
	Allowed    bool
	CheckedAt  time.Time
}

// AuditStore is the call-through port recording permission checks. Audit
// persistence is an external collaborator; failures to record are logged by
// callers, never fatal.
type AuditStore interface {
	RecordCheck(ctx context.Context, record CheckRecord) error
}

// AssignmentStore is the persistence port for role assignments.
type AssignmentStore interface {
	RolesFor(ctx context.Context, actorID uuid.UUID) ([]Role, error)
	Assign(ctx context.Context, actorID uuid.UUID, role Role) error
	Revoke(ctx context.Context, actorID uuid.UUID, role Role) error
}
