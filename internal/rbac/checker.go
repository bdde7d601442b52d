package rbac

import (
	"context"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/rs/zerolog"
)

// Checker answers permission checks against the role/permission mapping and
// records every check through the audit call-through store. The acting user
// and the check time are explicit parameters; nothing here reads ambient
// identity or the wall clock.
type Checker struct {
	permissions map[rbac.Role]map[rbac.Permission]bool
	audit       rbac.AuditStore
	logger      zerolog.Logger
}

func NewChecker(rolePerms map[rbac.Role][]rbac.Permission, audit rbac.AuditStore, logger zerolog.Logger) *Checker {
	perms := make(map[rbac.Role]map[rbac.Permission]bool, len(rolePerms))
	for role, list := range rolePerms {
		set := make(map[rbac.Permission]bool, len(list))
		for _, p := range list {
			set[p] = true
		}
		perms[role] = set
	}
	return &Checker{permissions: perms, audit: audit, logger: logger}
}

// NewDefaultChecker uses the built-in role mapping.
func NewDefaultChecker(audit rbac.AuditStore, logger zerolog.Logger) *Checker {
	return NewChecker(rbac.DefaultRolePermissions, audit, logger)
}

// Can reports whether the actor holds the permission through any of its
// roles. The check is always audited; an audit store failure is logged and
// does not change the answer.
func (c *Checker) Can(ctx context.Context, actor rbac.Actor, perm rbac.Permission, now time.Time) bool {
	allowed := false
	for _, role := range actor.Roles {
		if c.permissions[role][perm] {
			allowed = true
			break
		}
	}

	if err := c.audit.RecordCheck(ctx, rbac.CheckRecord{
		ActorID:    actor.ID,
		Permission: perm,
		Allowed:    allowed,
		CheckedAt:  now,
	}); err != nil {
		c.logger.Error().Err(err).
			Str("actor_id", actor.ID.String()).
			Str("permission", string(perm)).
			Msg("failed to record permission check")
	}

	return allowed
}

// PermissionsFor returns the union of permissions granted by the actor's
// roles, for display surfaces.
func (c *Checker) PermissionsFor(actor rbac.Actor) []rbac.Permission {
	seen := make(map[rbac.Permission]bool)
	var out []rbac.Permission
	for _, role := range actor.Roles {
		for p := range c.permissions[role] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
