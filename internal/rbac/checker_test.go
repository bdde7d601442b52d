package rbac_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCan_AllowsByRole(t *testing.T) {
	audit := &testutil.MockAuditStore{}
	checker := rbac.NewDefaultChecker(audit, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{domainRBAC.RoleDeveloper}}

	assert.True(t, checker.Can(context.Background(), actor, domainRBAC.PermEndpointsManage, time.Now()))
	assert.False(t, checker.Can(context.Background(), actor, domainRBAC.PermPayoutsManage, time.Now()))
}

func TestCan_UnionAcrossRoles(t *testing.T) {
	audit := &testutil.MockAuditStore{}
	checker := rbac.NewDefaultChecker(audit, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{domainRBAC.RoleViewer, domainRBAC.RoleFinance}}

	// viewer alone cannot manage payouts; finance grants it.
	assert.True(t, checker.Can(context.Background(), actor, domainRBAC.PermPayoutsManage, time.Now()))
}

func TestCan_NoRolesDeniesEverything(t *testing.T) {
	audit := &testutil.MockAuditStore{}
	checker := rbac.NewDefaultChecker(audit, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New()}

	assert.False(t, checker.Can(context.Background(), actor, domainRBAC.PermEndpointsRead, time.Now()))
}

func TestCan_AuditsEveryCheck(t *testing.T) {
	audit := &testutil.MockAuditStore{}
	checker := rbac.NewDefaultChecker(audit, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{domainRBAC.RoleViewer}}
	now := time.Now().UTC()

	checker.Can(context.Background(), actor, domainRBAC.PermEndpointsRead, now)
	checker.Can(context.Background(), actor, domainRBAC.PermRolesManage, now)

	records := audit.Records()
	require.Len(t, records, 2)
	assert.Equal(t, actor.ID, records[0].ActorID)
	assert.True(t, records[0].Allowed)
	assert.Equal(t, now, records[0].CheckedAt)
	assert.False(t, records[1].Allowed)
}

func TestCan_AuditFailureDoesNotChangeAnswer(t *testing.T) {
	audit := &testutil.MockAuditStore{
		RecordCheckFunc: func(ctx context.Context, record domainRBAC.CheckRecord) error {
			return errors.New("audit store down")
		},
	}
	checker := rbac.NewDefaultChecker(audit, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{domainRBAC.RoleOwner}}

	assert.True(t, checker.Can(context.Background(), actor, domainRBAC.PermRolesManage, time.Now()))
}

func TestPermissionsFor(t *testing.T) {
	checker := rbac.NewDefaultChecker(&testutil.MockAuditStore{}, zerolog.Nop())

	viewer := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{domainRBAC.RoleViewer}}
	perms := checker.PermissionsFor(viewer)
	assert.Len(t, perms, 3)

	none := domainRBAC.Actor{ID: uuid.New()}
	assert.Empty(t, checker.PermissionsFor(none))
}

func TestCustomRoleMapping(t *testing.T) {
	mapping := map[domainRBAC.Role][]domainRBAC.Permission{
		"support": {domainRBAC.PermDeliveriesRead},
	}
	checker := rbac.NewChecker(mapping, &testutil.MockAuditStore{}, zerolog.Nop())
	actor := domainRBAC.Actor{ID: uuid.New(), Roles: []domainRBAC.Role{"support"}}

	assert.True(t, checker.Can(context.Background(), actor, domainRBAC.PermDeliveriesRead, time.Now()))
	assert.False(t, checker.Can(context.Background(), actor, domainRBAC.PermDeliveriesRetry, time.Now()))
}
