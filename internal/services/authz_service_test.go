package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
)

type stubEntitlements struct {
	enabled map[string]bool
	err     error
}

func (s *stubEntitlements) IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.enabled[moduleCode], nil
}

func authzTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]models.Module{
		{Code: "tasks"},
		{Code: "clients"},
		{Code: "accounts", Requires: []string{"clients"}},
	}, nil)
	require.NoError(t, err)
	return reg
}

func TestAuthorize(t *testing.T) {
	tenantID := uuid.New()
	otherTenant := uuid.New()
	reg := authzTestRegistry(t)
	entitlements := &stubEntitlements{enabled: map[string]bool{"tasks": true, "clients": true}}
	svc := NewAuthzService(entitlements, reg)

	identity := func(role models.Role, tenant uuid.UUID) common.Identity {
		return common.Identity{UserID: uuid.New(), TenantID: tenant, Role: role}
	}

	tests := []struct {
		name     string
		identity common.Identity
		tenant   uuid.UUID
		module   string
		action   Action
		allowed  bool
		reason   DenyReason
	}{
		{"staff view own tenant", identity(models.RoleStaff, tenantID), tenantID, "tasks", ActionView, true, ""},
		{"staff create own tenant", identity(models.RoleStaff, tenantID), tenantID, "tasks", ActionCreate, true, ""},
		{"viewer may view", identity(models.RoleClientViewer, tenantID), tenantID, "tasks", ActionView, true, ""},
		{"viewer may not create", identity(models.RoleClientViewer, tenantID), tenantID, "tasks", ActionCreate, false, DenyInsufficientRole},
		{"staff may not manage", identity(models.RoleStaff, tenantID), tenantID, "tasks", ActionManage, false, DenyInsufficientRole},
		{"tenant admin may manage", identity(models.RoleTenantAdmin, tenantID), tenantID, "tasks", ActionManage, true, ""},
		{"cross tenant denied for admin", identity(models.RoleTenantAdmin, otherTenant), tenantID, "tasks", ActionView, false, DenyCrossTenant},
		{"super admin crosses tenants", identity(models.RoleSuperAdmin, otherTenant), tenantID, "tasks", ActionManage, true, ""},
		{"disabled module denied", identity(models.RoleTenantAdmin, tenantID), tenantID, "accounts", ActionView, false, DenyModuleDisabled},
		{"unknown module denied", identity(models.RoleSuperAdmin, tenantID), tenantID, "billing", ActionView, false, DenyModuleDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := svc.Authorize(context.Background(), tt.identity, tt.tenant, tt.module, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.reason, decision.Reason)
			}
		})
	}
}

// Cross-tenant denial must short-circuit before the entitlement store is
// consulted, so a failing store cannot leak information across tenants.
func TestAuthorize_CrossTenantBeforeEntitlementRead(t *testing.T) {
	reg := authzTestRegistry(t)
	entitlements := &stubEntitlements{err: errors.New("store down")}
	svc := NewAuthzService(entitlements, reg)

	identity := common.Identity{UserID: uuid.New(), TenantID: uuid.New(), Role: models.RoleTenantAdmin}
	decision, err := svc.Authorize(context.Background(), identity, uuid.New(), "tasks", ActionView)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyCrossTenant, decision.Reason)
}

func TestAuthorize_EntitlementReadErrorPropagates(t *testing.T) {
	tenantID := uuid.New()
	reg := authzTestRegistry(t)
	entitlements := &stubEntitlements{err: errors.New("store down")}
	svc := NewAuthzService(entitlements, reg)

	identity := common.Identity{UserID: uuid.New(), TenantID: tenantID, Role: models.RoleStaff}
	_, err := svc.Authorize(context.Background(), identity, tenantID, "tasks", ActionView)
	assert.Error(t, err)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, allow().Err())
	assert.ErrorIs(t, deny(DenyCrossTenant).Err(), ErrCrossTenant)
	assert.ErrorIs(t, deny(DenyModuleDisabled).Err(), ErrModuleDisabled)
	assert.ErrorIs(t, deny(DenyInsufficientRole).Err(), ErrInsufficientRole)
}
