package services

import (
	"context"

	"github.com/google/uuid"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionManage Action = "manage"
)

// minimumRoles is the total-order floor per action. Roles are compared
// numerically; no dynamic permission lookup.
var minimumRoles = map[Action]models.Role{
	ActionView:   models.RoleClientViewer,
	ActionCreate: models.RoleStaff,
	ActionUpdate: models.RoleStaff,
	ActionManage: models.RoleTenantAdmin,
}

type DenyReason string

const (
	DenyCrossTenant      DenyReason = "cross_tenant"
	DenyModuleDisabled   DenyReason = "module_disabled"
	DenyInsufficientRole DenyReason = "insufficient_role"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Err maps a deny reason to its typed error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyCrossTenant:
		return ErrCrossTenant
	case DenyModuleDisabled:
		return ErrModuleDisabled
	default:
		return ErrInsufficientRole
	}
}

// EntitlementReader is the read side of the entitlement store the gate
// consults. Reads are lock-free and may be stale by at most one
// in-flight write.
type EntitlementReader interface {
	IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error)
}

// AuthzService is the authorization gate. Authorize is pure with respect
// to state: it performs no writes and is safe to call speculatively
// before any mutating operation.
type AuthzService interface {
	Authorize(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string, action Action) (Decision, error)
}

type authzService struct {
	entitlements EntitlementReader
	registry     *registry.Registry
}

func NewAuthzService(entitlements EntitlementReader, reg *registry.Registry) AuthzService {
	return &authzService{entitlements: entitlements, registry: reg}
}

func (s *authzService) Authorize(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string, action Action) (Decision, error) {
	// Super-admins may act across tenants; everyone else is confined to
	// their own, regardless of role.
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return deny(DenyCrossTenant), nil
	}

	if _, ok := s.registry.Module(moduleCode); !ok {
		return deny(DenyModuleDisabled), nil
	}
	enabled, err := s.entitlements.IsEnabled(ctx, tenantID, moduleCode)
	if err != nil {
		return Decision{}, err
	}
	if !enabled {
		return deny(DenyModuleDisabled), nil
	}

	min, ok := minimumRoles[action]
	if !ok || !identity.Role.AtLeast(min) {
		return deny(DenyInsufficientRole), nil
	}

	return allow(), nil
}
