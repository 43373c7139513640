package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wealthdesk/internal/caching"
	"wealthdesk/internal/common"
	"wealthdesk/internal/events"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
	"wealthdesk/internal/repositories"
)

const enabledModulesTTL = 5 * time.Minute

type EntitlementService interface {
	EntitlementReader

	EnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, error)
	Enable(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string) error
	Disable(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string) error
	History(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.EntitlementChange, error)
}

type entitlementService struct {
	repo     repositories.EntitlementRepository
	registry *registry.Registry
	cache    caching.CacheService
	notifier events.Notifier
	locks    *common.KeyedMutex
	logger   *zap.Logger
}

func NewEntitlementService(repo repositories.EntitlementRepository, reg *registry.Registry, cache caching.CacheService, notifier events.Notifier, logger *zap.Logger) EntitlementService {
	return &entitlementService{
		repo:     repo,
		registry: reg,
		cache:    cache,
		notifier: notifier,
		locks:    common.NewKeyedMutex(),
		logger:   logger,
	}
}

// IsEnabled is the lock-free read path: cache first, store on miss. It
// may trail an in-flight write by at most the cache invalidation that
// write performs before returning.
func (s *entitlementService) IsEnabled(ctx context.Context, tenantID uuid.UUID, moduleCode string) (bool, error) {
	codes, err := s.EnabledModules(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		if code == moduleCode {
			return true, nil
		}
	}
	return false, nil
}

func (s *entitlementService) EnabledModules(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	if codes, found, err := s.cache.GetEnabledModules(ctx, tenantID); err == nil && found {
		return codes, nil
	} else if err != nil {
		s.logger.Warn("entitlement cache read failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	codes, err := s.repo.EnabledModules(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetEnabledModules(ctx, tenantID, codes, enabledModulesTTL); err != nil {
		s.logger.Warn("entitlement cache write failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
	return codes, nil
}

func (s *entitlementService) Enable(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string) error {
	if err := s.authorizeAdmin(identity, tenantID); err != nil {
		return err
	}
	module, ok := s.registry.Module(moduleCode)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleCode)
	}

	// Entitlement writes are serialized per tenant; unrelated tenants do
	// not contend.
	unlock, err := s.locks.Lock(ctx, "entitlements:"+tenantID.String())
	if err != nil {
		return err
	}
	defer unlock()

	enabled, err := s.repo.EnabledModules(ctx, tenantID)
	if err != nil {
		return err
	}
	enabledSet := toSet(enabled)
	if enabledSet[moduleCode] {
		return nil
	}

	for _, req := range module.Requires {
		if !enabledSet[req] {
			return fmt.Errorf("%w: %s requires %s", ErrDependencyNotMet, moduleCode, req)
		}
	}

	change := &models.EntitlementChange{
		TenantID:   tenantID,
		ModuleCode: moduleCode,
		OldEnabled: false,
		NewEnabled: true,
		ActorID:    identity.UserID,
	}
	if err := s.repo.SetEnabled(ctx, tenantID, moduleCode, true, change); err != nil {
		return err
	}

	s.afterWrite(ctx, tenantID, moduleCode, true, identity.UserID)
	return nil
}

func (s *entitlementService) Disable(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string) error {
	if err := s.authorizeAdmin(identity, tenantID); err != nil {
		return err
	}
	if _, ok := s.registry.Module(moduleCode); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleCode)
	}

	unlock, err := s.locks.Lock(ctx, "entitlements:"+tenantID.String())
	if err != nil {
		return err
	}
	defer unlock()

	enabled, err := s.repo.EnabledModules(ctx, tenantID)
	if err != nil {
		return err
	}
	enabledSet := toSet(enabled)
	if !enabledSet[moduleCode] {
		return nil
	}

	// Dependents must go first; a dangling capability whose prerequisite
	// vanished is never observable.
	for _, dep := range s.registry.Dependents(moduleCode) {
		if enabledSet[dep] {
			return fmt.Errorf("%w: %s is required by %s", ErrDependentsStillEnabled, moduleCode, dep)
		}
	}

	change := &models.EntitlementChange{
		TenantID:   tenantID,
		ModuleCode: moduleCode,
		OldEnabled: true,
		NewEnabled: false,
		ActorID:    identity.UserID,
	}
	if err := s.repo.SetEnabled(ctx, tenantID, moduleCode, false, change); err != nil {
		return err
	}

	s.afterWrite(ctx, tenantID, moduleCode, false, identity.UserID)
	return nil
}

func (s *entitlementService) History(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.EntitlementChange, error) {
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return nil, ErrCrossTenant
	}
	if !identity.Role.AtLeast(models.RoleTenantAdmin) {
		return nil, ErrInsufficientRole
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListChanges(ctx, tenantID, limit, offset)
}

// authorizeAdmin applies the gate's tenant and role steps. The
// module-enabled step is skipped on purpose: enabling a disabled module
// would otherwise deny itself.
func (s *entitlementService) authorizeAdmin(identity common.Identity, tenantID uuid.UUID) error {
	return scopeTenantAdmin(identity, tenantID)
}

func (s *entitlementService) afterWrite(ctx context.Context, tenantID uuid.UUID, moduleCode string, enabled bool, actorID uuid.UUID) {
	if err := s.cache.InvalidateEnabledModules(ctx, tenantID); err != nil {
		s.logger.Warn("entitlement cache invalidation failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
	s.notifier.Publish(events.New(events.TypeEntitlementChanged, tenantID, events.EntitlementChanged{
		ModuleCode: moduleCode,
		Enabled:    enabled,
		ActorID:    actorID,
	}))
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}
