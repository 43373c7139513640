package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/repositories"
)

type UserService interface {
	Create(ctx context.Context, identity common.Identity, req *CreateUserRequest) (*models.User, error)
	GetByID(ctx context.Context, identity common.Identity, tenantID, id uuid.UUID) (*models.User, error)
	Disable(ctx context.Context, identity common.Identity, tenantID, id uuid.UUID) error
	List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
}

func NewUserService(userRepo repositories.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

type CreateUserRequest struct {
	TenantID  uuid.UUID   `json:"tenant_id"`
	Email     string      `json:"email" validate:"required"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Role      models.Role `json:"role"`
}

func (s *userService) Create(ctx context.Context, identity common.Identity, req *CreateUserRequest) (*models.User, error) {
	if err := scopeTenantAdmin(identity, req.TenantID); err != nil {
		return nil, err
	}
	if !strings.Contains(req.Email, "@") {
		return nil, errors.New("valid email is required")
	}
	if !req.Role.Valid() {
		return nil, errors.New("valid role is required")
	}
	// Only a super-admin may mint another super-admin.
	if req.Role == models.RoleSuperAdmin && identity.Role != models.RoleSuperAdmin {
		return nil, ErrInsufficientRole
	}

	user := &models.User{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Status:    models.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, identity common.Identity, tenantID, id uuid.UUID) (*models.User, error) {
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return nil, ErrCrossTenant
	}
	return s.userRepo.GetByID(ctx, tenantID, id)
}

func (s *userService) Disable(ctx context.Context, identity common.Identity, tenantID, id uuid.UUID) error {
	if err := scopeTenantAdmin(identity, tenantID); err != nil {
		return err
	}
	return s.userRepo.SetStatus(ctx, tenantID, id, models.UserStatusDisabled)
}

func (s *userService) List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.User, error) {
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return nil, ErrCrossTenant
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(ctx, tenantID, limit, offset)
}

func scopeTenantAdmin(identity common.Identity, tenantID uuid.UUID) error {
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return ErrCrossTenant
	}
	if !identity.Role.AtLeast(models.RoleTenantAdmin) {
		return ErrInsufficientRole
	}
	return nil
}
