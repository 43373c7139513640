package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/services"
)

// UserHandlers handles user administration HTTP requests
type UserHandlers struct {
	userService services.UserService
}

func NewUserHandlers(userService services.UserService) *UserHandlers {
	return &UserHandlers{userService: userService}
}

// CreateUserRequest represents the user creation payload
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required"`
}

// CreateUser creates a user in the caller's tenant.
func (h *UserHandlers) CreateUser(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return common.SendValidationError(c, "role", err.Error())
	}

	user, svcErr := h.userService.Create(c.Request().Context(), identity, &services.CreateUserRequest{
		TenantID:  identity.TenantID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusCreated, user)
}

// GetUser returns a single user of the caller's tenant.
func (h *UserHandlers) GetUser(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	user, svcErr := h.userService.GetByID(c.Request().Context(), identity, identity.TenantID, userID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsersRequest represents query parameters for listing users
type ListUsersRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListUsers lists the caller's tenant's users.
func (h *UserHandlers) ListUsers(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req ListUsersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	users, svcErr := h.userService.List(c.Request().Context(), identity, identity.TenantID, req.Limit, req.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":  users,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// DisableUser soft-disables a user.
func (h *UserHandlers) DisableUser(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	if svcErr := h.userService.Disable(c.Request().Context(), identity, identity.TenantID, userID); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.NoContent(http.StatusNoContent)
}
