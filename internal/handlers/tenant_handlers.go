package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/services"
)

// TenantHandlers handles tenant administration HTTP requests. Routes are
// fenced to super-admins by middleware; tenants are only ever
// soft-disabled.
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

// ListTenantsRequest represents query parameters for listing tenants
type ListTenantsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListTenants handles getting a list of tenants (super-admin only)
func (h *TenantHandlers) ListTenants(c echo.Context) error {
	var req ListTenantsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	tenants, err := h.tenantService.List(c.Request().Context(), req.Limit, req.Offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list tenants")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   req.Limit,
		"offset":  req.Offset,
	})
}

// CreateTenant handles creating a new tenant (super-admin only)
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	var req services.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Name == "" || req.Subdomain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name and subdomain are required")
	}

	tenant, err := h.tenantService.Create(c.Request().Context(), &req)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	return c.JSON(http.StatusCreated, tenant)
}

// GetTenant returns a single tenant.
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}

	tenant, svcErr := h.tenantService.GetByID(c.Request().Context(), id)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, tenant)
}

// SuspendTenant soft-disables a tenant.
func (h *TenantHandlers) SuspendTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}
	if svcErr := h.tenantService.Suspend(c.Request().Context(), id); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReactivateTenant restores a suspended tenant.
func (h *TenantHandlers) ReactivateTenant(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}
	if svcErr := h.tenantService.Reactivate(c.Request().Context(), id); svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.NoContent(http.StatusNoContent)
}
