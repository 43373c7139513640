package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
	"wealthdesk/internal/services"
)

// EntitlementHandlers handles module catalog and entitlement HTTP requests
type EntitlementHandlers struct {
	entitlementService services.EntitlementService
	registry           *registry.Registry
}

func NewEntitlementHandlers(entitlementService services.EntitlementService, reg *registry.Registry) *EntitlementHandlers {
	return &EntitlementHandlers{
		entitlementService: entitlementService,
		registry:           reg,
	}
}

// ListModules returns the static module catalog.
func (h *EntitlementHandlers) ListModules(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"modules": h.registry.Modules(),
	})
}

// ListEnabled returns the tenant's enabled module codes.
func (h *EntitlementHandlers) ListEnabled(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	tenantID, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}
	if identity.TenantID != tenantID && identity.Role != models.RoleSuperAdmin {
		return common.SendForbiddenError(c, "CROSS_TENANT", "cross-tenant access denied")
	}

	codes, svcErr := h.entitlementService.EnabledModules(c.Request().Context(), tenantID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenant_id": tenantID,
		"enabled":   codes,
	})
}

// Enable turns a module on for a tenant.
func (h *EntitlementHandlers) Enable(c echo.Context) error {
	return h.setEnabled(c, true)
}

// Disable turns a module off for a tenant.
func (h *EntitlementHandlers) Disable(c echo.Context) error {
	return h.setEnabled(c, false)
}

func (h *EntitlementHandlers) setEnabled(c echo.Context, enabled bool) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	tenantID, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}
	moduleCode := c.Param("module_code")
	if moduleCode == "" {
		return common.SendValidationError(c, "module_code", "module_code is required")
	}

	ctx := c.Request().Context()
	var svcErr error
	if enabled {
		svcErr = h.entitlementService.Enable(ctx, identity, tenantID, moduleCode)
	} else {
		svcErr = h.entitlementService.Disable(ctx, identity, tenantID, moduleCode)
	}
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenant_id":   tenantID,
		"module_code": moduleCode,
		"enabled":     enabled,
	})
}

// ListHistoryRequest represents query parameters for the audit trail
type ListHistoryRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// History returns the tenant's entitlement audit trail.
func (h *EntitlementHandlers) History(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	tenantID, err := common.ValidateUUID(c.Param("tenant_id"), "tenant_id")
	if err != nil {
		return common.SendValidationError(c, "tenant_id", err.Error())
	}

	var req ListHistoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	changes, svcErr := h.entitlementService.History(c.Request().Context(), identity, tenantID, req.Limit, req.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"changes": changes,
		"limit":   req.Limit,
		"offset":  req.Offset,
	})
}
