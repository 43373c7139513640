package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/analytics"
	"wealthdesk/internal/common"
)

// StatsHandlers serves derived per-tenant task and workflow statistics
type StatsHandlers struct {
	analyticsService *analytics.AnalyticsService
}

func NewStatsHandlers(analyticsService *analytics.AnalyticsService) *StatsHandlers {
	return &StatsHandlers{analyticsService: analyticsService}
}

// TenantStats returns the caller's tenant statistics snapshot.
func (h *StatsHandlers) TenantStats(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	stats, svcErr := h.analyticsService.TenantStats(c.Request().Context(), identity.TenantID)
	if svcErr != nil {
		return common.SendServerError(c, "Failed to compute stats")
	}
	return c.JSON(http.StatusOK, stats)
}
