package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
)

// RequireRole rejects requests whose identity sits below min in the role
// order. Fine-grained module/action checks stay in the services; this
// only fences whole route groups.
func RequireRole(min models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := common.IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			if !identity.Role.AtLeast(min) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
			}
			return next(c)
		}
	}
}
