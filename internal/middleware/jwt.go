package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
)

// JWTClaims is the token payload issued by the identity collaborator.
// The engine trusts the triple as already verified once the signature
// checks out.
type JWTClaims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates the bearer token and places the authenticated
// (user, tenant, role) identity on the request context.
func JWTMiddleware(jwtSecret string) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(jwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JWTClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(bindIdentity(next))
	}
}

func bindIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
		}
		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject in token")
		}
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid tenant_id in token")
		}
		role, err := models.ParseRole(claims.Role)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid role in token")
		}

		ctx := common.WithIdentity(c.Request().Context(), common.Identity{
			UserID:   userID,
			TenantID: tenantID,
			Role:     role,
		})
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
