package handlers

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/services"
)

// respondServiceError translates the engine's typed errors into HTTP
// responses. Error kinds reach the caller unmodified in the message; a
// concurrent modification is the only kind marked retryable.
func respondServiceError(c echo.Context, err error) error {
	var invalid *services.InvalidTransitionError

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return common.SendNotFoundError(c, "Resource")
	case errors.Is(err, services.ErrCrossTenant):
		return common.SendForbiddenError(c, "CROSS_TENANT", err.Error())
	case errors.Is(err, services.ErrInsufficientRole):
		return common.SendForbiddenError(c, "INSUFFICIENT_ROLE", err.Error())
	case errors.Is(err, services.ErrModuleDisabled):
		return common.SendForbiddenError(c, "MODULE_DISABLED", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return common.SendForbiddenError(c, "UNAUTHORIZED", err.Error())
	case errors.Is(err, services.ErrDependencyNotMet):
		return common.SendConflictError(c, "DEPENDENCY_NOT_MET", err.Error())
	case errors.Is(err, services.ErrDependentsStillEnabled):
		return common.SendConflictError(c, "DEPENDENTS_STILL_ENABLED", err.Error())
	case errors.Is(err, services.ErrPrerequisitesIncomplete):
		return common.SendConflictError(c, "PREREQUISITES_INCOMPLETE", err.Error())
	case errors.Is(err, services.ErrConcurrentModification):
		return common.SendConflictError(c, "CONCURRENT_MODIFICATION", err.Error())
	case errors.Is(err, services.ErrUnknownModule):
		return common.SendNotFoundError(c, "Module")
	case errors.Is(err, services.ErrUnknownTemplate):
		return common.SendNotFoundError(c, "Workflow template")
	case errors.As(err, &invalid):
		return common.SendConflictError(c, "INVALID_TRANSITION", err.Error())
	default:
		return common.SendServerError(c, "Internal error")
	}
}

func requireIdentity(c echo.Context) (common.Identity, error) {
	identity, ok := common.IdentityFromContext(c.Request().Context())
	if !ok {
		return common.Identity{}, common.SendUnauthorizedError(c)
	}
	return identity, nil
}
