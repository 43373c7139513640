package services

import (
	"errors"
	"fmt"

	"wealthdesk/internal/models"
)

// Typed error kinds returned by the engine. Callers may retry
// ErrConcurrentModification after re-reading current state; every other
// kind is terminal for the request and must reach the caller unmodified.
var (
	ErrDependencyNotMet        = errors.New("module prerequisite not enabled")
	ErrDependentsStillEnabled  = errors.New("dependent modules still enabled")
	ErrCrossTenant             = errors.New("cross-tenant access denied")
	ErrModuleDisabled          = errors.New("module not enabled for tenant")
	ErrInsufficientRole        = errors.New("insufficient role")
	ErrPrerequisitesIncomplete = errors.New("prerequisite tasks not completed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrConcurrentModification  = errors.New("concurrent modification")
	ErrUnknownModule           = errors.New("module not in catalog")
	ErrUnknownTemplate         = errors.New("workflow template not in catalog")
)

// InvalidTransitionError reports a task action not defined for the
// task's current status.
type InvalidTransitionError struct {
	From   models.TaskStatus
	Action models.TaskAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: action %q not allowed from status %q", e.Action, e.From)
}
