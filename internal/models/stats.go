package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStats is a derived per-tenant snapshot served by the analytics
// service; it is cached and may lag live state.
type TenantStats struct {
	TenantID         uuid.UUID `json:"tenant_id"`
	OpenTasks        int       `json:"open_tasks"`
	BlockedTasks     int       `json:"blocked_tasks"`
	CompletedTasks   int       `json:"completed_tasks"`
	CancelledTasks   int       `json:"cancelled_tasks"`
	WorkflowsPending int       `json:"workflows_pending"`
	WorkflowsDone    int       `json:"workflows_done"`
	WorkflowsFailed  int       `json:"workflows_failed"`
	GeneratedAt      time.Time `json:"generated_at"`
}
