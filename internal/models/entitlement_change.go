package models

import (
	"time"

	"github.com/google/uuid"
)

// EntitlementChange is an append-only audit record. Rows are never
// updated or deleted; the archiver only exports them.
type EntitlementChange struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ModuleCode string    `json:"module_code" db:"module_code"`
	OldEnabled bool      `json:"old_enabled" db:"old_enabled"`
	NewEnabled bool      `json:"new_enabled" db:"new_enabled"`
	ActorID    uuid.UUID `json:"actor_id" db:"actor_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
