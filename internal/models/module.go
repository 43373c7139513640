package models

import (
	"time"

	"github.com/google/uuid"
)

// ModuleTasks is the capability module that owns ad hoc task
// operations; task creation defaults to it when no module is given.
const ModuleTasks = "tasks"

// Module is a gatable business capability declared in the catalog file.
// Requires lists module codes that must be enabled for a tenant before
// this one may be enabled.
type Module struct {
	Code        string   `json:"code" toml:"code"`
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description,omitempty" toml:"description"`
	Requires    []string `json:"requires,omitempty" toml:"requires"`
}

// TenantModule is the per-tenant entitlement row for a catalog module.
type TenantModule struct {
	TenantID   uuid.UUID `json:"tenant_id" db:"tenant_id"`
	ModuleCode string    `json:"module_code" db:"module_code"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
