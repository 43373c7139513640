// Package events carries the outbound notifications emitted on
// entitlement and task state transitions. The engine publishes and moves
// on; delivery guarantees are the sink's concern.
package events

import (
	"time"

	"github.com/google/uuid"

	"wealthdesk/internal/models"
)

type Type string

const (
	TypeEntitlementChanged Type = "entitlement_changed"
	TypeTaskTransitioned   Type = "task_transitioned"
	TypeWorkflowCompleted  Type = "workflow_completed"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	TenantID   uuid.UUID `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type EntitlementChanged struct {
	ModuleCode string    `json:"module_code"`
	Enabled    bool      `json:"enabled"`
	ActorID    uuid.UUID `json:"actor_id"`
}

type TaskTransitioned struct {
	TaskID     uuid.UUID         `json:"task_id"`
	WorkflowID *uuid.UUID        `json:"workflow_id,omitempty"`
	From       models.TaskStatus `json:"from"`
	To         models.TaskStatus `json:"to"`
	Action     models.TaskAction `json:"action"`
	ActorID    uuid.UUID         `json:"actor_id"`
}

type WorkflowCompleted struct {
	WorkflowID   uuid.UUID `json:"workflow_id"`
	TemplateCode string    `json:"template_code"`
}

// Notifier delivers events to an external sink. Publish must never block
// the caller on sink acknowledgment.
type Notifier interface {
	Publish(event Event)
	Close() error
}

func New(eventType Type, tenantID uuid.UUID, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
