package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusCreated    TaskStatus = "created"
	TaskStatusAssigned   TaskStatus = "assigned"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether no transition leaves the status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

type TaskAction string

const (
	TaskActionAssign   TaskAction = "assign"
	TaskActionUnassign TaskAction = "unassign"
	TaskActionStart    TaskAction = "start"
	TaskActionBlock    TaskAction = "block"
	TaskActionUnblock  TaskAction = "unblock"
	TaskActionComplete TaskAction = "complete"
	TaskActionCancel   TaskAction = "cancel"
)

var taskTransitions = map[TaskStatus]map[TaskAction]TaskStatus{
	TaskStatusCreated: {
		TaskActionAssign: TaskStatusAssigned,
		TaskActionStart:  TaskStatusInProgress,
	},
	TaskStatusAssigned: {
		TaskActionUnassign: TaskStatusCreated,
		TaskActionStart:    TaskStatusInProgress,
	},
	TaskStatusInProgress: {
		TaskActionBlock:    TaskStatusBlocked,
		TaskActionComplete: TaskStatusCompleted,
	},
	TaskStatusBlocked: {
		TaskActionUnblock: TaskStatusInProgress,
	},
}

// NextStatus resolves a transition. Cancel is valid from every
// non-terminal status; terminal statuses accept nothing.
func NextStatus(from TaskStatus, action TaskAction) (TaskStatus, bool) {
	if from.Terminal() {
		return "", false
	}
	if action == TaskActionCancel {
		return TaskStatusCancelled, true
	}
	to, ok := taskTransitions[from][action]
	return to, ok
}

type Task struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	TenantID      uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	WorkflowID    *uuid.UUID  `json:"workflow_id,omitempty" db:"workflow_id"`
	ModuleCode    string      `json:"module_code" db:"module_code"`
	Title         string      `json:"title" db:"title"`
	Description   *string     `json:"description,omitempty" db:"description"`
	Status        TaskStatus  `json:"status" db:"status"`
	AssigneeID    *uuid.UUID  `json:"assignee_id,omitempty" db:"assignee_id"`
	Prerequisites []uuid.UUID `json:"prerequisites,omitempty" db:"prerequisites"`
	BlockReason   *string     `json:"block_reason,omitempty" db:"block_reason"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	AssignedAt    *time.Time  `json:"assigned_at,omitempty" db:"assigned_at"`
	StartedAt     *time.Time  `json:"started_at,omitempty" db:"started_at"`
	BlockedAt     *time.Time  `json:"blocked_at,omitempty" db:"blocked_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty" db:"cancelled_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// DependsOn reports whether id is a direct prerequisite of the task.
func (t *Task) DependsOn(id uuid.UUID) bool {
	for _, p := range t.Prerequisites {
		if p == id {
			return true
		}
	}
	return false
}
