package models

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowState string

const (
	WorkflowStatePending WorkflowState = "pending"
	WorkflowStateDone    WorkflowState = "done"
	WorkflowStateFailed  WorkflowState = "failed"
)

// WorkflowInstance is created atomically with its full task set and its
// membership never changes afterwards. State is derived from member tasks.
type WorkflowInstance struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	TenantID     uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	TemplateCode string        `json:"template_code" db:"template_code"`
	State        WorkflowState `json:"state" db:"state"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// WorkflowTemplate describes the task set a workflow instance is
// instantiated from. Task keys are local to the template; Requires refers
// to other task keys within the same template.
type WorkflowTemplate struct {
	Code   string             `json:"code" toml:"code"`
	Name   string             `json:"name" toml:"name"`
	Module string             `json:"module" toml:"module"`
	Tasks  []TemplateTaskSpec `json:"tasks" toml:"task"`
}

type TemplateTaskSpec struct {
	Key      string   `json:"key" toml:"key"`
	Title    string   `json:"title" toml:"title"`
	Module   string   `json:"module" toml:"module"`
	Requires []string `json:"requires,omitempty" toml:"requires"`
}

// DeriveWorkflowState computes the aggregate state from member tasks:
// done when every task is completed; failed when some cancelled task has
// no completed direct dependent (its branch can no longer finish);
// pending otherwise. Dependents that completed before the cancellation
// keep the instance out of failed for that branch.
func DeriveWorkflowState(tasks []*Task) WorkflowState {
	if len(tasks) == 0 {
		return WorkflowStateDone
	}

	allCompleted := true
	for _, t := range tasks {
		if t.Status != TaskStatusCompleted {
			allCompleted = false
			break
		}
	}
	if allCompleted {
		return WorkflowStateDone
	}

	for _, t := range tasks {
		if t.Status != TaskStatusCancelled {
			continue
		}
		completedDependent := false
		for _, other := range tasks {
			if other.DependsOn(t.ID) && other.Status == TaskStatusCompleted {
				completedDependent = true
				break
			}
		}
		if !completedDependent {
			return WorkflowStateFailed
		}
	}

	return WorkflowStatePending
}
