package repositories

import (
	"context"
	"fmt"

	"wealthdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WorkflowRepository interface {
	// CreateWithTasks inserts the instance and its full task set in one
	// transaction. Membership is immutable after this call.
	CreateWithTasks(ctx context.Context, workflow *models.WorkflowInstance, tasks []*models.Task) error

	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.WorkflowInstance, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.WorkflowInstance, error)

	// ListPending returns pending instances across tenants, oldest
	// first. Used by the background reconciler.
	ListPending(ctx context.Context, limit int) ([]*models.WorkflowInstance, error)

	// UpdateState writes the derived aggregate state guarded by the
	// expected current state.
	UpdateState(ctx context.Context, tenantID, id uuid.UUID, state, expected models.WorkflowState) (bool, error)

	CountByState(ctx context.Context, tenantID uuid.UUID) (map[models.WorkflowState]int, error)
}

type workflowRepo struct {
	db       Database
	taskRepo TaskRepository
}

func NewWorkflowRepo(db Database, taskRepo TaskRepository) WorkflowRepository {
	return &workflowRepo{db: db, taskRepo: taskRepo}
}

func (r *workflowRepo) CreateWithTasks(ctx context.Context, workflow *models.WorkflowInstance, tasks []*models.Task) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin workflow tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO workflow_instances (id, tenant_id, template_code, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query, workflow.ID, workflow.TenantID, workflow.TemplateCode, workflow.State); err != nil {
		return err
	}

	for _, task := range tasks {
		if err := r.taskRepo.CreateInTx(ctx, tx, task); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *workflowRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.WorkflowInstance, error) {
	workflow := &models.WorkflowInstance{}
	query := `
		SELECT id, tenant_id, template_code, state, created_at, updated_at
		FROM workflow_instances
		WHERE tenant_id = $1 AND id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&workflow.ID, &workflow.TenantID, &workflow.TemplateCode, &workflow.State, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return workflow, nil
}

func (r *workflowRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.WorkflowInstance, error) {
	query := `
		SELECT id, tenant_id, template_code, state, created_at, updated_at
		FROM workflow_instances
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func (r *workflowRepo) ListPending(ctx context.Context, limit int) ([]*models.WorkflowInstance, error) {
	query := `
		SELECT id, tenant_id, template_code, state, created_at, updated_at
		FROM workflow_instances
		WHERE state = $1
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, models.WorkflowStatePending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkflows(rows)
}

func (r *workflowRepo) UpdateState(ctx context.Context, tenantID, id uuid.UUID, state, expected models.WorkflowState) (bool, error) {
	query := `
		UPDATE workflow_instances
		SET state = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3 AND state = $4
	`
	tag, err := r.db.Exec(ctx, query, state, tenantID, id, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *workflowRepo) CountByState(ctx context.Context, tenantID uuid.UUID) (map[models.WorkflowState]int, error) {
	query := `
		SELECT state, COUNT(*)
		FROM workflow_instances
		WHERE tenant_id = $1
		GROUP BY state
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.WorkflowState]int)
	for rows.Next() {
		var state models.WorkflowState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[state] = count
	}
	return counts, rows.Err()
}

func scanWorkflows(rows pgx.Rows) ([]*models.WorkflowInstance, error) {
	var workflows []*models.WorkflowInstance
	for rows.Next() {
		workflow := &models.WorkflowInstance{}
		if err := rows.Scan(&workflow.ID, &workflow.TenantID, &workflow.TemplateCode, &workflow.State, &workflow.CreatedAt, &workflow.UpdatedAt); err != nil {
			return nil, err
		}
		workflows = append(workflows, workflow)
	}
	return workflows, rows.Err()
}
