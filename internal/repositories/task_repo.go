package repositories

import (
	"context"

	"wealthdesk/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, tenant_id, workflow_id, module_code, title, description, status, assignee_id, prerequisites, block_reason,
		created_at, assigned_at, started_at, blocked_at, completed_at, cancelled_at, updated_at`

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error

	// CreateInTx inserts a task inside an already-open transaction. Used
	// by workflow instantiation so the instance and its full task set
	// land atomically.
	CreateInTx(ctx context.Context, tx pgx.Tx, task *models.Task) error

	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error)
	GetMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*models.Task, error)
	ListByWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID) ([]*models.Task, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Task, error)

	// ListDependents returns tasks that declare taskID as a direct
	// prerequisite.
	ListDependents(ctx context.Context, tenantID, taskID uuid.UUID) ([]*models.Task, error)

	// UpdateStatus writes the task's mutable fields guarded by the
	// expected current status. Returns false without error when the row
	// no longer holds the expected status, which the caller surfaces as
	// a concurrent modification.
	UpdateStatus(ctx context.Context, task *models.Task, expected models.TaskStatus) (bool, error)

	CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[models.TaskStatus]int, error)
}

type taskRepo struct {
	db Database
}

func NewTaskRepo(db Database) TaskRepository {
	return &taskRepo{db: db}
}

const insertTaskQuery = `
		INSERT INTO tasks (id, tenant_id, workflow_id, module_code, title, description, status, assignee_id, prerequisites, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

func (r *taskRepo) Create(ctx context.Context, task *models.Task) error {
	_, err := r.db.Exec(ctx, insertTaskQuery,
		task.ID, task.TenantID, task.WorkflowID, task.ModuleCode, task.Title, task.Description,
		task.Status, task.AssigneeID, task.Prerequisites)
	return err
}

func (r *taskRepo) CreateInTx(ctx context.Context, tx pgx.Tx, task *models.Task) error {
	_, err := tx.Exec(ctx, insertTaskQuery,
		task.ID, task.TenantID, task.WorkflowID, task.ModuleCode, task.Title, task.Description,
		task.Status, task.AssigneeID, task.Prerequisites)
	return err
}

func (r *taskRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND id = $2
	`
	return scanTask(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *taskRepo) GetMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND id = ANY($2)
	`
	rows, err := r.db.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepo) ListByWorkflow(ctx context.Context, tenantID, workflowID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND workflow_id = $2
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepo) ListDependents(ctx context.Context, tenantID, taskID uuid.UUID) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE tenant_id = $1 AND $2 = ANY(prerequisites)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepo) UpdateStatus(ctx context.Context, task *models.Task, expected models.TaskStatus) (bool, error) {
	query := `
		UPDATE tasks
		SET status = $1, assignee_id = $2, block_reason = $3,
			assigned_at = $4, started_at = $5, blocked_at = $6, completed_at = $7, cancelled_at = $8,
			updated_at = NOW()
		WHERE tenant_id = $9 AND id = $10 AND status = $11
	`
	tag, err := r.db.Exec(ctx, query,
		task.Status, task.AssigneeID, task.BlockReason,
		task.AssignedAt, task.StartedAt, task.BlockedAt, task.CompletedAt, task.CancelledAt,
		task.TenantID, task.ID, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *taskRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[models.TaskStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE tenant_id = $1
		GROUP BY status
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status models.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.TenantID, &task.WorkflowID, &task.ModuleCode, &task.Title, &task.Description,
		&task.Status, &task.AssigneeID, &task.Prerequisites, &task.BlockReason,
		&task.CreatedAt, &task.AssignedAt, &task.StartedAt, &task.BlockedAt, &task.CompletedAt, &task.CancelledAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func scanTasks(rows pgx.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
