package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthdesk/internal/models"
)

func TestTaskRepo_UpdateStatus_WinsCAS(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewTaskRepo(mockPool)
	task := &models.Task{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   models.TaskStatusInProgress,
	}

	mockPool.ExpectExec("UPDATE tasks").
		WithArgs(task.Status, task.AssigneeID, task.BlockReason,
			task.AssignedAt, task.StartedAt, task.BlockedAt, task.CompletedAt, task.CancelledAt,
			task.TenantID, task.ID, models.TaskStatusCreated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	updated, err := repo.UpdateStatus(context.Background(), task, models.TaskStatusCreated)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

// Zero rows affected means the guard status no longer matched; the repo
// reports it without error so the service can surface the conflict.
func TestTaskRepo_UpdateStatus_LosesCAS(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewTaskRepo(mockPool)
	task := &models.Task{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   models.TaskStatusCompleted,
	}

	mockPool.ExpectExec("UPDATE tasks").
		WithArgs(task.Status, task.AssigneeID, task.BlockReason,
			task.AssignedAt, task.StartedAt, task.BlockedAt, task.CompletedAt, task.CancelledAt,
			task.TenantID, task.ID, models.TaskStatusInProgress).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	updated, err := repo.UpdateStatus(context.Background(), task, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTaskRepo_GetMany_EmptyInput(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewTaskRepo(mockPool)

	tasks, err := repo.GetMany(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, tasks)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTaskRepo_GetByID(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewTaskRepo(mockPool)
	tenantID := uuid.New()
	taskID := uuid.New()
	now := time.Now().UTC()

	columns := []string{"id", "tenant_id", "workflow_id", "module_code", "title", "description", "status", "assignee_id", "prerequisites", "block_reason",
		"created_at", "assigned_at", "started_at", "blocked_at", "completed_at", "cancelled_at", "updated_at"}

	mockPool.ExpectQuery("SELECT (.+) FROM tasks").
		WithArgs(tenantID, taskID).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(taskID, tenantID, (*uuid.UUID)(nil), "tasks", "Prepare statement", (*string)(nil), models.TaskStatusCreated,
				(*uuid.UUID)(nil), []uuid.UUID(nil), (*string)(nil),
				now, (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), (*time.Time)(nil), now))

	task, err := repo.GetByID(context.Background(), tenantID, taskID)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, models.TaskStatusCreated, task.Status)
	assert.Nil(t, task.WorkflowID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTaskRepo_CountByStatus(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewTaskRepo(mockPool)
	tenantID := uuid.New()

	mockPool.ExpectQuery("SELECT status, COUNT").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(models.TaskStatusCreated, 3).
			AddRow(models.TaskStatusCompleted, 7))

	counts, err := repo.CountByStatus(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.TaskStatusCreated])
	assert.Equal(t, 7, counts[models.TaskStatusCompleted])
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
