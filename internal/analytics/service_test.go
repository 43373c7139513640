package analytics

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wealthdesk/internal/caching"
	"wealthdesk/internal/models"
	"wealthdesk/internal/repositories"
)

type stubTaskRepo struct {
	repositories.TaskRepository
	counts map[models.TaskStatus]int
	calls  int
}

func (s *stubTaskRepo) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[models.TaskStatus]int, error) {
	s.calls++
	return s.counts, nil
}

type stubWorkflowRepo struct {
	repositories.WorkflowRepository
	counts map[models.WorkflowState]int
}

func (s *stubWorkflowRepo) CountByState(ctx context.Context, tenantID uuid.UUID) (map[models.WorkflowState]int, error) {
	return s.counts, nil
}

func setupAnalytics(t *testing.T) (*AnalyticsService, *stubTaskRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	taskRepo := &stubTaskRepo{counts: map[models.TaskStatus]int{
		models.TaskStatusCreated:    2,
		models.TaskStatusAssigned:   1,
		models.TaskStatusInProgress: 3,
		models.TaskStatusBlocked:    1,
		models.TaskStatusCompleted:  8,
		models.TaskStatusCancelled:  2,
	}}
	workflowRepo := &stubWorkflowRepo{counts: map[models.WorkflowState]int{
		models.WorkflowStatePending: 2,
		models.WorkflowStateDone:    5,
		models.WorkflowStateFailed:  1,
	}}

	svc := NewAnalyticsService(taskRepo, workflowRepo, caching.NewRedisCacheService(client), zap.NewNop())
	return svc, taskRepo
}

func TestTenantStats_ComputesFromCounts(t *testing.T) {
	svc, _ := setupAnalytics(t)
	tenantID := uuid.New()

	stats, err := svc.TenantStats(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.OpenTasks)
	assert.Equal(t, 1, stats.BlockedTasks)
	assert.Equal(t, 8, stats.CompletedTasks)
	assert.Equal(t, 2, stats.CancelledTasks)
	assert.Equal(t, 2, stats.WorkflowsPending)
	assert.Equal(t, 5, stats.WorkflowsDone)
	assert.Equal(t, 1, stats.WorkflowsFailed)
	assert.False(t, stats.GeneratedAt.IsZero())
}

func TestTenantStats_SecondReadServedFromCache(t *testing.T) {
	svc, taskRepo := setupAnalytics(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.TenantStats(ctx, tenantID)
	require.NoError(t, err)
	_, err = svc.TenantStats(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, taskRepo.calls)
}

func TestRefresh_BypassesCache(t *testing.T) {
	svc, taskRepo := setupAnalytics(t)
	tenantID := uuid.New()
	ctx := context.Background()

	_, err := svc.TenantStats(ctx, tenantID)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 2, taskRepo.calls)
}
