// Package analytics computes derived per-tenant task and workflow
// statistics. Results are cached and may lag live state.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wealthdesk/internal/caching"
	"wealthdesk/internal/models"
	"wealthdesk/internal/repositories"
)

const statsTTL = 2 * time.Minute

type AnalyticsService struct {
	taskRepo     repositories.TaskRepository
	workflowRepo repositories.WorkflowRepository
	cacheService caching.CacheService
	logger       *zap.Logger
}

func NewAnalyticsService(taskRepo repositories.TaskRepository, workflowRepo repositories.WorkflowRepository, cacheService caching.CacheService, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		taskRepo:     taskRepo,
		workflowRepo: workflowRepo,
		cacheService: cacheService,
		logger:       logger,
	}
}

// TenantStats returns the cached snapshot when fresh, otherwise
// recomputes it from the store.
func (s *AnalyticsService) TenantStats(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	if cached, err := s.cacheService.GetTenantStats(ctx, tenantID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		s.logger.Warn("stats cache read failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}

	return s.Refresh(ctx, tenantID)
}

// Refresh recomputes and re-caches the snapshot.
func (s *AnalyticsService) Refresh(ctx context.Context, tenantID uuid.UUID) (*models.TenantStats, error) {
	taskCounts, err := s.taskRepo.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	workflowCounts, err := s.workflowRepo.CountByState(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &models.TenantStats{
		TenantID: tenantID,
		OpenTasks: taskCounts[models.TaskStatusCreated] +
			taskCounts[models.TaskStatusAssigned] +
			taskCounts[models.TaskStatusInProgress],
		BlockedTasks:     taskCounts[models.TaskStatusBlocked],
		CompletedTasks:   taskCounts[models.TaskStatusCompleted],
		CancelledTasks:   taskCounts[models.TaskStatusCancelled],
		WorkflowsPending: workflowCounts[models.WorkflowStatePending],
		WorkflowsDone:    workflowCounts[models.WorkflowStateDone],
		WorkflowsFailed:  workflowCounts[models.WorkflowStateFailed],
		GeneratedAt:      time.Now().UTC(),
	}

	if err := s.cacheService.SetTenantStats(ctx, tenantID, stats, statsTTL); err != nil {
		s.logger.Warn("stats cache write failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
	return stats, nil
}
