package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wealthdesk/internal/common"
	"wealthdesk/internal/events"
	"wealthdesk/internal/models"
	"wealthdesk/internal/repositories"
)

const blockReasonPrereqCancelled = "prerequisite task cancelled"

type CreateTaskRequest struct {
	TenantID      uuid.UUID   `json:"tenant_id"`
	ModuleCode    string      `json:"module_code"`
	Title         string      `json:"title" validate:"required"`
	Description   *string     `json:"description,omitempty"`
	Prerequisites []uuid.UUID `json:"prerequisites,omitempty"`
}

type TaskService interface {
	Create(ctx context.Context, identity common.Identity, req *CreateTaskRequest) (*models.Task, error)
	Get(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
	List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.Task, error)

	Assign(ctx context.Context, identity common.Identity, tenantID, taskID, assigneeID uuid.UUID) (*models.Task, error)
	Unassign(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
	Start(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
	Block(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID, reason string) (*models.Task, error)
	Unblock(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
	Complete(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
	Cancel(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)
}

type taskService struct {
	taskRepo  repositories.TaskRepository
	userRepo  repositories.UserRepository
	authz     AuthzService
	workflows WorkflowService
	notifier  events.Notifier
	locks     *common.KeyedMutex
	logger    *zap.Logger
}

func NewTaskService(taskRepo repositories.TaskRepository, userRepo repositories.UserRepository, authz AuthzService, workflows WorkflowService, notifier events.Notifier, logger *zap.Logger) TaskService {
	return &taskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		authz:     authz,
		workflows: workflows,
		notifier:  notifier,
		locks:     common.NewKeyedMutex(),
		logger:    logger,
	}
}

func (s *taskService) Create(ctx context.Context, identity common.Identity, req *CreateTaskRequest) (*models.Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	moduleCode := req.ModuleCode
	if moduleCode == "" {
		moduleCode = models.ModuleTasks
	}

	// Disabling a module blocks new task creation in that capability;
	// tasks already in flight are left alone.
	if err := s.gate(ctx, identity, req.TenantID, moduleCode, ActionCreate); err != nil {
		return nil, err
	}

	// Prerequisites must already exist in the same tenant, so an ad hoc
	// task can never close a dependency cycle.
	if len(req.Prerequisites) > 0 {
		found, err := s.taskRepo.GetMany(ctx, req.TenantID, req.Prerequisites)
		if err != nil {
			return nil, err
		}
		if len(found) != len(req.Prerequisites) {
			return nil, fmt.Errorf("prerequisite task not found")
		}
	}

	task := &models.Task{
		ID:            uuid.New(),
		TenantID:      req.TenantID,
		ModuleCode:    moduleCode,
		Title:         req.Title,
		Description:   req.Description,
		Status:        models.TaskStatusCreated,
		Prerequisites: req.Prerequisites,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	if err := s.gate(ctx, identity, tenantID, models.ModuleTasks, ActionView); err != nil {
		return nil, err
	}
	return s.taskRepo.GetByID(ctx, tenantID, taskID)
}

func (s *taskService) List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.Task, error) {
	if err := s.gate(ctx, identity, tenantID, models.ModuleTasks, ActionView); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.taskRepo.ListByTenant(ctx, tenantID, limit, offset)
}

func (s *taskService) Assign(ctx context.Context, identity common.Identity, tenantID, taskID, assigneeID uuid.UUID) (*models.Task, error) {
	// The assignee must be a user of the same tenant.
	if _, err := s.userRepo.GetByID(ctx, tenantID, assigneeID); err != nil {
		return nil, fmt.Errorf("assignee lookup: %w", err)
	}
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionAssign, func(task *models.Task, now time.Time) {
		task.AssigneeID = &assigneeID
		task.AssignedAt = &now
	})
}

func (s *taskService) Unassign(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionUnassign, func(task *models.Task, now time.Time) {
		task.AssigneeID = nil
		task.AssignedAt = nil
	})
}

func (s *taskService) Start(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionStart, func(task *models.Task, now time.Time) {
		task.StartedAt = &now
	})
}

func (s *taskService) Block(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID, reason string) (*models.Task, error) {
	if reason == "" {
		return nil, fmt.Errorf("block reason is required")
	}
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionBlock, func(task *models.Task, now time.Time) {
		task.BlockReason = &reason
		task.BlockedAt = &now
	})
}

func (s *taskService) Unblock(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionUnblock, func(task *models.Task, now time.Time) {
		task.BlockReason = nil
	})
}

func (s *taskService) Complete(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionComplete, func(task *models.Task, now time.Time) {
		task.CompletedAt = &now
	})
}

func (s *taskService) Cancel(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error) {
	return s.transition(ctx, identity, tenantID, taskID, models.TaskActionCancel, func(task *models.Task, now time.Time) {
		task.CancelledAt = &now
	})
}

// transition runs one state-machine step under the task's exclusive
// lock. Once the lock is held the step runs to completion or failure;
// the workflow aggregate is recomputed only after the lock is released.
func (s *taskService) transition(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID, action models.TaskAction, apply func(*models.Task, time.Time)) (*models.Task, error) {
	if err := s.gate(ctx, identity, tenantID, models.ModuleTasks, ActionUpdate); err != nil {
		return nil, err
	}

	task, from, err := s.applyLocked(ctx, tenantID, taskID, action, apply)
	if err != nil {
		return nil, err
	}

	s.publishTransition(task, from, task.Status, action, identity.UserID)

	if action == models.TaskActionCancel {
		s.blockDependents(ctx, task, identity.UserID)
	}

	if task.WorkflowID != nil && task.Status.Terminal() {
		if _, err := s.workflows.Recompute(ctx, tenantID, *task.WorkflowID); err != nil {
			s.logger.Warn("workflow recompute failed",
				zap.String("workflow_id", task.WorkflowID.String()),
				zap.Error(err))
		}
	}

	return task, nil
}

func (s *taskService) applyLocked(ctx context.Context, tenantID, taskID uuid.UUID, action models.TaskAction, apply func(*models.Task, time.Time)) (*models.Task, models.TaskStatus, error) {
	unlock, err := s.locks.Lock(ctx, "task:"+taskID.String())
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	task, err := s.taskRepo.GetByID(ctx, tenantID, taskID)
	if err != nil {
		return nil, "", err
	}

	to, ok := models.NextStatus(task.Status, action)
	if !ok {
		return nil, "", &InvalidTransitionError{From: task.Status, Action: action}
	}

	if action == models.TaskActionComplete && len(task.Prerequisites) > 0 {
		prereqs, err := s.taskRepo.GetMany(ctx, tenantID, task.Prerequisites)
		if err != nil {
			return nil, "", err
		}
		for _, p := range prereqs {
			if p.Status != models.TaskStatusCompleted {
				return nil, "", fmt.Errorf("%w: task %s is %s", ErrPrerequisitesIncomplete, p.ID, p.Status)
			}
		}
	}

	from := task.Status
	task.Status = to
	apply(task, time.Now().UTC())

	updated, err := s.taskRepo.UpdateStatus(ctx, task, from)
	if err != nil {
		return nil, "", err
	}
	if !updated {
		return nil, "", fmt.Errorf("%w: task %s no longer %s", ErrConcurrentModification, taskID, from)
	}

	return task, from, nil
}

// blockDependents cascades a cancellation onto direct dependents still
// in non-terminal states, so dead-end dependencies surface instead of
// waiting forever. Completed or cancelled dependents are untouched.
func (s *taskService) blockDependents(ctx context.Context, cancelled *models.Task, actorID uuid.UUID) {
	dependents, err := s.taskRepo.ListDependents(ctx, cancelled.TenantID, cancelled.ID)
	if err != nil {
		s.logger.Error("list dependents of cancelled task",
			zap.String("task_id", cancelled.ID.String()),
			zap.Error(err))
		return
	}

	reason := blockReasonPrereqCancelled
	for _, dep := range dependents {
		if dep.Status.Terminal() || dep.Status == models.TaskStatusBlocked {
			continue
		}
		unlock, err := s.locks.Lock(ctx, "task:"+dep.ID.String())
		if err != nil {
			s.logger.Error("lock dependent of cancelled task, abandoning cascade",
				zap.String("task_id", dep.ID.String()),
				zap.String("cancelled_task_id", cancelled.ID.String()),
				zap.Error(err))
			return
		}

		current, err := s.taskRepo.GetByID(ctx, dep.TenantID, dep.ID)
		if err == nil && !current.Status.Terminal() && current.Status != models.TaskStatusBlocked {
			from := current.Status
			now := time.Now().UTC()
			current.Status = models.TaskStatusBlocked
			current.BlockReason = &reason
			current.BlockedAt = &now
			if updated, err := s.taskRepo.UpdateStatus(ctx, current, from); err != nil {
				s.logger.Error("block dependent task", zap.String("task_id", dep.ID.String()), zap.Error(err))
			} else if updated {
				s.publishTransition(current, from, models.TaskStatusBlocked, models.TaskActionBlock, actorID)
			}
		}
		unlock()
	}
}

func (s *taskService) gate(ctx context.Context, identity common.Identity, tenantID uuid.UUID, moduleCode string, action Action) error {
	decision, err := s.authz.Authorize(ctx, identity, tenantID, moduleCode, action)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
	}
	return nil
}

func (s *taskService) publishTransition(task *models.Task, from, to models.TaskStatus, action models.TaskAction, actorID uuid.UUID) {
	s.notifier.Publish(events.New(events.TypeTaskTransitioned, task.TenantID, events.TaskTransitioned{
		TaskID:     task.ID,
		WorkflowID: task.WorkflowID,
		From:       from,
		To:         to,
		Action:     action,
		ActorID:    actorID,
	}))
}
