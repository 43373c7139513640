package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wealthdesk/internal/common"
	"wealthdesk/internal/events"
	"wealthdesk/internal/models"
	"wealthdesk/internal/registry"
	"wealthdesk/internal/repositories"
)

type WorkflowService interface {
	// Instantiate creates an instance from a catalog template together
	// with its full task set, atomically. Membership never changes
	// afterwards.
	Instantiate(ctx context.Context, identity common.Identity, tenantID uuid.UUID, templateCode string) (*models.WorkflowInstance, []*models.Task, error)

	Get(ctx context.Context, identity common.Identity, tenantID, workflowID uuid.UUID) (*models.WorkflowInstance, error)
	List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.WorkflowInstance, error)
	Tasks(ctx context.Context, identity common.Identity, tenantID, workflowID uuid.UUID) ([]*models.Task, error)

	// Recompute derives the aggregate state from member tasks and stores
	// it. Emits WorkflowCompleted when the instance first becomes done.
	// Called after task transitions with all task locks released, and by
	// the background reconciler; losing the state CAS to another writer
	// is not an error.
	Recompute(ctx context.Context, tenantID, workflowID uuid.UUID) (models.WorkflowState, error)
}

type workflowService struct {
	workflowRepo repositories.WorkflowRepository
	taskRepo     repositories.TaskRepository
	registry     *registry.Registry
	authz        AuthzService
	entitlements EntitlementReader
	notifier     events.Notifier
	logger       *zap.Logger
}

func NewWorkflowService(workflowRepo repositories.WorkflowRepository, taskRepo repositories.TaskRepository, reg *registry.Registry, authz AuthzService, entitlements EntitlementReader, notifier events.Notifier, logger *zap.Logger) WorkflowService {
	return &workflowService{
		workflowRepo: workflowRepo,
		taskRepo:     taskRepo,
		registry:     reg,
		authz:        authz,
		entitlements: entitlements,
		notifier:     notifier,
		logger:       logger,
	}
}

func (s *workflowService) Instantiate(ctx context.Context, identity common.Identity, tenantID uuid.UUID, templateCode string) (*models.WorkflowInstance, []*models.Task, error) {
	template, ok := s.registry.Template(templateCode)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateCode)
	}

	decision, err := s.authz.Authorize(ctx, identity, tenantID, template.Module, ActionCreate)
	if err != nil {
		return nil, nil, err
	}
	if err := decision.Err(); err != nil {
		return nil, nil, err
	}

	// Each member task's own capability must be enabled too; disablement
	// blocks new task creation in that capability.
	for _, spec := range template.Tasks {
		code := spec.Module
		if code == "" || code == template.Module {
			continue
		}
		enabled, err := s.entitlements.IsEnabled(ctx, tenantID, code)
		if err != nil {
			return nil, nil, err
		}
		if !enabled {
			return nil, nil, fmt.Errorf("%w: %s", ErrModuleDisabled, code)
		}
	}

	workflow := &models.WorkflowInstance{
		ID:           uuid.New(),
		TenantID:     tenantID,
		TemplateCode: template.Code,
		State:        models.WorkflowStatePending,
	}

	ids := make(map[string]uuid.UUID, len(template.Tasks))
	for _, spec := range template.Tasks {
		ids[spec.Key] = uuid.New()
	}

	tasks := make([]*models.Task, 0, len(template.Tasks))
	for _, spec := range template.Tasks {
		moduleCode := spec.Module
		if moduleCode == "" {
			moduleCode = template.Module
		}
		prereqs := make([]uuid.UUID, 0, len(spec.Requires))
		for _, key := range spec.Requires {
			prereqs = append(prereqs, ids[key])
		}
		workflowID := workflow.ID
		tasks = append(tasks, &models.Task{
			ID:            ids[spec.Key],
			TenantID:      tenantID,
			WorkflowID:    &workflowID,
			ModuleCode:    moduleCode,
			Title:         spec.Title,
			Status:        models.TaskStatusCreated,
			Prerequisites: prereqs,
		})
	}

	if err := s.workflowRepo.CreateWithTasks(ctx, workflow, tasks); err != nil {
		return nil, nil, err
	}

	s.logger.Info("workflow instantiated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("template", template.Code),
		zap.Int("tasks", len(tasks)))

	return workflow, tasks, nil
}

func (s *workflowService) Get(ctx context.Context, identity common.Identity, tenantID, workflowID uuid.UUID) (*models.WorkflowInstance, error) {
	if err := s.authorizeView(ctx, identity, tenantID); err != nil {
		return nil, err
	}
	return s.workflowRepo.GetByID(ctx, tenantID, workflowID)
}

func (s *workflowService) List(ctx context.Context, identity common.Identity, tenantID uuid.UUID, limit, offset int) ([]*models.WorkflowInstance, error) {
	if err := s.authorizeView(ctx, identity, tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.workflowRepo.ListByTenant(ctx, tenantID, limit, offset)
}

func (s *workflowService) Tasks(ctx context.Context, identity common.Identity, tenantID, workflowID uuid.UUID) ([]*models.Task, error) {
	if err := s.authorizeView(ctx, identity, tenantID); err != nil {
		return nil, err
	}
	return s.taskRepo.ListByWorkflow(ctx, tenantID, workflowID)
}

func (s *workflowService) Recompute(ctx context.Context, tenantID, workflowID uuid.UUID) (models.WorkflowState, error) {
	workflow, err := s.workflowRepo.GetByID(ctx, tenantID, workflowID)
	if err != nil {
		return "", err
	}

	tasks, err := s.taskRepo.ListByWorkflow(ctx, tenantID, workflowID)
	if err != nil {
		return "", err
	}

	derived := models.DeriveWorkflowState(tasks)
	if derived == workflow.State {
		return derived, nil
	}

	updated, err := s.workflowRepo.UpdateState(ctx, tenantID, workflowID, derived, workflow.State)
	if err != nil {
		return "", err
	}
	if !updated {
		// Another writer recomputed concurrently; the aggregate is
		// eventually consistent and the reconciler converges it.
		return derived, nil
	}

	if derived == models.WorkflowStateDone {
		s.notifier.Publish(events.New(events.TypeWorkflowCompleted, tenantID, events.WorkflowCompleted{
			WorkflowID:   workflowID,
			TemplateCode: workflow.TemplateCode,
		}))
	}

	return derived, nil
}

func (s *workflowService) authorizeView(ctx context.Context, identity common.Identity, tenantID uuid.UUID) error {
	decision, err := s.authz.Authorize(ctx, identity, tenantID, models.ModuleTasks, ActionView)
	if err != nil {
		return err
	}
	return decision.Err()
}
