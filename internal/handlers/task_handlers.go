package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/models"
	"wealthdesk/internal/services"
)

// TaskHandlers handles task lifecycle HTTP requests
type TaskHandlers struct {
	taskService services.TaskService
}

func NewTaskHandlers(taskService services.TaskService) *TaskHandlers {
	return &TaskHandlers{taskService: taskService}
}

// CreateTaskRequest represents the task creation payload
type CreateTaskRequest struct {
	ModuleCode    string      `json:"module_code"`
	Title         string      `json:"title" validate:"required"`
	Description   *string     `json:"description,omitempty"`
	Prerequisites []uuid.UUID `json:"prerequisites,omitempty"`
}

// CreateTask creates an ad hoc task in the caller's tenant.
func (h *TaskHandlers) CreateTask(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Title == "" {
		return common.SendValidationError(c, "title", "title is required")
	}

	task, svcErr := h.taskService.Create(c.Request().Context(), identity, &services.CreateTaskRequest{
		TenantID:      identity.TenantID,
		ModuleCode:    req.ModuleCode,
		Title:         req.Title,
		Description:   req.Description,
		Prerequisites: req.Prerequisites,
	})
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusCreated, task)
}

// GetTask returns a single task.
func (h *TaskHandlers) GetTask(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	taskID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	task, svcErr := h.taskService.Get(c.Request().Context(), identity, identity.TenantID, taskID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, task)
}

// ListTasksRequest represents query parameters for listing tasks
type ListTasksRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListTasks lists the caller's tenant's tasks.
func (h *TaskHandlers) ListTasks(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req ListTasksRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	tasks, svcErr := h.taskService.List(c.Request().Context(), identity, identity.TenantID, req.Limit, req.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tasks":  tasks,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// AssignTaskRequest represents the assignment payload
type AssignTaskRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required"`
}

// AssignTask assigns a task to a user of the same tenant.
func (h *TaskHandlers) AssignTask(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	taskID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req AssignTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	assigneeID, err := common.ValidateUUID(req.AssigneeID, "assignee_id")
	if err != nil {
		return common.SendValidationError(c, "assignee_id", err.Error())
	}

	task, svcErr := h.taskService.Assign(c.Request().Context(), identity, identity.TenantID, taskID, assigneeID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, task)
}

// BlockTaskRequest represents the block payload
type BlockTaskRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BlockTask moves an in-progress task to blocked.
func (h *TaskHandlers) BlockTask(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	taskID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req BlockTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Reason == "" {
		return common.SendValidationError(c, "reason", "reason is required")
	}

	task, svcErr := h.taskService.Block(c.Request().Context(), identity, identity.TenantID, taskID, req.Reason)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, task)
}

// UnassignTask returns an assigned task to the unassigned pool.
func (h *TaskHandlers) UnassignTask(c echo.Context) error {
	return h.simpleTransition(c, h.taskService.Unassign)
}

// StartTask moves a task to in_progress.
func (h *TaskHandlers) StartTask(c echo.Context) error {
	return h.simpleTransition(c, h.taskService.Start)
}

// UnblockTask resumes a blocked task.
func (h *TaskHandlers) UnblockTask(c echo.Context) error {
	return h.simpleTransition(c, h.taskService.Unblock)
}

// CompleteTask completes a task once its prerequisites are completed.
func (h *TaskHandlers) CompleteTask(c echo.Context) error {
	return h.simpleTransition(c, h.taskService.Complete)
}

// CancelTask cancels a task and blocks its live dependents.
func (h *TaskHandlers) CancelTask(c echo.Context) error {
	return h.simpleTransition(c, h.taskService.Cancel)
}

func (h *TaskHandlers) simpleTransition(c echo.Context, call func(ctx context.Context, identity common.Identity, tenantID, taskID uuid.UUID) (*models.Task, error)) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	taskID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	task, svcErr := call(c.Request().Context(), identity, identity.TenantID, taskID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, task)
}
