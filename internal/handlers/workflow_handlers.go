package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wealthdesk/internal/common"
	"wealthdesk/internal/services"
)

// WorkflowHandlers handles workflow instance HTTP requests
type WorkflowHandlers struct {
	workflowService services.WorkflowService
}

func NewWorkflowHandlers(workflowService services.WorkflowService) *WorkflowHandlers {
	return &WorkflowHandlers{workflowService: workflowService}
}

// InstantiateWorkflowRequest represents the instantiation payload
type InstantiateWorkflowRequest struct {
	TemplateCode string `json:"template_code" validate:"required"`
}

// InstantiateWorkflow creates an instance and its full task set from a
// catalog template.
func (h *WorkflowHandlers) InstantiateWorkflow(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req InstantiateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.TemplateCode == "" {
		return common.SendValidationError(c, "template_code", "template_code is required")
	}

	workflow, tasks, svcErr := h.workflowService.Instantiate(c.Request().Context(), identity, identity.TenantID, req.TemplateCode)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"workflow": workflow,
		"tasks":    tasks,
	})
}

// GetWorkflow returns a single workflow instance.
func (h *WorkflowHandlers) GetWorkflow(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	workflowID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	workflow, svcErr := h.workflowService.Get(c.Request().Context(), identity, identity.TenantID, workflowID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, workflow)
}

// GetWorkflowTasks returns a workflow's member tasks.
func (h *WorkflowHandlers) GetWorkflowTasks(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	workflowID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	tasks, svcErr := h.workflowService.Tasks(c.Request().Context(), identity, identity.TenantID, workflowID)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflow_id": workflowID,
		"tasks":       tasks,
	})
}

// ListWorkflowsRequest represents query parameters for listing workflows
type ListWorkflowsRequest struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// ListWorkflows lists the caller's tenant's workflow instances.
func (h *WorkflowHandlers) ListWorkflows(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req ListWorkflowsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}

	workflows, svcErr := h.workflowService.List(c.Request().Context(), identity, identity.TenantID, req.Limit, req.Offset)
	if svcErr != nil {
		return respondServiceError(c, svcErr)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflows": workflows,
		"limit":     req.Limit,
		"offset":    req.Offset,
	})
}
