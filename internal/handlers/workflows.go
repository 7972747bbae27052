package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/services"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
	"github.com/cascadehq/flowdeck/pkg/response"
)

// WorkflowHandler exposes the engine-backed workflow endpoints.
type WorkflowHandler struct {
	svc *services.WorkflowService
}

// NewWorkflowHandler constructs a workflow handler.
func NewWorkflowHandler(svc *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

type assignFolderPayload struct {
	FolderID string `json:"folder_id" validate:"required"`
}

type assignBulkPayload struct {
	WorkflowIDs []string `json:"workflow_ids" validate:"required,min=1"`
}

type runWorkflowPayload struct {
	Payload map[string]any `json:"payload"`
}

type setActivePayload struct {
	Active *bool `json:"active" validate:"required"`
}

// List returns the workflows the current user may see.
func (h *WorkflowHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	workflows, err := h.svc.List(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, workflows)
}

// AssignFolder binds a workflow to a folder.
func (h *WorkflowHandler) AssignFolder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload assignFolderPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.svc.AssignFolder(requestContext(c), actor, c.Param("id"), payload.FolderID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"workflow_id": c.Param("id"), "folder_id": payload.FolderID})
}

// AssignBulk moves several workflows into the folder named in the path.
func (h *WorkflowHandler) AssignBulk(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload assignBulkPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	folderID := c.Param("id")
	if err := h.svc.AssignFolderBulk(requestContext(c), actor, payload.WorkflowIDs, folderID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"folder_id": folderID, "workflow_ids": payload.WorkflowIDs})
}

// UnassignFolder detaches a workflow from its folder.
func (h *WorkflowHandler) UnassignFolder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.svc.UnassignFolder(requestContext(c), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Run triggers a workflow execution through the engine.
func (h *WorkflowHandler) Run(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload runWorkflowPayload
	if c.Request != nil && c.Request.ContentLength > 0 {
		if !bindAndValidate(c, &payload) {
			return
		}
	}

	execution, err := h.svc.Run(requestContext(c), actor, c.Param("id"), payload.Payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, execution)
}

// SetActive toggles a workflow in the engine.
func (h *WorkflowHandler) SetActive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload setActivePayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.svc.SetActive(requestContext(c), actor, c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"workflow_id": c.Param("id"), "active": *payload.Active})
}
