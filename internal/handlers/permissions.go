package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/services"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
	"github.com/cascadehq/flowdeck/pkg/response"
)

// PermissionHandler exposes grant management and access reporting endpoints.
type PermissionHandler struct {
	perms *services.PermissionService
	scope *services.AccessScopeService
}

// NewPermissionHandler constructs a permission handler.
func NewPermissionHandler(perms *services.PermissionService, scope *services.AccessScopeService) *PermissionHandler {
	return &PermissionHandler{perms: perms, scope: scope}
}

type grantPayload struct {
	Level string `json:"level" validate:"required,oneof=viewer executor editor admin"`
}

// ListForFolder returns the folder's grants with user details.
func (h *PermissionHandler) ListForFolder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	grants, err := h.perms.ListForFolder(requestContext(c), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, grants)
}

// Grant creates or replaces the grant for (folder, user).
func (h *PermissionHandler) Grant(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload grantPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	grant, err := h.perms.Grant(requestContext(c), actor, c.Param("id"), c.Param("userID"), payload.Level)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, grant)
}

// Revoke removes the grant for (folder, user).
func (h *PermissionHandler) Revoke(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.perms.Revoke(requestContext(c), actor, c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UserReport returns every folder a user can reach with the effective level
// and its provenance. Users may inspect themselves; anything else is an admin
// view.
func (h *PermissionHandler) UserReport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	userID := c.Param("id")
	if !actor.IsAdmin && actor.ID != userID {
		response.Error(c, apperrors.ErrForbidden)
		return
	}

	report, err := h.scope.UserPermissionsReport(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
