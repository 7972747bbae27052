package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/services"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
	"github.com/cascadehq/flowdeck/pkg/response"
)

// FolderHandler exposes HTTP endpoints for the folder tree.
type FolderHandler struct {
	tree     *services.FolderTreeService
	scope    *services.AccessScopeService
	resolver *permissions.Resolver
}

// NewFolderHandler constructs a folder handler.
func NewFolderHandler(tree *services.FolderTreeService, scope *services.AccessScopeService, resolver *permissions.Resolver) *FolderHandler {
	return &FolderHandler{tree: tree, scope: scope, resolver: resolver}
}

type createFolderPayload struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	ParentID    *string `json:"parent_id"`
}

type updateFolderPayload struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	ParentID    *string `json:"parent_id"`
	MoveToRoot  bool    `json:"move_to_root"`
}

// Tree returns the folder hierarchy visible to the current user.
func (h *FolderHandler) Tree(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	tree, err := h.scope.VisibleFolderTree(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tree)
}

// Create registers a new folder. Root folders are reserved for admins; child
// folders need editor standing on the parent.
func (h *FolderHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload createFolderPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if !actor.IsAdmin {
		if payload.ParentID == nil {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
		if !h.requireFolderAction(c, actor, *payload.ParentID, permissions.ActionEdit) {
			return
		}
	}

	folder, err := h.tree.Create(requestContext(c), services.CreateFolderInput{
		Name:        payload.Name,
		Description: payload.Description,
		ParentID:    payload.ParentID,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, folder)
}

// Update renames, re-describes, or moves a folder. Moving a folder to the root
// is an admin action since root placement is not covered by any grant.
func (h *FolderHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var payload updateFolderPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	folderID := c.Param("id")
	if !actor.IsAdmin {
		if !h.requireFolderAction(c, actor, folderID, permissions.ActionEdit) {
			return
		}
		if payload.MoveToRoot {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
		if payload.ParentID != nil {
			if !h.requireFolderAction(c, actor, *payload.ParentID, permissions.ActionEdit) {
				return
			}
		}
	}

	folder, err := h.tree.Update(requestContext(c), actor.ID, folderID, services.UpdateFolderInput{
		Name:        payload.Name,
		Description: payload.Description,
		ParentID:    payload.ParentID,
		MoveToRoot:  payload.MoveToRoot,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, folder)
}

// Delete removes a folder, cascading through the subtree when ?cascade=true.
func (h *FolderHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	folderID := c.Param("id")
	if !actor.IsAdmin {
		if !h.requireFolderAction(c, actor, folderID, permissions.ActionManagePermissions) {
			return
		}
	}

	cascade := strings.EqualFold(c.Query("cascade"), "true")
	if err := h.tree.Delete(requestContext(c), actor.ID, folderID, cascade); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// requireFolderAction writes an error response and returns false when the
// actor lacks the action on the folder.
func (h *FolderHandler) requireFolderAction(c *gin.Context, actor services.Actor, folderID string, action permissions.Action) bool {
	allowed, err := h.resolver.Check(requestContext(c), actor.ID, folderID, action)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !allowed {
		response.Error(c, apperrors.ErrForbidden)
		return false
	}
	return true
}
