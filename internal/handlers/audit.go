package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/services"
	"github.com/cascadehq/flowdeck/pkg/response"
)

// AuditHandler exposes the audit trail to console administrators.
type AuditHandler struct {
	svc *services.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List returns a filtered page of audit entries, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	opts := services.AuditListOptions{
		ActorID:  c.Query("actor_id"),
		Resource: c.Query("resource"),
		Action:   c.Query("action"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		opts.PageSize = size
	}

	entries, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"entries": entries, "total": total})
}
