package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
	"github.com/cascadehq/flowdeck/internal/middleware"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	api.GET("/audit", middleware.RequireAdmin(), handler.List)
}
