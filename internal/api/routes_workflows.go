package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
)

func registerWorkflowRoutes(api *gin.RouterGroup, handler *handlers.WorkflowHandler) {
	workflows := api.Group("/workflows")
	{
		workflows.GET("", handler.List)
		workflows.PUT("/:id/folder", handler.AssignFolder)
		workflows.DELETE("/:id/folder", handler.UnassignFolder)
		workflows.POST("/:id/run", handler.Run)
		workflows.PUT("/:id/active", handler.SetActive)
	}

	api.PUT("/folders/:id/workflows", handler.AssignBulk)
}
