package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
)

func registerPermissionRoutes(api *gin.RouterGroup, handler *handlers.PermissionHandler) {
	folders := api.Group("/folders/:id/permissions")
	{
		folders.GET("", handler.ListForFolder)
		folders.PUT("/:userID", handler.Grant)
		folders.DELETE("/:userID", handler.Revoke)
	}

	api.GET("/users/:id/permissions", handler.UserReport)
}
