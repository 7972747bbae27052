package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
)

func registerFolderRoutes(api *gin.RouterGroup, handler *handlers.FolderHandler) {
	folders := api.Group("/folders")
	{
		folders.GET("/tree", handler.Tree)
		folders.POST("", handler.Create)
		folders.PATCH("/:id", handler.Update)
		folders.DELETE("/:id", handler.Delete)
	}
}
