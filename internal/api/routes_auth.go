package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
	}
}
