package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", handlers.Health())
}
