package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cascadehq/flowdeck/internal/middleware"
	"github.com/cascadehq/flowdeck/internal/services"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentActor extracts the authenticated actor set by the auth middleware.
// The boolean is false when the request is unauthenticated.
func currentActor(c *gin.Context) (services.Actor, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, IsAdmin: c.GetBool(middleware.CtxIsAdminKey)}, true
}
