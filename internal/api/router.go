// Package api assembles the gin router from handlers and middleware. Route
// registration for each resource lives in its own routes_*.go file.
package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/cascadehq/flowdeck/internal/auth"
	"github.com/cascadehq/flowdeck/internal/handlers"
	"github.com/cascadehq/flowdeck/internal/middleware"
	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/services"
)

// Deps carries the wired services the router mounts. The composing application
// owns construction order and lifecycle.
type Deps struct {
	JWT       *iauth.JWTService
	Login     *iauth.LoginService
	Resolver  *permissions.Resolver
	Tree      *services.FolderTreeService
	Scope     *services.AccessScopeService
	Perms     *services.PermissionService
	Workflows *services.WorkflowService
	Audit     *services.AuditService
}

func (d Deps) validate() error {
	switch {
	case d.JWT == nil:
		return errors.New("api: jwt service is required")
	case d.Login == nil:
		return errors.New("api: login service is required")
	case d.Resolver == nil:
		return errors.New("api: permission resolver is required")
	case d.Tree == nil:
		return errors.New("api: folder tree service is required")
	case d.Scope == nil:
		return errors.New("api: access scope service is required")
	case d.Perms == nil:
		return errors.New("api: permission service is required")
	case d.Workflows == nil:
		return errors.New("api: workflow service is required")
	case d.Audit == nil:
		return errors.New("api: audit service is required")
	}
	return nil
}

// NewRouter builds the gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(r, handlers.NewAuthHandler(deps.Login))

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerFolderRoutes(api, handlers.NewFolderHandler(deps.Tree, deps.Scope, deps.Resolver))
	registerPermissionRoutes(api, handlers.NewPermissionHandler(deps.Perms, deps.Scope))
	registerWorkflowRoutes(api, handlers.NewWorkflowHandler(deps.Workflows))
	registerAuditRoutes(api, handlers.NewAuditHandler(deps.Audit))

	return r, nil
}
