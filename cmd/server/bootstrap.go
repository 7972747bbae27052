package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/api"
	"github.com/cascadehq/flowdeck/internal/app"
	"github.com/cascadehq/flowdeck/internal/app/maintenance"
	iauth "github.com/cascadehq/flowdeck/internal/auth"
	"github.com/cascadehq/flowdeck/internal/database"
	"github.com/cascadehq/flowdeck/internal/engine"
	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/services"
	"github.com/cascadehq/flowdeck/internal/stores"
)

// runtimeStack bundles the long-lived pieces used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Sweeper *maintenance.Sweeper
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, services, maintenance jobs, and
// the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	st, err := stores.New(db)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:   cfg.Auth.JWT.Secret,
		TokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	loginSvc, err := iauth.NewLoginService(db, jwtSvc)
	if err != nil {
		return nil, err
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}

	treeSvc, err := services.NewFolderTreeService(st, auditSvc)
	if err != nil {
		return nil, err
	}

	resolver, err := permissions.NewResolver(treeSvc, st.Permissions())
	if err != nil {
		return nil, err
	}

	scopeSvc, err := services.NewAccessScopeService(st, treeSvc, resolver)
	if err != nil {
		return nil, err
	}

	permSvc, err := services.NewPermissionService(st, resolver, auditSvc)
	if err != nil {
		return nil, err
	}

	engineClient, err := engine.NewClient(engine.Config{
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
		Timeout: cfg.Engine.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise engine client: %w", err)
	}

	workflowSvc, err := services.NewWorkflowService(engineClient, st, scopeSvc, auditSvc)
	if err != nil {
		return nil, err
	}

	router, err := api.NewRouter(api.Deps{
		JWT:       jwtSvc,
		Login:     loginSvc,
		Resolver:  resolver,
		Tree:      treeSvc,
		Scope:     scopeSvc,
		Perms:     permSvc,
		Workflows: workflowSvc,
		Audit:     auditSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	var sweeper *maintenance.Sweeper
	if cfg.Maintenance.Enabled {
		sweeper = maintenance.NewSweeper(st, auditSvc,
			maintenance.WithIntegritySchedule(cfg.Maintenance.IntegritySchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		)
		if err := sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		log.Info("maintenance jobs scheduled",
			zap.String("integrity", cfg.Maintenance.IntegritySchedule),
			zap.String("audit", cfg.Maintenance.AuditSchedule))
	}

	return &runtimeStack{DB: db, Sweeper: sweeper, Router: router}, nil
}

// Shutdown releases resources in reverse construction order.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		<-s.Sweeper.Stop().Done()
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("database close failed", zap.Error(err))
			}
		}
	}
}
