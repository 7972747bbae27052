package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/models"
	"github.com/cascadehq/flowdeck/internal/permissions"
	"github.com/cascadehq/flowdeck/internal/stores"
	apperrors "github.com/cascadehq/flowdeck/pkg/errors"
)

// Actor identifies the user performing an administrative call. IsAdmin marks
// console superusers, who bypass folder-level authorization.
type Actor struct {
	ID      string
	IsAdmin bool
}

// PermissionService manages grant lifecycle on folders. Grants may only be
// created, changed, or revoked by a holder of admin level on the folder (or a
// superuser), and never by the affected user themselves.
type PermissionService struct {
	stores   stores.Stores
	resolver *permissions.Resolver
	audit    *AuditService
}

// NewPermissionService constructs the grant management service.
func NewPermissionService(st stores.Stores, resolver *permissions.Resolver, audit *AuditService) (*PermissionService, error) {
	if st == nil {
		return nil, errors.New("permission service: stores are required")
	}
	if resolver == nil {
		return nil, errors.New("permission service: resolver is required")
	}
	return &PermissionService{stores: st, resolver: resolver, audit: audit}, nil
}

// Grant gives userID the level on the folder, overwriting any existing grant
// for the same pair.
func (s *PermissionService) Grant(ctx context.Context, actor Actor, folderID, userID, level string) (*models.FolderPermission, error) {
	ctx = ensureContext(ctx)

	parsed, err := permissions.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeGrantChange(ctx, actor, folderID, userID); err != nil {
		return nil, err
	}

	if err := s.stores.Permissions().Upsert(ctx, folderID, userID, parsed.String(), actor.ID); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "permission.grant",
		Resource:   "folder",
		ResourceID: folderID,
		Details:    map[string]any{"user_id": userID, "level": parsed.String()},
	})
	return s.stores.Permissions().Find(ctx, folderID, userID)
}

// Update changes the level of an existing grant.
func (s *PermissionService) Update(ctx context.Context, actor Actor, folderID, userID, level string) (*models.FolderPermission, error) {
	ctx = ensureContext(ctx)

	parsed, err := permissions.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeGrantChange(ctx, actor, folderID, userID); err != nil {
		return nil, err
	}

	if err := s.stores.Permissions().Update(ctx, folderID, userID, parsed.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound.WithMessage("permission grant not found")
		}
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "permission.update",
		Resource:   "folder",
		ResourceID: folderID,
		Details:    map[string]any{"user_id": userID, "level": parsed.String()},
	})
	return s.stores.Permissions().Find(ctx, folderID, userID)
}

// Revoke removes the grant for (folder, user).
func (s *PermissionService) Revoke(ctx context.Context, actor Actor, folderID, userID string) error {
	ctx = ensureContext(ctx)

	if err := s.authorizeGrantChange(ctx, actor, folderID, userID); err != nil {
		return err
	}

	if err := s.stores.Permissions().Revoke(ctx, folderID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound.WithMessage("permission grant not found")
		}
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     "permission.revoke",
		Resource:   "folder",
		ResourceID: folderID,
		Details:    map[string]any{"user_id": userID},
	})
	return nil
}

// ListForFolder returns the folder's grants with user details for display.
func (s *PermissionService) ListForFolder(ctx context.Context, actor Actor, folderID string) ([]models.FolderPermission, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureFolderExists(ctx, folderID); err != nil {
		return nil, err
	}

	if !actor.IsAdmin {
		allowed, err := s.resolver.Check(ctx, actor.ID, folderID, permissions.ActionManagePermissions)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperrors.ErrForbidden
		}
	}

	return s.stores.Permissions().FindByFolderWithUserInfo(ctx, folderID)
}

// authorizeGrantChange enforces the two mutation rules: the actor needs admin
// level on the folder (or superuser), and may never touch their own grant.
func (s *PermissionService) authorizeGrantChange(ctx context.Context, actor Actor, folderID, userID string) error {
	if err := s.ensureFolderExists(ctx, folderID); err != nil {
		return err
	}

	if actor.ID == userID {
		return apperrors.NewInvalidOperation("users cannot modify their own permission grants")
	}

	if actor.IsAdmin {
		return nil
	}

	allowed, err := s.resolver.Check(ctx, actor.ID, folderID, permissions.ActionManagePermissions)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}

func (s *PermissionService) ensureFolderExists(ctx context.Context, folderID string) error {
	exists, err := s.stores.Folders().Exists(ctx, folderID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrNotFound.WithMessage("folder not found")
	}
	return nil
}
