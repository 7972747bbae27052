// Package stores defines the persistence contracts the permission engine is
// written against, together with their GORM implementations. Services receive
// these handles through constructor injection; connection lifecycle belongs to
// the composing application.
package stores

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/models"
)

// FolderStore persists folder records. Single-row finders return (nil, nil)
// when no record matches; absence is not an error at this layer.
type FolderStore interface {
	Get(ctx context.Context, id string) (*models.Folder, error)
	FindByParent(ctx context.Context, parentID *string) ([]models.Folder, error)
	FindAll(ctx context.Context) ([]models.Folder, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, folder *models.Folder) error
	Update(ctx context.Context, id string, patch map[string]any) error
	Delete(ctx context.Context, id string) error
}

// PermissionStore persists one grant row per (folder, user) pair. Upsert
// enforces that invariant through the store's unique constraint.
type PermissionStore interface {
	Find(ctx context.Context, folderID, userID string) (*models.FolderPermission, error)
	FindForFolders(ctx context.Context, folderIDs []string, userID string) ([]models.FolderPermission, error)
	FindByUser(ctx context.Context, userID string) ([]models.FolderPermission, error)
	FindByFolderWithUserInfo(ctx context.Context, folderID string) ([]models.FolderPermission, error)
	Upsert(ctx context.Context, folderID, userID, level, grantedBy string) error
	Update(ctx context.Context, folderID, userID, level string) error
	Revoke(ctx context.Context, folderID, userID string) error
	RevokeAllForFolder(ctx context.Context, folderID string) error
}

// WorkflowBindingStore persists the workflow → folder mapping. A workflow with
// no row is unassigned.
type WorkflowBindingStore interface {
	FindByWorkflow(ctx context.Context, workflowID string) (*models.WorkflowBinding, error)
	FindByFolder(ctx context.Context, folderID string) ([]models.WorkflowBinding, error)
	FindByFolders(ctx context.Context, folderIDs []string) ([]models.WorkflowBinding, error)
	Assign(ctx context.Context, workflowID, folderID, assignedBy string) error
	AssignMany(ctx context.Context, workflowIDs []string, folderID, assignedBy string) error
	Unassign(ctx context.Context, workflowID string) error
	UnassignAllForFolder(ctx context.Context, folderID string) error
	CountByFolder(ctx context.Context) (map[string]int64, error)
}

// Stores bundles the persistence handles and a transaction runner so
// multi-store mutations (cascade delete) can run atomically.
type Stores interface {
	Folders() FolderStore
	Permissions() PermissionStore
	Bindings() WorkflowBindingStore

	// Transaction runs fn against store handles bound to a single database
	// transaction; returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Stores) error) error
}

type gormStores struct {
	db *gorm.DB
}

// New wires GORM-backed stores over the provided database handle.
func New(db *gorm.DB) (Stores, error) {
	if db == nil {
		return nil, errors.New("stores: db is required")
	}
	return &gormStores{db: db}, nil
}

func (s *gormStores) Folders() FolderStore           { return &folderStore{db: s.db} }
func (s *gormStores) Permissions() PermissionStore   { return &permissionStore{db: s.db} }
func (s *gormStores) Bindings() WorkflowBindingStore { return &workflowBindingStore{db: s.db} }

func (s *gormStores) Transaction(ctx context.Context, fn func(tx Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStores{db: tx})
	})
}
