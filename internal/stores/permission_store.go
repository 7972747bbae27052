package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cascadehq/flowdeck/internal/models"
)

type permissionStore struct {
	db *gorm.DB
}

func (s *permissionStore) Find(ctx context.Context, folderID, userID string) (*models.FolderPermission, error) {
	var grant models.FolderPermission
	err := s.db.WithContext(ctx).
		First(&grant, "folder_id = ? AND user_id = ?", folderID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("permission store: find: %w", err)
	}
	return &grant, nil
}

func (s *permissionStore) FindForFolders(ctx context.Context, folderIDs []string, userID string) ([]models.FolderPermission, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	var grants []models.FolderPermission
	err := s.db.WithContext(ctx).
		Where("folder_id IN ? AND user_id = ?", folderIDs, userID).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("permission store: find for folders: %w", err)
	}
	return grants, nil
}

func (s *permissionStore) FindByUser(ctx context.Context, userID string) ([]models.FolderPermission, error) {
	var grants []models.FolderPermission
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("permission store: find by user: %w", err)
	}
	return grants, nil
}

func (s *permissionStore) FindByFolderWithUserInfo(ctx context.Context, folderID string) ([]models.FolderPermission, error) {
	var grants []models.FolderPermission
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("folder_id = ?", folderID).
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("permission store: find by folder: %w", err)
	}
	return grants, nil
}

// Upsert relies on the (folder_id, user_id) unique index so concurrent grants
// cannot produce duplicate rows.
func (s *permissionStore) Upsert(ctx context.Context, folderID, userID, level, grantedBy string) error {
	grant := models.FolderPermission{
		FolderID:  folderID,
		UserID:    userID,
		Level:     level,
		GrantedBy: grantedBy,
		GrantedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "folder_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"level", "granted_by", "granted_at", "updated_at"}),
		}).
		Create(&grant).Error
	if err != nil {
		return fmt.Errorf("permission store: upsert: %w", err)
	}
	return nil
}

func (s *permissionStore) Update(ctx context.Context, folderID, userID, level string) error {
	result := s.db.WithContext(ctx).
		Model(&models.FolderPermission{}).
		Where("folder_id = ? AND user_id = ?", folderID, userID).
		Updates(map[string]any{"level": level, "granted_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("permission store: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *permissionStore) Revoke(ctx context.Context, folderID, userID string) error {
	result := s.db.WithContext(ctx).
		Delete(&models.FolderPermission{}, "folder_id = ? AND user_id = ?", folderID, userID)
	if result.Error != nil {
		return fmt.Errorf("permission store: revoke: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *permissionStore) RevokeAllForFolder(ctx context.Context, folderID string) error {
	err := s.db.WithContext(ctx).
		Delete(&models.FolderPermission{}, "folder_id = ?", folderID).Error
	if err != nil {
		return fmt.Errorf("permission store: revoke all: %w", err)
	}
	return nil
}
