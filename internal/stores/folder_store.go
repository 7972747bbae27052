package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/models"
)

type folderStore struct {
	db *gorm.DB
}

func (s *folderStore) Get(ctx context.Context, id string) (*models.Folder, error) {
	var folder models.Folder
	if err := s.db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("folder store: get: %w", err)
	}
	return &folder, nil
}

func (s *folderStore) FindByParent(ctx context.Context, parentID *string) ([]models.Folder, error) {
	query := s.db.WithContext(ctx).Model(&models.Folder{})
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}

	var folders []models.Folder
	if err := query.Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("folder store: find by parent: %w", err)
	}
	return folders, nil
}

func (s *folderStore) FindAll(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.db.WithContext(ctx).Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("folder store: find all: %w", err)
	}
	return folders, nil
}

func (s *folderStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Folder{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("folder store: exists: %w", err)
	}
	return count > 0, nil
}

func (s *folderStore) Create(ctx context.Context, folder *models.Folder) error {
	if err := s.db.WithContext(ctx).Create(folder).Error; err != nil {
		return fmt.Errorf("folder store: create: %w", err)
	}
	return nil
}

func (s *folderStore) Update(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Folder{}).Where("id = ?", id).Updates(patch).Error; err != nil {
		return fmt.Errorf("folder store: update: %w", err)
	}
	return nil
}

func (s *folderStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("folder store: delete: %w", err)
	}
	return nil
}
