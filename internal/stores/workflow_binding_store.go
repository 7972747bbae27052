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

type workflowBindingStore struct {
	db *gorm.DB
}

func (s *workflowBindingStore) FindByWorkflow(ctx context.Context, workflowID string) (*models.WorkflowBinding, error) {
	var binding models.WorkflowBinding
	err := s.db.WithContext(ctx).First(&binding, "workflow_id = ?", workflowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow binding store: find by workflow: %w", err)
	}
	return &binding, nil
}

func (s *workflowBindingStore) FindByFolder(ctx context.Context, folderID string) ([]models.WorkflowBinding, error) {
	var bindings []models.WorkflowBinding
	if err := s.db.WithContext(ctx).Where("folder_id = ?", folderID).Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("workflow binding store: find by folder: %w", err)
	}
	return bindings, nil
}

func (s *workflowBindingStore) FindByFolders(ctx context.Context, folderIDs []string) ([]models.WorkflowBinding, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	var bindings []models.WorkflowBinding
	if err := s.db.WithContext(ctx).Where("folder_id IN ?", folderIDs).Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("workflow binding store: find by folders: %w", err)
	}
	return bindings, nil
}

// Assign moves the workflow to the folder, replacing any previous binding. The
// unique index on workflow_id keeps the mapping one-to-one.
func (s *workflowBindingStore) Assign(ctx context.Context, workflowID, folderID, assignedBy string) error {
	binding := models.WorkflowBinding{
		WorkflowID: workflowID,
		FolderID:   folderID,
		AssignedBy: assignedBy,
		AssignedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workflow_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"folder_id", "assigned_by", "assigned_at", "updated_at"}),
		}).
		Create(&binding).Error
	if err != nil {
		return fmt.Errorf("workflow binding store: assign: %w", err)
	}
	return nil
}

func (s *workflowBindingStore) AssignMany(ctx context.Context, workflowIDs []string, folderID, assignedBy string) error {
	for _, workflowID := range workflowIDs {
		if err := s.Assign(ctx, workflowID, folderID, assignedBy); err != nil {
			return err
		}
	}
	return nil
}

func (s *workflowBindingStore) Unassign(ctx context.Context, workflowID string) error {
	err := s.db.WithContext(ctx).
		Delete(&models.WorkflowBinding{}, "workflow_id = ?", workflowID).Error
	if err != nil {
		return fmt.Errorf("workflow binding store: unassign: %w", err)
	}
	return nil
}

func (s *workflowBindingStore) UnassignAllForFolder(ctx context.Context, folderID string) error {
	err := s.db.WithContext(ctx).
		Delete(&models.WorkflowBinding{}, "folder_id = ?", folderID).Error
	if err != nil {
		return fmt.Errorf("workflow binding store: unassign all: %w", err)
	}
	return nil
}

func (s *workflowBindingStore) CountByFolder(ctx context.Context) (map[string]int64, error) {
	type row struct {
		FolderID string
		Total    int64
	}

	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.WorkflowBinding{}).
		Select("folder_id, COUNT(*) AS total").
		Group("folder_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("workflow binding store: count by folder: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.FolderID] = r.Total
	}
	return counts, nil
}
