package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cascadehq/flowdeck/internal/models"
	"github.com/cascadehq/flowdeck/pkg/logger"
)

// AuditService records administrative actions. Recording is best-effort: an
// audit failure is logged but never blocks the mutation it describes.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditService constructs an audit service.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, log: logger.WithModule("audit")}, nil
}

// AuditEntry describes a single recorded action.
type AuditEntry struct {
	ActorID    string
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]any
}

// Record persists the entry. Safe to call on a nil receiver so callers can
// treat auditing as optional.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil {
		return
	}
	ctx = ensureContext(ctx)

	row := models.AuditLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
	}
	if entry.Details != nil {
		if data, err := json.Marshal(entry.Details); err == nil {
			row.Details = datatypes.JSON(data)
		}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

// AuditListOptions filters and paginates the audit trail.
type AuditListOptions struct {
	ActorID  string
	Resource string
	Action   string
	Page     int
	PageSize int
}

// List returns a page of audit rows, newest first, with the total match count.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if opts.ActorID != "" {
		query = query.Where("actor_id = ?", opts.ActorID)
	}
	if opts.Resource != "" {
		query = query.Where("resource = ?", opts.Resource)
	}
	if opts.Action != "" {
		query = query.Where("action = ?", opts.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	var results []models.AuditLog
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}
	return results, total, nil
}

// Prune deletes audit rows created before the cutoff and reports how many went.
func (s *AuditService) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: prune: %w", result.Error)
	}
	return result.RowsAffected, nil
}
