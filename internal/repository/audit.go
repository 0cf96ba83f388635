package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/clinic/internal/models"
)

// AuditLogRepository provides access to the audit log.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, eventName *string, offset, limit int) ([]models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(err, "failed to create audit log entry")
	}

	return nil
}

func (r *auditLogRepository) List(ctx context.Context, eventName *string, offset, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	query := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit)
	if eventName != nil {
		query = query.Where("event_name = ?", *eventName)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list audit log entries")
	}

	return entries, nil
}
