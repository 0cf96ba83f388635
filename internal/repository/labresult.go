package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/clinic/internal/db"
	"example.com/clinic/internal/models"
)

// LabResultRepository provides access to lab results.
type LabResultRepository interface {
	Create(ctx context.Context, result *models.LabResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LabResult, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, offset, limit int) ([]models.LabResult, error)
}

type labResultRepository struct {
	db *gorm.DB
}

func NewLabResultRepository(db *gorm.DB) LabResultRepository {
	return &labResultRepository{db: db}
}

func (r *labResultRepository) Create(ctx context.Context, result *models.LabResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(result).Error; err != nil {
		return errors.Wrap(err, "failed to create lab result")
	}

	return nil
}

func (r *labResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LabResult, error) {
	var result models.LabResult
	if err := r.db.WithContext(ctx).First(&result, "id = ?", id).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get lab result")
	}

	return &result, nil
}

func (r *labResultRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, offset, limit int) ([]models.LabResult, error) {
	var results []models.LabResult
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("recorded_at DESC").
		Offset(offset).Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lab results")
	}

	return results, nil
}
