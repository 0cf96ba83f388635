package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/clinic/internal/db"
	"example.com/clinic/internal/models"
)

// DoctorProfileRepository provides access to doctor profiles.
type DoctorProfileRepository interface {
	Create(ctx context.Context, profile *models.DoctorProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.DoctorProfile, error)
	List(ctx context.Context, specialization *string, offset, limit int) ([]models.DoctorProfile, error)
	Update(ctx context.Context, profile *models.DoctorProfile) error
}

type doctorProfileRepository struct {
	db *gorm.DB
}

func NewDoctorProfileRepository(db *gorm.DB) DoctorProfileRepository {
	return &doctorProfileRepository{db: db}
}

func (r *doctorProfileRepository) Create(ctx context.Context, profile *models.DoctorProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return errors.Wrap(err, "failed to create doctor profile")
	}

	return nil
}

func (r *doctorProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorProfile, error) {
	var profile models.DoctorProfile
	if err := r.db.WithContext(ctx).Preload("User").First(&profile, "id = ?", id).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get doctor profile")
	}

	return &profile, nil
}

func (r *doctorProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.DoctorProfile, error) {
	var profile models.DoctorProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get doctor profile by user")
	}

	return &profile, nil
}

func (r *doctorProfileRepository) List(ctx context.Context, specialization *string, offset, limit int) ([]models.DoctorProfile, error) {
	var profiles []models.DoctorProfile
	query := r.db.WithContext(ctx).Preload("User").Order("created_at DESC").Offset(offset).Limit(limit)
	if specialization != nil {
		query = query.Where("specialization = ?", *specialization)
	}
	if err := query.Find(&profiles).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list doctor profiles")
	}

	return profiles, nil
}

func (r *doctorProfileRepository) Update(ctx context.Context, profile *models.DoctorProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return errors.Wrap(err, "failed to update doctor profile")
	}

	return nil
}

// PatientProfileRepository provides access to patient profiles.
type PatientProfileRepository interface {
	Create(ctx context.Context, profile *models.PatientProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PatientProfile, error)
	Update(ctx context.Context, profile *models.PatientProfile) error
}

type patientProfileRepository struct {
	db *gorm.DB
}

func NewPatientProfileRepository(db *gorm.DB) PatientProfileRepository {
	return &patientProfileRepository{db: db}
}

func (r *patientProfileRepository) Create(ctx context.Context, profile *models.PatientProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return errors.Wrap(err, "failed to create patient profile")
	}

	return nil
}

func (r *patientProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	var profile models.PatientProfile
	if err := r.db.WithContext(ctx).Preload("User").First(&profile, "id = ?", id).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get patient profile")
	}

	return &profile, nil
}

func (r *patientProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.PatientProfile, error) {
	var profile models.PatientProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get patient profile by user")
	}

	return &profile, nil
}

func (r *patientProfileRepository) Update(ctx context.Context, profile *models.PatientProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return errors.Wrap(err, "failed to update patient profile")
	}

	return nil
}
