package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/clinic/internal/db"
	"example.com/clinic/internal/models"
)

// ScheduleRepository provides access to doctor availability windows.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.DoctorSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorSchedule, error)
	ListByDoctor(ctx context.Context, doctorProfileID uuid.UUID, activeOnly bool) ([]models.DoctorSchedule, error)
	ListAvailable(ctx context.Context, from, to time.Time) ([]models.DoctorSchedule, error)
	// CountOverlapping returns the number of schedules for the doctor whose
	// window overlaps (start, end), active or not. exclude is skipped when
	// non-nil so updates do not collide with the row being updated.
	CountOverlapping(ctx context.Context, doctorProfileID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (int64, error)
	Update(ctx context.Context, schedule *models.DoctorSchedule) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *models.DoctorSchedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return errors.Wrap(err, "failed to create schedule")
	}

	return nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorSchedule, error) {
	var schedule models.DoctorSchedule
	if err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get schedule")
	}

	return &schedule, nil
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, doctorProfileID uuid.UUID, activeOnly bool) ([]models.DoctorSchedule, error) {
	var schedules []models.DoctorSchedule
	query := r.db.WithContext(ctx).
		Where("doctor_profile_id = ?", doctorProfileID).
		Order("start_time ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&schedules).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list schedules")
	}

	return schedules, nil
}

func (r *scheduleRepository) ListAvailable(ctx context.Context, from, to time.Time) ([]models.DoctorSchedule, error) {
	var schedules []models.DoctorSchedule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("end_time > ? AND start_time < ?", from, to).
		Order("start_time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list available schedules")
	}

	return schedules, nil
}

func (r *scheduleRepository) CountOverlapping(ctx context.Context, doctorProfileID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.DoctorSchedule{}).
		Where("doctor_profile_id = ?", doctorProfileID).
		Where("end_time > ? AND start_time < ?", start, end)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count overlapping schedules")
	}

	return count, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *models.DoctorSchedule) error {
	if err := r.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return errors.Wrap(err, "failed to update schedule")
	}

	return nil
}

func (r *scheduleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.DoctorSchedule{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to deactivate schedule")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DoctorSchedule{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete schedule")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
