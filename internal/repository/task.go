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

// TaskRepository provides access to background task records.
type TaskRepository interface {
	Create(ctx context.Context, task *models.BackgroundTaskRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BackgroundTaskRecord, error)
	// GetPendingByAppointment returns the most recent queued or running record
	// for the appointment. Running records count so a redelivery re-drives a
	// task a crashed worker left claimed.
	GetPendingByAppointment(ctx context.Context, appointmentID uuid.UUID, taskName string) (*models.BackgroundTaskRecord, error)
	List(ctx context.Context, status *models.BackgroundTaskStatus, offset, limit int) ([]models.BackgroundTaskRecord, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.BackgroundTaskRecord, error)
	// ListStaleQueued returns queued records older than the cutoff, used by the
	// reconciliation job to re-drive tasks whose queue message was lost.
	ListStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]models.BackgroundTaskRecord, error)
	// SetStatus moves the record from one status to another. Returns ErrNotFound
	// when the record is no longer in the expected status, which keeps
	// at-least-once delivery from running the same task twice.
	SetStatus(ctx context.Context, id uuid.UUID, from, to models.BackgroundTaskStatus, errMsg *string) error
	SetExternalReference(ctx context.Context, id uuid.UUID, ref string) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.BackgroundTaskRecord) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return errors.Wrap(err, "failed to create task record")
	}

	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BackgroundTaskRecord, error) {
	var task models.BackgroundTaskRecord
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get task record")
	}

	return &task, nil
}

func (r *taskRepository) GetPendingByAppointment(ctx context.Context, appointmentID uuid.UUID, taskName string) (*models.BackgroundTaskRecord, error) {
	var task models.BackgroundTaskRecord
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Where("task_name = ?", taskName).
		Where("status IN ?", []models.BackgroundTaskStatus{models.TaskQueued, models.TaskRunning}).
		Order("created_at DESC").
		First(&task).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get pending task record")
	}

	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, status *models.BackgroundTaskStatus, offset, limit int) ([]models.BackgroundTaskRecord, error) {
	var tasks []models.BackgroundTaskRecord
	query := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list task records")
	}

	return tasks, nil
}

func (r *taskRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.BackgroundTaskRecord, error) {
	var tasks []models.BackgroundTaskRecord
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks for appointment")
	}

	return tasks, nil
}

func (r *taskRepository) ListStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]models.BackgroundTaskRecord, error) {
	var tasks []models.BackgroundTaskRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TaskQueued).
		Where("created_at < ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list stale queued tasks")
	}

	return tasks, nil
}

func (r *taskRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.BackgroundTaskStatus, errMsg *string) error {
	updates := map[string]interface{}{"status": to}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}

	result := r.db.WithContext(ctx).
		Model(&models.BackgroundTaskRecord{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update task status")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *taskRepository) SetExternalReference(ctx context.Context, id uuid.UUID, ref string) error {
	result := r.db.WithContext(ctx).
		Model(&models.BackgroundTaskRecord{}).
		Where("id = ?", id).
		Update("external_reference", ref)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to set task external reference")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
