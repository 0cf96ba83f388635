package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/clinic/internal/db"
	"example.com/clinic/internal/models"
)

// ErrCapacityExhausted is returned by Reserve when the locked re-check finds
// the schedule already at max_patients.
var ErrCapacityExhausted = errors.New("schedule capacity exhausted")

// ErrConfirmSuperseded is returned by ConfirmWithTask when the appointment
// reached a terminal status before the confirmation committed.
var ErrConfirmSuperseded = errors.New("appointment no longer confirmable")

// AppointmentFilter narrows List queries.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *models.AppointmentStatus
	From      *time.Time
	To        *time.Time
}

// AppointmentRepository provides access to appointments and their task records.
type AppointmentRepository interface {
	// Reserve atomically books the appointment against its schedule. It locks
	// the schedule row, re-counts active appointments against max_patients and
	// inserts the appointment together with a queued confirmation task record
	// in the same transaction. Returns ErrCapacityExhausted when the window
	// filled up between validation and commit.
	Reserve(ctx context.Context, appointment *models.Appointment, task *models.BackgroundTaskRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	// ConfirmWithTask marks the appointment confirmed and the task succeeded
	// in a single transaction. Returns ErrConfirmSuperseded when the
	// appointment was cancelled or completed in the meantime, so a concurrent
	// cancellation is never overwritten.
	ConfirmWithTask(ctx context.Context, appointmentID, taskID uuid.UUID) error
	List(ctx context.Context, filter AppointmentFilter, offset, limit int) ([]models.Appointment, error)
	Update(ctx context.Context, appointment *models.Appointment) error
	CountActiveForSchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error)
	// CountPatientAtInstant counts the patient's non-cancelled appointments
	// booked at exactly scheduledTime, across all schedules. exclude is skipped
	// when non-nil so a reschedule does not collide with the appointment being
	// moved.
	CountPatientAtInstant(ctx context.Context, patientID uuid.UUID, scheduledTime time.Time, exclude *uuid.UUID) (int64, error)
}

type appointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Reserve(ctx context.Context, appointment *models.Appointment, task *models.BackgroundTaskRecord) error {
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if task != nil && task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var schedule models.DoctorSchedule
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&schedule, "id = ?", appointment.ScheduleID).Error
		if err != nil {
			if db.IsRecordNotFoundError(err) {
				return ErrNotFound
			}
			return errors.Wrap(err, "failed to lock schedule")
		}

		var active int64
		err = tx.Model(&models.Appointment{}).
			Where("schedule_id = ?", schedule.ID).
			Where("status <> ?", models.AppointmentCancelled).
			Count(&active).Error
		if err != nil {
			return errors.Wrap(err, "failed to count active appointments")
		}
		if active >= int64(schedule.MaxPatients) {
			return ErrCapacityExhausted
		}

		if err := tx.Create(appointment).Error; err != nil {
			return errors.Wrap(err, "failed to create appointment")
		}
		if task != nil {
			task.AppointmentID = &appointment.ID
			if err := tx.Create(task).Error; err != nil {
				return errors.Wrap(err, "failed to create task record")
			}
		}

		return nil
	})

	return err
}

func (r *appointmentRepository) ConfirmWithTask(ctx context.Context, appointmentID, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The status condition keeps a cancellation committed after the
		// caller's transition check from being resurrected to confirmed.
		result := tx.Model(&models.Appointment{}).
			Where("id = ?", appointmentID).
			Where("status IN ?", []models.AppointmentStatus{models.AppointmentPending, models.AppointmentConfirmed}).
			Update("status", models.AppointmentConfirmed)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to confirm appointment")
		}
		if result.RowsAffected == 0 {
			return ErrConfirmSuperseded
		}

		result = tx.Model(&models.BackgroundTaskRecord{}).
			Where("id = ?", taskID).
			Update("status", models.TaskSucceeded)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to mark task succeeded")
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Schedule").
		First(&appointment, "id = ?", id).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get appointment")
	}

	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter AppointmentFilter, offset, limit int) ([]models.Appointment, error) {
	var appointments []models.Appointment
	query := r.db.WithContext(ctx).Order("scheduled_time DESC").Offset(offset).Limit(limit)
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		query = query.Where("doctor_id = ?", *filter.DoctorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("scheduled_time >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("scheduled_time < ?", *filter.To)
	}
	if err := query.Find(&appointments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list appointments")
	}

	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	if err := r.db.WithContext(ctx).Save(appointment).Error; err != nil {
		return errors.Wrap(err, "failed to update appointment")
	}

	return nil
}

func (r *appointmentRepository) CountActiveForSchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("schedule_id = ?", scheduleID).
		Where("status <> ?", models.AppointmentCancelled).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active appointments")
	}

	return count, nil
}

func (r *appointmentRepository) CountPatientAtInstant(ctx context.Context, patientID uuid.UUID, scheduledTime time.Time, exclude *uuid.UUID) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("patient_id = ?", patientID).
		Where("status <> ?", models.AppointmentCancelled).
		Where("scheduled_time = ?", scheduledTime)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	err := query.Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to count patient appointments at instant")
	}

	return count, nil
}
