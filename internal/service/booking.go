package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/eventbus"
	"example.com/clinic/internal/messaging"
	"example.com/clinic/internal/metrics"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/search"
)

// AppointmentUpdate carries the optional fields of a partial appointment edit.
type AppointmentUpdate struct {
	ScheduledTime *time.Time
	Notes         *string
	Diagnosis     *string
	Prescription  *string
}

// BookingService owns the appointment lifecycle: validation, atomic slot
// reservation, status transitions and the side effects after commit.
type BookingService struct {
	appointments repository.AppointmentRepository
	schedules    repository.ScheduleRepository
	doctors      repository.DoctorProfileRepository
	users        repository.UserRepository
	tasks        repository.TaskRepository
	bus          *eventbus.Bus
	queue        messaging.Client
	elastic      *search.ElasticClient
}

func NewBookingService(
	appointments repository.AppointmentRepository,
	schedules repository.ScheduleRepository,
	doctors repository.DoctorProfileRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	bus *eventbus.Bus,
	queue messaging.Client,
	elastic *search.ElasticClient,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		schedules:    schedules,
		doctors:      doctors,
		users:        users,
		tasks:        tasks,
		bus:          bus,
		queue:        queue,
		elastic:      elastic,
	}
}

// validateBooking runs the conflict checks in a fixed order so the caller
// always sees the first failing reason. Returns the resolved doctor user ID
// and the schedule; performs no writes. exclude skips one appointment from
// the double-booking count when revalidating a reschedule.
func (s *BookingService) validateBooking(
	ctx context.Context,
	scheduleID uuid.UUID,
	doctorIDHint *uuid.UUID,
	scheduledTime time.Time,
	patientID uuid.UUID,
	exclude *uuid.UUID,
) (uuid.UUID, *models.DoctorSchedule, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, nil, ErrScheduleUnavailable
		}
		return uuid.Nil, nil, err
	}
	if !schedule.IsActive {
		return uuid.Nil, nil, ErrScheduleUnavailable
	}

	profile, err := s.doctors.GetByID(ctx, schedule.DoctorProfileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, nil, ErrDoctorUnresolved
		}
		return uuid.Nil, nil, err
	}
	doctor, err := s.users.GetByID(ctx, profile.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, nil, ErrDoctorUnresolved
		}
		return uuid.Nil, nil, err
	}
	if !doctor.IsActive || doctor.Role != models.RoleDoctor {
		return uuid.Nil, nil, ErrDoctorUnresolved
	}

	if doctorIDHint != nil && *doctorIDHint != doctor.ID {
		return uuid.Nil, nil, ErrDoctorMismatch
	}

	if scheduledTime.Before(time.Now()) {
		return uuid.Nil, nil, ErrPastBooking
	}

	// Window bounds are inclusive on both ends.
	if scheduledTime.Before(schedule.StartTime) || scheduledTime.After(schedule.EndTime) {
		return uuid.Nil, nil, ErrOutsideWindow
	}

	active, err := s.appointments.CountActiveForSchedule(ctx, scheduleID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if active >= int64(schedule.MaxPatients) {
		return uuid.Nil, nil, ErrScheduleFull
	}

	// Uniqueness is per instant: two bookings for the same patient collide
	// only when their scheduled times are exactly equal, regardless of which
	// schedule holds them.
	clashes, err := s.appointments.CountPatientAtInstant(ctx, patientID, scheduledTime, exclude)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if clashes > 0 {
		return uuid.Nil, nil, ErrPatientDoubleBooked
	}

	return doctor.ID, schedule, nil
}

// CreateAppointment books a pending appointment and queues its confirmation.
// The capacity check runs twice: once here for a deterministic client-facing
// error, and again inside the reservation transaction under a row lock, which
// is the authoritative check.
func (s *BookingService) CreateAppointment(
	ctx context.Context,
	patientID uuid.UUID,
	doctorIDHint *uuid.UUID,
	scheduleID uuid.UUID,
	scheduledTime time.Time,
	reason string,
) (*models.Appointment, error) {
	collector := metrics.GetCollector()

	doctorID, _, err := s.validateBooking(ctx, scheduleID, doctorIDHint, scheduledTime, patientID, nil)
	if err != nil {
		collector.IncrementCounter(metrics.CounterBookingsRejected, 1)
		return nil, err
	}

	appointment := &models.Appointment{
		PatientID:     patientID,
		DoctorID:      &doctorID,
		ScheduleID:    &scheduleID,
		ScheduledTime: scheduledTime,
		Reason:        reason,
		Status:        models.AppointmentPending,
	}
	task := &models.BackgroundTaskRecord{
		TaskName: models.TaskScheduleAppointment,
		Status:   models.TaskQueued,
	}

	if err := s.appointments.Reserve(ctx, appointment, task); err != nil {
		collector.IncrementCounter(metrics.CounterBookingsRejected, 1)
		if errors.Is(err, repository.ErrCapacityExhausted) {
			return nil, ErrScheduleFull
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleUnavailable
		}
		return nil, err
	}
	collector.IncrementCounter(metrics.CounterBookingsCreated, 1)

	log.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("patient_id", patientID.String()).
		Str("schedule_id", scheduleID.String()).
		Time("scheduled_time", scheduledTime).
		Msg("appointment booked")

	// An enqueue failure leaves the task record queued for the reconciliation
	// job to pick up, so the booking itself still succeeds.
	if s.queue != nil {
		messageID, err := s.queue.SendConfirmationRequest(ctx, messaging.ConfirmationRequest{AppointmentID: appointment.ID})
		if err != nil {
			log.Error().Err(err).
				Str("appointment_id", appointment.ID.String()).
				Msg("failed to enqueue confirmation, leaving task for reconciliation")
		} else if err := s.tasks.SetExternalReference(ctx, task.ID, messageID); err != nil {
			log.Warn().Err(err).Msg("failed to record queue message reference")
		}
	}

	s.indexAppointment(ctx, appointment)

	if _, err := s.bus.Publish("appointment.created", map[string]interface{}{
		"appointment_id": appointment.ID.String(),
		"patient_id":     patientID.String(),
		"doctor_id":      doctorID.String(),
		"schedule_id":    scheduleID.String(),
		"scheduled_time": scheduledTime,
	}); err != nil {
		log.Error().Err(err).Msg("appointment.created handler failed")
	}

	return appointment, nil
}

// UpdateStatus applies a guarded status transition and publishes the change.
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus models.AppointmentStatus) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(appointment.Status, newStatus) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", appointment.Status, newStatus)
	}

	appointment.Status = newStatus
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	if _, err := s.bus.Publish("appointment.updated", map[string]interface{}{
		"appointment_id": appointment.ID.String(),
		"status":         string(newStatus),
	}); err != nil {
		log.Error().Err(err).Msg("appointment.updated handler failed")
	}

	return appointment, nil
}

// UpdateDetails applies a partial edit. Moving the appointment in time re-runs
// the conflict checks, with the appointment excluded from its own counts.
func (s *BookingService) UpdateDetails(ctx context.Context, id uuid.UUID, update AppointmentUpdate) (*models.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.ScheduledTime != nil && !update.ScheduledTime.Equal(appointment.ScheduledTime) {
		if appointment.ScheduleID != nil {
			_, _, err := s.validateBooking(ctx, *appointment.ScheduleID, appointment.DoctorID, *update.ScheduledTime, appointment.PatientID, &appointment.ID)
			if err != nil {
				return nil, err
			}
		}
		appointment.ScheduledTime = *update.ScheduledTime
	}
	if update.Notes != nil {
		appointment.Notes = update.Notes
	}
	if update.Diagnosis != nil {
		appointment.Diagnosis = update.Diagnosis
	}
	if update.Prescription != nil {
		appointment.Prescription = update.Prescription
	}

	if err := s.appointments.Update(ctx, appointment); err != nil {
		return nil, err
	}

	if _, err := s.bus.Publish("appointment.updated", map[string]interface{}{
		"appointment_id": appointment.ID.String(),
		"status":         string(appointment.Status),
	}); err != nil {
		log.Error().Err(err).Msg("appointment.updated handler failed")
	}

	return appointment, nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *BookingService) ListAppointments(ctx context.Context, filter repository.AppointmentFilter, offset, limit int) ([]models.Appointment, error) {
	return s.appointments.List(ctx, filter, offset, limit)
}

// indexAppointment pushes the appointment into the search index, best-effort.
func (s *BookingService) indexAppointment(ctx context.Context, appointment *models.Appointment) {
	if s.elastic == nil {
		return
	}

	patientName, doctorName := "", ""
	if patient, err := s.users.GetByID(ctx, appointment.PatientID); err == nil {
		patientName = patient.FullName
	}
	if appointment.DoctorID != nil {
		if doctor, err := s.users.GetByID(ctx, *appointment.DoctorID); err == nil {
			doctorName = doctor.FullName
		}
	}

	if err := s.elastic.IndexAppointment(ctx, appointment, patientName, doctorName); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID.String()).Msg("failed to index appointment")
	}
}
