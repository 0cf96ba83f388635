package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/messaging"
	"example.com/clinic/internal/metrics"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

const appointmentNotFoundMsg = "Appointment not found"

// ConfirmationService runs in the worker process. It consumes confirmation
// requests from the queue and drives the task records through their lifecycle.
type ConfirmationService struct {
	appointments repository.AppointmentRepository
	tasks        repository.TaskRepository
	queue        messaging.Client
}

func NewConfirmationService(appointments repository.AppointmentRepository, tasks repository.TaskRepository, queue messaging.Client) *ConfirmationService {
	return &ConfirmationService{
		appointments: appointments,
		tasks:        tasks,
		queue:        queue,
	}
}

// ProcessConfirmation handles one queue message. A nil return completes the
// message; an error abandons it for redelivery. Permanent failures (missing
// appointment, terminal status) mark the task failed and return nil so the
// broker does not retry work that can never succeed.
func (s *ConfirmationService) ProcessConfirmation(ctx context.Context, req messaging.ConfirmationRequest) error {
	collector := metrics.GetCollector()

	task, err := s.tasks.GetPendingByAppointment(ctx, req.AppointmentID, models.TaskScheduleAppointment)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// Redelivery after the record already advanced: record the rerun so
		// the outcome stays visible.
		task = &models.BackgroundTaskRecord{
			ID:            uuid.New(),
			TaskName:      models.TaskScheduleAppointment,
			Status:        models.TaskQueued,
			AppointmentID: &req.AppointmentID,
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return err
		}
	}

	// A record already running was claimed by a worker that died before
	// finishing; the redelivered message re-drives it instead of claiming.
	if task.Status == models.TaskQueued {
		if err := s.tasks.SetStatus(ctx, task.ID, models.TaskQueued, models.TaskRunning, nil); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Another worker claimed this record.
				log.Info().Str("task_id", task.ID.String()).Msg("task already claimed, skipping")
				return nil
			}
			return err
		}
	}

	appointment, err := s.appointments.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.failTask(ctx, task.ID, appointmentNotFoundMsg)
			collector.IncrementCounter(metrics.CounterTasksFailed, 1)
			return nil
		}
		s.failTask(ctx, task.ID, err.Error())
		collector.IncrementCounter(metrics.CounterTasksFailed, 1)
		return err
	}

	if !models.CanTransition(appointment.Status, models.AppointmentConfirmed) {
		s.failTask(ctx, task.ID, "appointment is "+string(appointment.Status))
		collector.IncrementCounter(metrics.CounterTasksFailed, 1)
		return nil
	}

	if err := s.appointments.ConfirmWithTask(ctx, appointment.ID, task.ID); err != nil {
		s.failTask(ctx, task.ID, err.Error())
		collector.IncrementCounter(metrics.CounterTasksFailed, 1)
		if errors.Is(err, repository.ErrConfirmSuperseded) {
			// The appointment went terminal between the transition check and
			// the confirm; retrying can never succeed.
			return nil
		}
		return err
	}

	collector.IncrementCounter(metrics.CounterAppointmentsConfirmed, 1)
	log.Info().
		Str("appointment_id", appointment.ID.String()).
		Str("task_id", task.ID.String()).
		Msg("appointment confirmed")

	return nil
}

// ReconcileStaleQueued re-enqueues confirmation requests for queued task
// records older than minAge, covering messages lost between the booking
// commit and the queue.
func (s *ConfirmationService) ReconcileStaleQueued(ctx context.Context, minAge time.Duration, batch int) error {
	cutoff := time.Now().Add(-minAge)
	stale, err := s.tasks.ListStaleQueued(ctx, cutoff, batch)
	if err != nil {
		return err
	}

	collector := metrics.GetCollector()
	collector.SetGauge(metrics.GaugeQueuedTasks, float64(len(stale)))

	for _, task := range stale {
		if task.AppointmentID == nil {
			continue
		}

		messageID, err := s.queue.SendConfirmationRequest(ctx, messaging.ConfirmationRequest{AppointmentID: *task.AppointmentID})
		if err != nil {
			log.Error().Err(err).
				Str("task_id", task.ID.String()).
				Msg("failed to re-enqueue stale task")
			continue
		}
		if err := s.tasks.SetExternalReference(ctx, task.ID, messageID); err != nil {
			log.Warn().Err(err).Str("task_id", task.ID.String()).Msg("failed to record re-enqueue reference")
		}

		collector.IncrementCounter(metrics.CounterTasksReconciled, 1)
		log.Info().
			Str("task_id", task.ID.String()).
			Str("appointment_id", task.AppointmentID.String()).
			Msg("stale task re-enqueued")
	}

	return nil
}

func (s *ConfirmationService) failTask(ctx context.Context, taskID uuid.UUID, msg string) {
	if err := s.tasks.SetStatus(ctx, taskID, models.TaskRunning, models.TaskFailed, &msg); err != nil {
		log.Error().Err(err).Str("task_id", taskID.String()).Msg("failed to mark task failed")
	}
}
