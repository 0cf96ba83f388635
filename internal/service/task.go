package service

import (
	"context"

	"github.com/google/uuid"

	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// TaskService exposes read access to background task records.
type TaskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*models.BackgroundTaskRecord, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context, status *models.BackgroundTaskStatus, offset, limit int) ([]models.BackgroundTaskRecord, error) {
	return s.tasks.List(ctx, status, offset, limit)
}

// ListForAppointment returns every task recorded for the appointment.
func (s *TaskService) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.BackgroundTaskRecord, error) {
	return s.tasks.ListByAppointment(ctx, appointmentID)
}
