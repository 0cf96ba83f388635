package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"example.com/clinic/internal/messaging"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// Mock repositories for testing

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role *models.UserRole, offset, limit int) ([]models.User, error) {
	args := m.Called(ctx, role, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockDoctorProfileRepository struct {
	mock.Mock
}

func (m *MockDoctorProfileRepository) Create(ctx context.Context, profile *models.DoctorProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockDoctorProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DoctorProfile), args.Error(1)
}

func (m *MockDoctorProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.DoctorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DoctorProfile), args.Error(1)
}

func (m *MockDoctorProfileRepository) List(ctx context.Context, specialization *string, offset, limit int) ([]models.DoctorProfile, error) {
	args := m.Called(ctx, specialization, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DoctorProfile), args.Error(1)
}

func (m *MockDoctorProfileRepository) Update(ctx context.Context, profile *models.DoctorProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, schedule *models.DoctorSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DoctorSchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleRepository) ListByDoctor(ctx context.Context, doctorProfileID uuid.UUID, activeOnly bool) ([]models.DoctorSchedule, error) {
	args := m.Called(ctx, doctorProfileID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleRepository) ListAvailable(ctx context.Context, from, to time.Time) ([]models.DoctorSchedule, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DoctorSchedule), args.Error(1)
}

func (m *MockScheduleRepository) CountOverlapping(ctx context.Context, doctorProfileID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (int64, error) {
	args := m.Called(ctx, doctorProfileID, start, end, exclude)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleRepository) Update(ctx context.Context, schedule *models.DoctorSchedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Reserve(ctx context.Context, appointment *models.Appointment, task *models.BackgroundTaskRecord) error {
	args := m.Called(ctx, appointment, task)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ConfirmWithTask(ctx context.Context, appointmentID, taskID uuid.UUID) error {
	args := m.Called(ctx, appointmentID, taskID)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) List(ctx context.Context, filter repository.AppointmentFilter, offset, limit int) ([]models.Appointment, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) CountActiveForSchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAppointmentRepository) CountPatientAtInstant(ctx context.Context, patientID uuid.UUID, scheduledTime time.Time, exclude *uuid.UUID) (int64, error) {
	args := m.Called(ctx, patientID, scheduledTime, exclude)
	return args.Get(0).(int64), args.Error(1)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *models.BackgroundTaskRecord) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BackgroundTaskRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BackgroundTaskRecord), args.Error(1)
}

func (m *MockTaskRepository) GetPendingByAppointment(ctx context.Context, appointmentID uuid.UUID, taskName string) (*models.BackgroundTaskRecord, error) {
	args := m.Called(ctx, appointmentID, taskName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BackgroundTaskRecord), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, status *models.BackgroundTaskStatus, offset, limit int) ([]models.BackgroundTaskRecord, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BackgroundTaskRecord), args.Error(1)
}

func (m *MockTaskRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]models.BackgroundTaskRecord, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BackgroundTaskRecord), args.Error(1)
}

func (m *MockTaskRepository) ListStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]models.BackgroundTaskRecord, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BackgroundTaskRecord), args.Error(1)
}

func (m *MockTaskRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to models.BackgroundTaskStatus, errMsg *string) error {
	args := m.Called(ctx, id, from, to, errMsg)
	return args.Error(0)
}

func (m *MockTaskRepository) SetExternalReference(ctx context.Context, id uuid.UUID, ref string) error {
	args := m.Called(ctx, id, ref)
	return args.Error(0)
}

type MockQueueClient struct {
	mock.Mock
}

func (m *MockQueueClient) SendConfirmationRequest(ctx context.Context, req messaging.ConfirmationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockQueueClient) ProcessMessages(ctx context.Context, handler func(ctx context.Context, req messaging.ConfirmationRequest) error) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

func (m *MockQueueClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
