package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/clinic/internal/cache"
	"example.com/clinic/internal/models"
)

func newDoctorService(doctors *MockDoctorProfileRepository, schedules *MockScheduleRepository, appointments *MockAppointmentRepository) *DoctorService {
	return &DoctorService{
		doctors:      doctors,
		schedules:    schedules,
		appointments: appointments,
		cache:        &cache.Cache{},
	}
}

func TestCreateScheduleRejectsOverlap(t *testing.T) {
	mockDoctors := new(MockDoctorProfileRepository)
	mockSchedules := new(MockScheduleRepository)
	service := newDoctorService(mockDoctors, mockSchedules, new(MockAppointmentRepository))

	profileID := uuid.New()
	start := time.Now().Add(time.Hour)
	end := start.Add(2 * time.Hour)

	mockDoctors.On("GetByID", mock.Anything, profileID).
		Return(&models.DoctorProfile{ID: profileID}, nil)
	mockSchedules.On("CountOverlapping", mock.Anything, profileID, start, end, (*uuid.UUID)(nil)).
		Return(int64(1), nil)

	_, err := service.CreateSchedule(context.Background(), profileID, ScheduleInput{
		StartTime:   start,
		EndTime:     end,
		MaxPatients: 3,
	})

	require.ErrorIs(t, err, ErrScheduleOverlap)
	mockSchedules.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateScheduleAllowsTouchingWindows(t *testing.T) {
	mockDoctors := new(MockDoctorProfileRepository)
	mockSchedules := new(MockScheduleRepository)
	service := newDoctorService(mockDoctors, mockSchedules, new(MockAppointmentRepository))

	profileID := uuid.New()
	start := time.Now().Add(time.Hour)
	end := start.Add(2 * time.Hour)

	mockDoctors.On("GetByID", mock.Anything, profileID).
		Return(&models.DoctorProfile{ID: profileID}, nil)
	// The strict-inequality overlap query treats a shared endpoint as no
	// overlap, so the repository reports zero.
	mockSchedules.On("CountOverlapping", mock.Anything, profileID, start, end, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	mockSchedules.On("Create", mock.Anything, mock.AnythingOfType("*models.DoctorSchedule")).Return(nil)

	schedule, err := service.CreateSchedule(context.Background(), profileID, ScheduleInput{
		StartTime:   start,
		EndTime:     end,
		MaxPatients: 3,
	})

	require.NoError(t, err)
	require.True(t, schedule.IsActive)
	mockSchedules.AssertExpectations(t)
}

func TestCreateScheduleRejectsInvertedWindow(t *testing.T) {
	service := newDoctorService(new(MockDoctorProfileRepository), new(MockScheduleRepository), new(MockAppointmentRepository))

	start := time.Now().Add(2 * time.Hour)
	_, err := service.CreateSchedule(context.Background(), uuid.New(), ScheduleInput{
		StartTime:   start,
		EndTime:     start.Add(-time.Hour),
		MaxPatients: 1,
	})

	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestUpdateScheduleExcludesItselfFromOverlapCheck(t *testing.T) {
	mockSchedules := new(MockScheduleRepository)
	service := newDoctorService(new(MockDoctorProfileRepository), mockSchedules, new(MockAppointmentRepository))

	profileID := uuid.New()
	scheduleID := uuid.New()
	start := time.Now().Add(time.Hour)
	end := start.Add(time.Hour)

	mockSchedules.On("GetByID", mock.Anything, scheduleID).Return(&models.DoctorSchedule{
		ID:              scheduleID,
		DoctorProfileID: profileID,
		StartTime:       start,
		EndTime:         end,
		MaxPatients:     1,
	}, nil)
	mockSchedules.On("CountOverlapping", mock.Anything, profileID, start, end, &scheduleID).
		Return(int64(0), nil)
	mockSchedules.On("Update", mock.Anything, mock.AnythingOfType("*models.DoctorSchedule")).Return(nil)

	updated, err := service.UpdateSchedule(context.Background(), scheduleID, ScheduleInput{
		StartTime:   start,
		EndTime:     end,
		MaxPatients: 5,
	})

	require.NoError(t, err)
	require.Equal(t, 5, updated.MaxPatients)
	mockSchedules.AssertExpectations(t)
}

func TestRemoveScheduleDeactivatesWhenBooked(t *testing.T) {
	mockSchedules := new(MockScheduleRepository)
	mockAppointments := new(MockAppointmentRepository)
	service := newDoctorService(new(MockDoctorProfileRepository), mockSchedules, mockAppointments)

	scheduleID := uuid.New()
	mockSchedules.On("GetByID", mock.Anything, scheduleID).
		Return(&models.DoctorSchedule{ID: scheduleID, DoctorProfileID: uuid.New()}, nil)
	mockAppointments.On("CountActiveForSchedule", mock.Anything, scheduleID).Return(int64(2), nil)
	mockSchedules.On("Deactivate", mock.Anything, scheduleID).Return(nil)

	deleted, err := service.RemoveSchedule(context.Background(), scheduleID)

	require.NoError(t, err)
	require.False(t, deleted)
	mockSchedules.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRemoveScheduleDeletesWhenUnbooked(t *testing.T) {
	mockSchedules := new(MockScheduleRepository)
	mockAppointments := new(MockAppointmentRepository)
	service := newDoctorService(new(MockDoctorProfileRepository), mockSchedules, mockAppointments)

	scheduleID := uuid.New()
	mockSchedules.On("GetByID", mock.Anything, scheduleID).
		Return(&models.DoctorSchedule{ID: scheduleID, DoctorProfileID: uuid.New()}, nil)
	mockAppointments.On("CountActiveForSchedule", mock.Anything, scheduleID).Return(int64(0), nil)
	mockSchedules.On("Delete", mock.Anything, scheduleID).Return(nil)

	deleted, err := service.RemoveSchedule(context.Background(), scheduleID)

	require.NoError(t, err)
	require.True(t, deleted)
	mockSchedules.AssertExpectations(t)
}
