package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/clinic/internal/eventbus"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// bookingFixture wires a BookingService against mocks with one doctor, one
// schedule two hours from now and one patient.
type bookingFixture struct {
	service    *BookingService
	appts      *MockAppointmentRepository
	schedules  *MockScheduleRepository
	doctors    *MockDoctorProfileRepository
	users      *MockUserRepository
	tasks      *MockTaskRepository
	queue      *MockQueueClient
	bus        *eventbus.Bus
	schedule   *models.DoctorSchedule
	doctorUser *models.User
	patientID  uuid.UUID
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	f := &bookingFixture{
		appts:     new(MockAppointmentRepository),
		schedules: new(MockScheduleRepository),
		doctors:   new(MockDoctorProfileRepository),
		users:     new(MockUserRepository),
		tasks:     new(MockTaskRepository),
		queue:     new(MockQueueClient),
		bus:       eventbus.New(),
		patientID: uuid.New(),
	}

	profileID := uuid.New()
	doctorUserID := uuid.New()
	f.doctorUser = &models.User{
		ID:       doctorUserID,
		Role:     models.RoleDoctor,
		IsActive: true,
		FullName: "Dr. Achieng",
	}
	f.schedule = &models.DoctorSchedule{
		ID:              uuid.New(),
		DoctorProfileID: profileID,
		StartTime:       time.Now().Add(1 * time.Hour),
		EndTime:         time.Now().Add(3 * time.Hour),
		MaxPatients:     2,
		IsActive:        true,
	}

	f.schedules.On("GetByID", mock.Anything, f.schedule.ID).Return(f.schedule, nil)
	f.doctors.On("GetByID", mock.Anything, profileID).
		Return(&models.DoctorProfile{ID: profileID, UserID: doctorUserID}, nil)
	f.users.On("GetByID", mock.Anything, doctorUserID).Return(f.doctorUser, nil)

	f.service = &BookingService{
		appointments: f.appts,
		schedules:    f.schedules,
		doctors:      f.doctors,
		users:        f.users,
		tasks:        f.tasks,
		bus:          f.bus,
		queue:        f.queue,
	}

	return f
}

func TestCreateAppointmentBooksAndQueuesConfirmation(t *testing.T) {
	f := newBookingFixture(t)
	when := f.schedule.StartTime.Add(30 * time.Minute)

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(0), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	f.appts.On("Reserve", mock.Anything, mock.AnythingOfType("*models.Appointment"), mock.AnythingOfType("*models.BackgroundTaskRecord")).
		Return(nil)
	f.queue.On("SendConfirmationRequest", mock.Anything, mock.AnythingOfType("messaging.ConfirmationRequest")).
		Return("msg-1", nil)
	f.tasks.On("SetExternalReference", mock.Anything, mock.AnythingOfType("uuid.UUID"), "msg-1").Return(nil)

	var published []eventbus.Event
	f.bus.Subscribe("appointment.created", func(e eventbus.Event) error {
		published = append(published, e)
		return nil
	})

	appointment, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "checkup")

	require.NoError(t, err)
	require.NotNil(t, appointment)
	require.Equal(t, models.AppointmentPending, appointment.Status)
	require.Equal(t, f.doctorUser.ID, *appointment.DoctorID)
	require.Len(t, published, 1)
	require.Equal(t, appointment.ID.String(), published[0].Payload["appointment_id"])
	f.appts.AssertExpectations(t)
	f.queue.AssertExpectations(t)
}

func TestCreateAppointmentRejectsPastTime(t *testing.T) {
	f := newBookingFixture(t)
	// Window already underway so only the past check fires.
	f.schedule.StartTime = time.Now().Add(-2 * time.Hour)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, time.Now().Add(-1*time.Hour), "checkup")

	require.ErrorIs(t, err, ErrPastBooking)
}

func TestCreateAppointmentRejectsTimeOutsideWindow(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, f.schedule.EndTime.Add(time.Minute), "checkup")

	require.ErrorIs(t, err, ErrOutsideWindow)
}

func TestCreateAppointmentRejectsInactiveSchedule(t *testing.T) {
	f := newBookingFixture(t)
	f.schedule.IsActive = false

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, f.schedule.StartTime, "checkup")

	require.ErrorIs(t, err, ErrScheduleUnavailable)
}

func TestCreateAppointmentRejectsDoctorMismatch(t *testing.T) {
	f := newBookingFixture(t)
	otherDoctor := uuid.New()

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, &otherDoctor, f.schedule.ID, f.schedule.StartTime.Add(time.Minute), "checkup")

	require.ErrorIs(t, err, ErrDoctorMismatch)
}

func TestCreateAppointmentRejectsFullSchedule(t *testing.T) {
	f := newBookingFixture(t)

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(2), nil)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, f.schedule.StartTime.Add(time.Minute), "checkup")

	require.ErrorIs(t, err, ErrScheduleFull)
}

// The locked re-check inside the reservation can still fail after the
// client-facing validation passed; the caller sees the same error.
func TestCreateAppointmentCapacityRaceSurfacesScheduleFull(t *testing.T) {
	f := newBookingFixture(t)
	when := f.schedule.StartTime.Add(time.Minute)

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(1), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	f.appts.On("Reserve", mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrCapacityExhausted)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "checkup")

	require.ErrorIs(t, err, ErrScheduleFull)
}

func TestCreateAppointmentRejectsDoubleBookedPatient(t *testing.T) {
	f := newBookingFixture(t)
	when := f.schedule.StartTime.Add(time.Minute)

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(0), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(1), nil)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "checkup")

	require.ErrorIs(t, err, ErrPatientDoubleBooked)
}

// Two schedules can share an endpoint; what collides is the instant itself.
// A patient holding 10:00 in one schedule cannot also take 10:00 where the
// next window begins.
func TestCreateAppointmentRejectsSameInstantInTouchingSchedule(t *testing.T) {
	f := newBookingFixture(t)
	// The window start doubles as the previous window's end.
	when := f.schedule.StartTime

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(0), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(1), nil)

	_, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "checkup")

	require.ErrorIs(t, err, ErrPatientDoubleBooked)
	f.appts.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

// Holding one slot in a window does not block a second booking in the same
// window at a different time, as long as capacity allows it.
func TestCreateAppointmentAllowsDifferentInstantSameWindow(t *testing.T) {
	f := newBookingFixture(t)
	when := f.schedule.StartTime.Add(90 * time.Minute)

	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(1), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	f.appts.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.queue.On("SendConfirmationRequest", mock.Anything, mock.Anything).Return("msg-3", nil)
	f.tasks.On("SetExternalReference", mock.Anything, mock.Anything, "msg-3").Return(nil)

	appointment, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "follow-up")

	require.NoError(t, err)
	require.Equal(t, models.AppointmentPending, appointment.Status)
	f.appts.AssertExpectations(t)
}

func TestCreateAppointmentSucceedsWhenEnqueueFails(t *testing.T) {
	f := newBookingFixture(t)

	when := f.schedule.StartTime.Add(time.Minute)
	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(0), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	f.appts.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.queue.On("SendConfirmationRequest", mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)

	appointment, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "checkup")

	// The booking stands; the queued task record is left for reconciliation.
	require.NoError(t, err)
	require.NotNil(t, appointment)
	f.tasks.AssertNotCalled(t, "SetExternalReference", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	f := newBookingFixture(t)
	id := uuid.New()

	f.appts.On("GetByID", mock.Anything, id).Return(&models.Appointment{
		ID:     id,
		Status: models.AppointmentCancelled,
	}, nil)

	_, err := f.service.UpdateStatus(context.Background(), id, models.AppointmentConfirmed)

	require.ErrorIs(t, err, ErrInvalidTransition)
	f.appts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateStatusPublishesUpdateEvent(t *testing.T) {
	f := newBookingFixture(t)
	id := uuid.New()

	f.appts.On("GetByID", mock.Anything, id).Return(&models.Appointment{
		ID:     id,
		Status: models.AppointmentPending,
	}, nil)
	f.appts.On("Update", mock.Anything, mock.AnythingOfType("*models.Appointment")).Return(nil)

	var published []eventbus.Event
	f.bus.Subscribe("appointment.updated", func(e eventbus.Event) error {
		published = append(published, e)
		return nil
	})

	appointment, err := f.service.UpdateStatus(context.Background(), id, models.AppointmentCancelled)

	require.NoError(t, err)
	require.Equal(t, models.AppointmentCancelled, appointment.Status)
	require.Len(t, published, 1)
	require.Equal(t, "cancelled", published[0].Payload["status"])
}

func TestUpdateDetailsRevalidatesOnReschedule(t *testing.T) {
	f := newBookingFixture(t)
	id := uuid.New()
	newTime := f.schedule.StartTime.Add(90 * time.Minute)

	f.appts.On("GetByID", mock.Anything, id).Return(&models.Appointment{
		ID:            id,
		PatientID:     f.patientID,
		DoctorID:      &f.doctorUser.ID,
		ScheduleID:    &f.schedule.ID,
		ScheduledTime: f.schedule.StartTime.Add(30 * time.Minute),
		Status:        models.AppointmentPending,
	}, nil)
	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(1), nil)
	// The appointment being moved is excluded from its own clash count.
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, newTime, &id).
		Return(int64(0), nil)
	f.appts.On("Update", mock.Anything, mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := f.service.UpdateDetails(context.Background(), id, AppointmentUpdate{ScheduledTime: &newTime})

	require.NoError(t, err)
	require.True(t, appointment.ScheduledTime.Equal(newTime))
	f.appts.AssertExpectations(t)
}

func TestUpdateDetailsRejectsRescheduleOutsideWindow(t *testing.T) {
	f := newBookingFixture(t)
	id := uuid.New()
	newTime := f.schedule.EndTime.Add(time.Hour)

	f.appts.On("GetByID", mock.Anything, id).Return(&models.Appointment{
		ID:            id,
		PatientID:     f.patientID,
		DoctorID:      &f.doctorUser.ID,
		ScheduleID:    &f.schedule.ID,
		ScheduledTime: f.schedule.StartTime.Add(30 * time.Minute),
		Status:        models.AppointmentPending,
	}, nil)

	_, err := f.service.UpdateDetails(context.Background(), id, AppointmentUpdate{ScheduledTime: &newTime})

	require.ErrorIs(t, err, ErrOutsideWindow)
	f.appts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// Cancelling releases the slot: with the cancelled appointment excluded from
// the active count, the same patient can book the window again.
func TestCancelThenRebookSameWindow(t *testing.T) {
	f := newBookingFixture(t)
	id := uuid.New()

	f.appts.On("GetByID", mock.Anything, id).Return(&models.Appointment{
		ID:         id,
		PatientID:  f.patientID,
		ScheduleID: &f.schedule.ID,
		Status:     models.AppointmentPending,
	}, nil)
	f.appts.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.UpdateStatus(context.Background(), id, models.AppointmentCancelled)
	require.NoError(t, err)

	when := f.schedule.StartTime.Add(time.Minute)
	f.appts.On("CountActiveForSchedule", mock.Anything, f.schedule.ID).Return(int64(0), nil)
	f.appts.On("CountPatientAtInstant", mock.Anything, f.patientID, when, (*uuid.UUID)(nil)).
		Return(int64(0), nil)
	f.appts.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.queue.On("SendConfirmationRequest", mock.Anything, mock.Anything).Return("msg-2", nil)
	f.tasks.On("SetExternalReference", mock.Anything, mock.Anything, "msg-2").Return(nil)

	rebooked, err := f.service.CreateAppointment(context.Background(), f.patientID, nil, f.schedule.ID, when, "follow-up")

	require.NoError(t, err)
	require.Equal(t, models.AppointmentPending, rebooked.Status)
}
