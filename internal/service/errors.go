package service

import "github.com/pkg/errors"

// Booking validation errors, in the order the checks run.
var (
	ErrScheduleUnavailable = errors.New("schedule does not exist or is not active")
	ErrDoctorUnresolved    = errors.New("schedule does not resolve to an active doctor")
	ErrDoctorMismatch      = errors.New("requested doctor does not own the schedule")
	ErrPastBooking         = errors.New("cannot book an appointment in the past")
	ErrOutsideWindow       = errors.New("requested time is outside the schedule window")
	ErrScheduleFull        = errors.New("schedule has reached its patient capacity")
	ErrPatientDoubleBooked = errors.New("patient already has an appointment at this time")
)

var (
	// ErrScheduleOverlap is returned when a schedule window collides with
	// another window of the same doctor.
	ErrScheduleOverlap = errors.New("schedule overlaps an existing schedule")

	// ErrInvalidTransition is returned for an illegal appointment status change.
	ErrInvalidTransition = errors.New("invalid appointment status transition")

	// ErrInvalidSchedule is returned when a schedule window is malformed.
	ErrInvalidSchedule = errors.New("schedule end time must be after start time")

	// ErrEmailTaken is returned when registering with an email that already exists.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden is returned when the principal may not perform the action.
	ErrForbidden = errors.New("operation not permitted for this user")
)
