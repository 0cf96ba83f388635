package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/cache"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

const scheduleCacheTTL = 5 * time.Minute

// ScheduleInput carries the fields for creating or editing a schedule window.
type ScheduleInput struct {
	StartTime   time.Time
	EndTime     time.Time
	MaxPatients int
}

// DoctorService manages doctor profiles and availability schedules.
type DoctorService struct {
	doctors      repository.DoctorProfileRepository
	schedules    repository.ScheduleRepository
	appointments repository.AppointmentRepository
	cache        *cache.Cache
}

func NewDoctorService(
	doctors repository.DoctorProfileRepository,
	schedules repository.ScheduleRepository,
	appointments repository.AppointmentRepository,
	cache *cache.Cache,
) *DoctorService {
	return &DoctorService{
		doctors:      doctors,
		schedules:    schedules,
		appointments: appointments,
		cache:        cache,
	}
}

func (s *DoctorService) GetProfile(ctx context.Context, id uuid.UUID) (*models.DoctorProfile, error) {
	var cached models.DoctorProfile
	if err := s.cache.Get(ctx, cache.DoctorProfileKey(id), &cached); err == nil {
		return &cached, nil
	}

	profile, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.DoctorProfileKey(id), profile, scheduleCacheTTL); err != nil {
		log.Warn().Err(err).Msg("failed to cache doctor profile")
	}

	return profile, nil
}

func (s *DoctorService) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.DoctorProfile, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *DoctorService) ListProfiles(ctx context.Context, specialization *string, offset, limit int) ([]models.DoctorProfile, error) {
	return s.doctors.List(ctx, specialization, offset, limit)
}

// UpdateProfile saves the profile and drops its cache entry.
func (s *DoctorService) UpdateProfile(ctx context.Context, profile *models.DoctorProfile) error {
	if err := s.doctors.Update(ctx, profile); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cache.DoctorProfileKey(profile.ID)); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate doctor profile cache")
	}

	return nil
}

// CreateSchedule creates an availability window after validating the window
// shape and checking it does not overlap any of the doctor's other windows.
// Windows that merely touch at an endpoint are allowed.
func (s *DoctorService) CreateSchedule(ctx context.Context, doctorProfileID uuid.UUID, input ScheduleInput) (*models.DoctorSchedule, error) {
	if err := validateWindow(input); err != nil {
		return nil, err
	}
	if _, err := s.doctors.GetByID(ctx, doctorProfileID); err != nil {
		return nil, err
	}

	overlaps, err := s.schedules.CountOverlapping(ctx, doctorProfileID, input.StartTime, input.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if overlaps > 0 {
		return nil, ErrScheduleOverlap
	}

	schedule := &models.DoctorSchedule{
		DoctorProfileID: doctorProfileID,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		MaxPatients:     input.MaxPatients,
		IsActive:        true,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}
	s.invalidateSchedules(ctx, doctorProfileID)

	log.Info().
		Str("schedule_id", schedule.ID.String()).
		Str("doctor_profile_id", doctorProfileID.String()).
		Time("start", input.StartTime).
		Time("end", input.EndTime).
		Msg("schedule created")

	return schedule, nil
}

// UpdateSchedule edits a window, re-running the overlap check against every
// other window of the same doctor.
func (s *DoctorService) UpdateSchedule(ctx context.Context, scheduleID uuid.UUID, input ScheduleInput) (*models.DoctorSchedule, error) {
	if err := validateWindow(input); err != nil {
		return nil, err
	}

	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	overlaps, err := s.schedules.CountOverlapping(ctx, schedule.DoctorProfileID, input.StartTime, input.EndTime, &scheduleID)
	if err != nil {
		return nil, err
	}
	if overlaps > 0 {
		return nil, ErrScheduleOverlap
	}

	schedule.StartTime = input.StartTime
	schedule.EndTime = input.EndTime
	schedule.MaxPatients = input.MaxPatients
	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, err
	}
	s.invalidateSchedules(ctx, schedule.DoctorProfileID)

	return schedule, nil
}

// RemoveSchedule deletes a window that was never booked. A window with
// non-cancelled appointments is deactivated instead so history stays intact.
func (s *DoctorService) RemoveSchedule(ctx context.Context, scheduleID uuid.UUID) (deleted bool, err error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return false, err
	}

	active, err := s.appointments.CountActiveForSchedule(ctx, scheduleID)
	if err != nil {
		return false, err
	}

	if active > 0 {
		if err := s.schedules.Deactivate(ctx, scheduleID); err != nil {
			return false, err
		}
	} else {
		if err := s.schedules.Delete(ctx, scheduleID); err != nil {
			return false, err
		}
		deleted = true
	}
	s.invalidateSchedules(ctx, schedule.DoctorProfileID)

	return deleted, nil
}

func (s *DoctorService) GetSchedule(ctx context.Context, scheduleID uuid.UUID) (*models.DoctorSchedule, error) {
	return s.schedules.GetByID(ctx, scheduleID)
}

// ListSchedules returns the doctor's windows, caching the active set.
func (s *DoctorService) ListSchedules(ctx context.Context, doctorProfileID uuid.UUID, activeOnly bool) ([]models.DoctorSchedule, error) {
	if activeOnly {
		var cached []models.DoctorSchedule
		if err := s.cache.Get(ctx, cache.ScheduleKey(doctorProfileID), &cached); err == nil {
			return cached, nil
		}
	}

	schedules, err := s.schedules.ListByDoctor(ctx, doctorProfileID, activeOnly)
	if err != nil {
		return nil, err
	}

	if activeOnly {
		if err := s.cache.Set(ctx, cache.ScheduleKey(doctorProfileID), schedules, scheduleCacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache schedules")
		}
	}

	return schedules, nil
}

func (s *DoctorService) ListAvailableSchedules(ctx context.Context, from, to time.Time) ([]models.DoctorSchedule, error) {
	return s.schedules.ListAvailable(ctx, from, to)
}

func (s *DoctorService) invalidateSchedules(ctx context.Context, doctorProfileID uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.ScheduleKey(doctorProfileID)); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate schedule cache")
	}
}

func validateWindow(input ScheduleInput) error {
	if !input.StartTime.Before(input.EndTime) {
		return ErrInvalidSchedule
	}
	if input.MaxPatients < 1 {
		return errors.Wrap(ErrInvalidSchedule, "max patients must be at least 1")
	}

	return nil
}
