package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// PatientProfileInput carries the mutable fields of a patient profile.
type PatientProfileInput struct {
	DateOfBirth      *time.Time
	Gender           *string
	BloodType        *string
	ContactNumber    *string
	EmergencyContact *string
}

// PatientService manages patient profiles.
type PatientService struct {
	patients repository.PatientProfileRepository
}

func NewPatientService(patients repository.PatientProfileRepository) *PatientService {
	return &PatientService{patients: patients}
}

func (s *PatientService) GetProfile(ctx context.Context, id uuid.UUID) (*models.PatientProfile, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *PatientService) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*models.PatientProfile, error) {
	return s.patients.GetByUserID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of input to the profile.
func (s *PatientService) UpdateProfile(ctx context.Context, userID uuid.UUID, input PatientProfileInput) (*models.PatientProfile, error) {
	profile, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.DateOfBirth != nil {
		profile.DateOfBirth = input.DateOfBirth
	}
	if input.Gender != nil {
		profile.Gender = input.Gender
	}
	if input.BloodType != nil {
		profile.BloodType = input.BloodType
	}
	if input.ContactNumber != nil {
		profile.ContactNumber = input.ContactNumber
	}
	if input.EmergencyContact != nil {
		profile.EmergencyContact = input.EmergencyContact
	}

	if err := s.patients.Update(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}
