package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/eventbus"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// LabResultService records and retrieves lab results.
type LabResultService struct {
	results repository.LabResultRepository
	users   repository.UserRepository
	bus     *eventbus.Bus
}

func NewLabResultService(results repository.LabResultRepository, users repository.UserRepository, bus *eventbus.Bus) *LabResultService {
	return &LabResultService{results: results, users: users, bus: bus}
}

// RecordResult stores a lab result for a patient and publishes
// lab_result.created.
func (s *LabResultService) RecordResult(ctx context.Context, patientID uuid.UUID, testName string, resultData map[string]interface{}, recordedAt time.Time) (*models.LabResult, error) {
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Role != models.RolePatient {
		return nil, errors.Wrap(repository.ErrNotFound, "user is not a patient")
	}

	data, err := json.Marshal(resultData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal result data")
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	result := &models.LabResult{
		PatientID:  patientID,
		TestName:   testName,
		ResultData: data,
		RecordedAt: recordedAt,
	}
	if err := s.results.Create(ctx, result); err != nil {
		return nil, err
	}

	log.Info().
		Str("lab_result_id", result.ID.String()).
		Str("patient_id", patientID.String()).
		Str("test_name", testName).
		Msg("lab result recorded")

	if _, err := s.bus.Publish("lab_result.created", map[string]interface{}{
		"lab_result_id": result.ID.String(),
		"patient_id":    patientID.String(),
		"test_name":     testName,
	}); err != nil {
		log.Error().Err(err).Msg("lab_result.created handler failed")
	}

	return result, nil
}

func (s *LabResultService) GetResult(ctx context.Context, id uuid.UUID) (*models.LabResult, error) {
	return s.results.GetByID(ctx, id)
}

func (s *LabResultService) ListByPatient(ctx context.Context, patientID uuid.UUID, offset, limit int) ([]models.LabResult, error) {
	return s.results.ListByPatient(ctx, patientID, offset, limit)
}
