package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// UserService manages user accounts.
type UserService struct {
	users    repository.UserRepository
	doctors  repository.DoctorProfileRepository
	patients repository.PatientProfileRepository
}

func NewUserService(users repository.UserRepository, doctors repository.DoctorProfileRepository, patients repository.PatientProfileRepository) *UserService {
	return &UserService{users: users, doctors: doctors, patients: patients}
}

// CreateUser creates an account with the given role and its matching profile.
// Admin-only; superadmin accounts cannot be created through this path.
func (s *UserService) CreateUser(ctx context.Context, email, fullName, password string, role models.UserRole) (*models.User, error) {
	if role == models.RoleSuperadmin {
		return nil, ErrForbidden
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Email:          email,
		FullName:       fullName,
		Role:           role,
		HashedPassword: string(hashed),
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	switch role {
	case models.RoleDoctor:
		err = s.doctors.Create(ctx, &models.DoctorProfile{UserID: user.ID, Specialization: "general"})
	case models.RolePatient:
		err = s.patients.Create(ctx, &models.PatientProfile{UserID: user.ID})
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Str("role", string(role)).Msg("user created")

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context, role *models.UserRole, offset, limit int) ([]models.User, error) {
	return s.users.List(ctx, role, offset, limit)
}

// UpdateProfile updates the caller's own mutable account fields.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, fullName *string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fullName != nil {
		user.FullName = *fullName
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Deactivate(ctx, id)
}
