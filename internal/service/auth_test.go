package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

func newAuthService(users *MockUserRepository) *AuthService {
	return &AuthService{
		users:       users,
		jwtSecret:   []byte("test-secret"),
		tokenExpiry: 30 * time.Minute,
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	mockUsers := new(MockUserRepository)
	service := newAuthService(mockUsers)

	hashed, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:          "jane@example.com",
		Role:           models.RolePatient,
		HashedPassword: string(hashed),
		IsActive:       true,
	}
	mockUsers.On("GetByEmail", mock.Anything, "jane@example.com").Return(user, nil)

	token, loggedIn, err := service.Login(context.Background(), "jane@example.com", "s3cret")

	require.NoError(t, err)
	require.Equal(t, user.Email, loggedIn.Email)

	principal, err := service.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, principal.UserID)
	require.Equal(t, models.RolePatient, principal.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	mockUsers := new(MockUserRepository)
	service := newAuthService(mockUsers)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	mockUsers.On("GetByEmail", mock.Anything, "jane@example.com").Return(&models.User{
		HashedPassword: string(hashed),
		IsActive:       true,
	}, nil)

	_, _, err := service.Login(context.Background(), "jane@example.com", "wrong")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	mockUsers := new(MockUserRepository)
	service := newAuthService(mockUsers)

	mockUsers.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	_, _, err := service.Login(context.Background(), "ghost@example.com", "whatever")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	mockUsers := new(MockUserRepository)
	service := newAuthService(mockUsers)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	mockUsers.On("GetByEmail", mock.Anything, "jane@example.com").Return(&models.User{
		HashedPassword: string(hashed),
		IsActive:       false,
	}, nil)

	_, _, err := service.Login(context.Background(), "jane@example.com", "s3cret")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	service := newAuthService(new(MockUserRepository))

	_, err := service.VerifyToken("not-a-token")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthorize(t *testing.T) {
	patient := Principal{Role: models.RolePatient}
	doctor := Principal{Role: models.RoleDoctor}
	admin := Principal{Role: models.RoleAdmin}
	superadmin := Principal{Role: models.RoleSuperadmin}

	require.True(t, Authorize(patient, ActionCreate, ResourceAppointments))
	require.False(t, Authorize(patient, ActionCreate, ResourceSchedules))
	require.False(t, Authorize(patient, ActionCreate, ResourceLabResults))
	require.True(t, Authorize(doctor, ActionCreate, ResourceSchedules))
	require.True(t, Authorize(doctor, ActionCreate, ResourceLabResults))
	require.False(t, Authorize(doctor, ActionCreate, ResourceUsers))
	require.True(t, Authorize(admin, ActionCreate, ResourceUsers))
	require.True(t, Authorize(superadmin, ActionDelete, ResourceUsers))
}
