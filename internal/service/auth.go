package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"example.com/clinic/config"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// Claims is the JWT payload issued on login.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	users       repository.UserRepository
	patients    repository.PatientProfileRepository
	jwtSecret   []byte
	tokenExpiry time.Duration
}

func NewAuthService(users repository.UserRepository, patients repository.PatientProfileRepository, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users:       users,
		patients:    patients,
		jwtSecret:   []byte(cfg.JWTSecret),
		tokenExpiry: cfg.AccessTokenExpiry,
	}
}

// RegisterPatient creates a patient account with an empty profile.
func (s *AuthService) RegisterPatient(ctx context.Context, email, fullName, password string) (*models.User, error) {
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
		Role:           models.RolePatient,
		HashedPassword: string(hashed),
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.patients.Create(ctx, &models.PatientProfile{UserID: user.ID}); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("patient registered")

	return user, nil
}

// Login verifies credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to sign token")
	}

	return token, user, nil
}

// VerifyToken parses the token and returns the principal it identifies.
func (s *AuthService) VerifyToken(tokenString string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidCredentials
	}

	return Principal{
		UserID: userID,
		Role:   models.UserRole(claims.Role),
	}, nil
}
