package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// statusFor maps service-layer sentinels onto HTTP errors. Validation
// failures return 400 with the specific reason; ownership failures are 403 and
// kept distinct from 404.
func statusFor(err error) *Error {
	switch {
	case errors.Is(err, service.ErrScheduleUnavailable),
		errors.Is(err, service.ErrDoctorUnresolved),
		errors.Is(err, service.ErrDoctorMismatch),
		errors.Is(err, service.ErrPastBooking),
		errors.Is(err, service.ErrOutsideWindow),
		errors.Is(err, service.ErrScheduleFull),
		errors.Is(err, service.ErrPatientDoubleBooked),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidSchedule):
		return &Error{Message: err.Error(), StatusCode: http.StatusBadRequest, Code: "VALIDATION_ERROR"}
	case errors.Is(err, service.ErrScheduleOverlap),
		errors.Is(err, service.ErrEmailTaken):
		return &Error{Message: err.Error(), StatusCode: http.StatusConflict, Code: "CONFLICT"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return &Error{Message: err.Error(), StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	case errors.Is(err, service.ErrForbidden):
		return &Error{Message: "Forbidden", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	default:
		return nil
	}
}

// RespondError writes the mapped error response, hiding internal details for
// unexpected failures.
func RespondError(c *gin.Context, err error) {
	if apiErr := statusFor(err); apiErr != nil {
		c.JSON(apiErr.StatusCode, ErrorResponse{Message: apiErr.Message, Code: apiErr.Code})
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal server error",
		Code:    "INTERNAL_ERROR",
	})
}

// RespondValidation writes a 400 with the given message.
func RespondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Code: "VALIDATION_ERROR"})
}

// RespondForbidden writes a 403.
func RespondForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden", Code: "FORBIDDEN"})
}
