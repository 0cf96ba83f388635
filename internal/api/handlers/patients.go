package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/service"
)

// PatientHandler handles the patient-facing endpoints.
type PatientHandler struct {
	patients *service.PatientService
	doctors  *service.DoctorService
	booking  *service.BookingService
}

func NewPatientHandler(patients *service.PatientService, doctors *service.DoctorService, booking *service.BookingService) *PatientHandler {
	return &PatientHandler{patients: patients, doctors: doctors, booking: booking}
}

func (h *PatientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/patients")
	patients.GET("/me/profile", h.GetMyProfile)
	patients.PUT("/me/profile", middleware.RequirePermission(service.ActionUpdate, service.ResourcePatients), h.UpdateMyProfile)
	patients.GET("/me/appointments", h.ListMyAppointments)
	patients.GET("/doctors", h.ListDoctors)
	patients.GET("/schedules", h.ListAvailableSchedules)
}

type PatientProfileRequest struct {
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Gender           *string    `json:"gender"`
	BloodType        *string    `json:"blood_type"`
	ContactNumber    *string    `json:"contact_number"`
	EmergencyContact *string    `json:"emergency_contact"`
}

func (h *PatientHandler) GetMyProfile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	profile, err := h.patients.GetProfileByUser(c.Request.Context(), principal.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *PatientHandler) UpdateMyProfile(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req PatientProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	profile, err := h.patients.UpdateProfile(c.Request.Context(), principal.UserID, service.PatientProfileInput{
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		BloodType:        req.BloodType,
		ContactNumber:    req.ContactNumber,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *PatientHandler) ListMyAppointments(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	offset, limit := pagination(c)

	filter := repository.AppointmentFilter{PatientID: &principal.UserID}
	if raw := c.Query("status"); raw != "" {
		status := models.AppointmentStatus(raw)
		filter.Status = &status
	}

	appointments, err := h.booking.ListAppointments(c.Request.Context(), filter, offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appointments)
}

func (h *PatientHandler) ListDoctors(c *gin.Context) {
	offset, limit := pagination(c)

	var specialization *string
	if raw := c.Query("specialization"); raw != "" {
		specialization = &raw
	}

	doctors, err := h.doctors.ListProfiles(c.Request.Context(), specialization, offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doctors)
}

// ListAvailableSchedules returns active windows in a time range, defaulting to
// the next seven days.
func (h *PatientHandler) ListAvailableSchedules(c *gin.Context) {
	from := time.Now()
	to := from.Add(7 * 24 * time.Hour)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondValidation(c, "invalid from timestamp")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondValidation(c, "invalid to timestamp")
			return
		}
		to = parsed
	}

	schedules, err := h.doctors.ListAvailableSchedules(c.Request.Context(), from, to)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}
