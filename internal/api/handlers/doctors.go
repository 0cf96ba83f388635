package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

// DoctorHandler handles the doctor-facing profile and schedule endpoints.
type DoctorHandler struct {
	doctors *service.DoctorService
	booking *service.BookingService
	tracer  tracing.Tracer
}

func NewDoctorHandler(doctors *service.DoctorService, booking *service.BookingService, tracer tracing.Tracer) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, booking: booking, tracer: tracer}
}

func (h *DoctorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/doctors/me")
	me.GET("/profile", h.GetMyProfile)
	me.PUT("/profile", middleware.RequirePermission(service.ActionUpdate, service.ResourceDoctors), h.UpdateMyProfile)
	me.POST("/schedules", middleware.RequirePermission(service.ActionCreate, service.ResourceSchedules), h.CreateSchedule)
	me.GET("/schedules", h.ListMySchedules)
	me.PATCH("/schedules/:id", middleware.RequirePermission(service.ActionUpdate, service.ResourceSchedules), h.UpdateSchedule)
	me.DELETE("/schedules/:id", middleware.RequirePermission(service.ActionDelete, service.ResourceSchedules), h.RemoveSchedule)
	me.GET("/appointments", h.ListMyAppointments)
}

type DoctorProfileRequest struct {
	Specialization    *string `json:"specialization"`
	LicenseNumber     *string `json:"license_number"`
	YearsOfExperience *int    `json:"years_of_experience"`
	ContactNumber     *string `json:"contact_number"`
	Bio               *string `json:"bio"`
}

type ScheduleRequest struct {
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	MaxPatients int       `json:"max_patients" binding:"required,min=1"`
}

type RemoveScheduleResponse struct {
	Deleted     bool   `json:"deleted"`
	Deactivated bool   `json:"deactivated"`
	ScheduleID  string `json:"schedule_id"`
}

func (h *DoctorHandler) myProfile(c *gin.Context) (*models.DoctorProfile, bool) {
	principal := middleware.GetPrincipal(c)
	profile, err := h.doctors.GetProfileByUser(c.Request.Context(), principal.UserID)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	return profile, true
}

func (h *DoctorHandler) GetMyProfile(c *gin.Context) {
	profile, ok := h.myProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *DoctorHandler) UpdateMyProfile(c *gin.Context) {
	profile, ok := h.myProfile(c)
	if !ok {
		return
	}

	var req DoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	if req.Specialization != nil {
		profile.Specialization = *req.Specialization
	}
	if req.LicenseNumber != nil {
		profile.LicenseNumber = req.LicenseNumber
	}
	if req.YearsOfExperience != nil {
		profile.YearsOfExperience = req.YearsOfExperience
	}
	if req.ContactNumber != nil {
		profile.ContactNumber = req.ContactNumber
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}

	if err := h.doctors.UpdateProfile(c.Request.Context(), profile); err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *DoctorHandler) CreateSchedule(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-schedule")
	defer h.tracer.EndTransaction(txn)

	profile, ok := h.myProfile(c)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	schedule, err := h.doctors.CreateSchedule(c.Request.Context(), profile.ID, service.ScheduleInput{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxPatients: req.MaxPatients,
	})
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

func (h *DoctorHandler) ListMySchedules(c *gin.Context) {
	profile, ok := h.myProfile(c)
	if !ok {
		return
	}

	schedules, err := h.doctors.ListSchedules(c.Request.Context(), profile.ID, c.Query("active") == "true")
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

func (h *DoctorHandler) UpdateSchedule(c *gin.Context) {
	profile, ok := h.myProfile(c)
	if !ok {
		return
	}
	scheduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if !h.ownsSchedule(c, profile, scheduleID) {
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	schedule, err := h.doctors.UpdateSchedule(c.Request.Context(), scheduleID, service.ScheduleInput{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxPatients: req.MaxPatients,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

func (h *DoctorHandler) RemoveSchedule(c *gin.Context) {
	profile, ok := h.myProfile(c)
	if !ok {
		return
	}
	scheduleID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if !h.ownsSchedule(c, profile, scheduleID) {
		return
	}

	deleted, err := h.doctors.RemoveSchedule(c.Request.Context(), scheduleID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RemoveScheduleResponse{
		Deleted:     deleted,
		Deactivated: !deleted,
		ScheduleID:  scheduleID.String(),
	})
}

func (h *DoctorHandler) ListMyAppointments(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	offset, limit := pagination(c)

	filter := repository.AppointmentFilter{DoctorID: &principal.UserID}
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

// ownsSchedule rejects edits to another doctor's schedule with a 403, not a
// 404, so the caller knows the window exists but is not theirs.
func (h *DoctorHandler) ownsSchedule(c *gin.Context, profile *models.DoctorProfile, scheduleID uuid.UUID) bool {
	schedule, err := h.doctors.GetSchedule(c.Request.Context(), scheduleID)
	if err != nil {
		RespondError(c, err)
		return false
	}
	if schedule.DoctorProfileID != profile.ID {
		RespondForbidden(c)
		return false
	}
	return true
}
