package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

// AppointmentHandler handles booking and appointment lifecycle endpoints.
type AppointmentHandler struct {
	booking *service.BookingService
	tracer  tracing.Tracer
}

func NewAppointmentHandler(booking *service.BookingService, tracer tracing.Tracer) *AppointmentHandler {
	return &AppointmentHandler{booking: booking, tracer: tracer}
}

func (h *AppointmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments", middleware.RequirePermission(service.ActionCreate, service.ResourceAppointments), h.Create)
	rg.GET("/appointments/:id", h.Get)
	rg.PATCH("/appointments/:id", middleware.RequirePermission(service.ActionUpdate, service.ResourceAppointments), h.Update)
}

type CreateAppointmentRequest struct {
	ScheduleID    uuid.UUID  `json:"schedule_id" binding:"required"`
	DoctorID      *uuid.UUID `json:"doctor_id"`
	ScheduledTime time.Time  `json:"scheduled_time" binding:"required"`
	Reason        string     `json:"reason" binding:"required"`
}

type UpdateAppointmentRequest struct {
	Status        *string    `json:"status"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Notes         *string    `json:"notes"`
	Diagnosis     *string    `json:"diagnosis"`
	Prescription  *string    `json:"prescription"`
}

// Create books an appointment for the calling patient.
func (h *AppointmentHandler) Create(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-appointment")
	defer h.tracer.EndTransaction(txn)

	principal := middleware.GetPrincipal(c)

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	h.tracer.AddAttribute(txn, "schedule_id", req.ScheduleID.String())
	h.tracer.AddAttribute(txn, "patient_id", principal.UserID.String())

	appointment, err := h.booking.CreateAppointment(
		c.Request.Context(),
		principal.UserID,
		req.DoctorID,
		req.ScheduleID,
		req.ScheduledTime,
		req.Reason,
	)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appointment)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	appointment, err := h.booking.GetAppointment(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !h.mayView(c, appointment) {
		return
	}

	c.JSON(http.StatusOK, appointment)
}

// Update applies a status change and/or a detail edit.
func (h *AppointmentHandler) Update(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-update-appointment")
	defer h.tracer.EndTransaction(txn)

	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	appointment, err := h.booking.GetAppointment(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if !h.mayEdit(c, appointment, req) {
		return
	}

	if req.ScheduledTime != nil || req.Notes != nil || req.Diagnosis != nil || req.Prescription != nil {
		appointment, err = h.booking.UpdateDetails(c.Request.Context(), id, service.AppointmentUpdate{
			ScheduledTime: req.ScheduledTime,
			Notes:         req.Notes,
			Diagnosis:     req.Diagnosis,
			Prescription:  req.Prescription,
		})
		if err != nil {
			h.tracer.RecordError(txn, err)
			RespondError(c, err)
			return
		}
	}

	if req.Status != nil {
		appointment, err = h.booking.UpdateStatus(c.Request.Context(), id, models.AppointmentStatus(*req.Status))
		if err != nil {
			h.tracer.RecordError(txn, err)
			RespondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, appointment)
}

// mayView allows the patient, the appointment's doctor and staff.
func (h *AppointmentHandler) mayView(c *gin.Context, appointment *models.Appointment) bool {
	principal := middleware.GetPrincipal(c)

	switch principal.Role {
	case models.RoleSuperadmin, models.RoleAdmin:
		return true
	case models.RoleDoctor:
		if appointment.DoctorID != nil && *appointment.DoctorID == principal.UserID {
			return true
		}
	case models.RolePatient:
		if appointment.PatientID == principal.UserID {
			return true
		}
	}

	RespondForbidden(c)
	return false
}

// mayEdit layers field-level rules on top of mayView: patients may only
// cancel or reschedule their own appointments; clinical fields are for the
// doctor and staff.
func (h *AppointmentHandler) mayEdit(c *gin.Context, appointment *models.Appointment, req UpdateAppointmentRequest) bool {
	if !h.mayView(c, appointment) {
		return false
	}

	principal := middleware.GetPrincipal(c)
	if principal.Role != models.RolePatient {
		return true
	}

	if req.Diagnosis != nil || req.Prescription != nil {
		RespondForbidden(c)
		return false
	}
	if req.Status != nil && models.AppointmentStatus(*req.Status) != models.AppointmentCancelled {
		RespondForbidden(c)
		return false
	}

	return true
}
