package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/service"
)

// TaskHandler exposes background task records for inspection.
type TaskHandler struct {
	tasks   *service.TaskService
	booking *service.BookingService
}

func NewTaskHandler(tasks *service.TaskService, booking *service.BookingService) *TaskHandler {
	return &TaskHandler{tasks: tasks, booking: booking}
}

func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks/:id", h.Get)
	rg.GET("/tasks/appointments/:id", h.ListForAppointment)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ListForAppointment returns the task history of one appointment. Patients
// may only inspect their own appointments.
func (h *TaskHandler) ListForAppointment(c *gin.Context) {
	appointmentID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	if principal.Role == models.RolePatient {
		appointment, err := h.booking.GetAppointment(c.Request.Context(), appointmentID)
		if err != nil {
			RespondError(c, err)
			return
		}
		if appointment.PatientID != principal.UserID {
			RespondForbidden(c)
			return
		}
	}

	tasks, err := h.tasks.ListForAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}
