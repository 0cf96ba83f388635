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

// LabResultHandler handles lab result endpoints.
type LabResultHandler struct {
	results *service.LabResultService
	tracer  tracing.Tracer
}

func NewLabResultHandler(results *service.LabResultService, tracer tracing.Tracer) *LabResultHandler {
	return &LabResultHandler{results: results, tracer: tracer}
}

func (h *LabResultHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/lab-results", middleware.RequirePermission(service.ActionCreate, service.ResourceLabResults), h.Create)
	rg.GET("/lab-results/patients/:id", h.ListForPatient)
}

type CreateLabResultRequest struct {
	PatientID  uuid.UUID              `json:"patient_id" binding:"required"`
	TestName   string                 `json:"test_name" binding:"required"`
	ResultData map[string]interface{} `json:"result_data" binding:"required"`
	RecordedAt *time.Time             `json:"recorded_at"`
}

func (h *LabResultHandler) Create(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-lab-result")
	defer h.tracer.EndTransaction(txn)

	var req CreateLabResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	recordedAt := time.Time{}
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	result, err := h.results.RecordResult(c.Request.Context(), req.PatientID, req.TestName, req.ResultData, recordedAt)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListForPatient returns a patient's results. Patients may only read their
// own.
func (h *LabResultHandler) ListForPatient(c *gin.Context) {
	patientID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	principal := middleware.GetPrincipal(c)
	if principal.Role == models.RolePatient && principal.UserID != patientID {
		RespondForbidden(c)
		return
	}

	offset, limit := pagination(c)
	results, err := h.results.ListByPatient(c.Request.Context(), patientID, offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}
