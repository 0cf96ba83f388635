package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

// UserHandler handles account endpoints.
type UserHandler struct {
	users  *service.UserService
	tracer tracing.Tracer
}

func NewUserHandler(users *service.UserService, tracer tracing.Tracer) *UserHandler {
	return &UserHandler{users: users, tracer: tracer}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.GetMe)
	rg.PUT("/users/me", h.UpdateMe)
	rg.POST("/users", middleware.RequirePermission(service.ActionCreate, service.ResourceUsers), h.CreateUser)
	rg.GET("/users", middleware.RequirePermission(service.ActionRead, service.ResourceUsers), h.ListUsers)
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin doctor patient"`
}

type UpdateMeRequest struct {
	FullName *string `json:"full_name"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	user, err := h.users.GetUser(c.Request.Context(), principal.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), principal.UserID, req.FullName)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser provisions staff and patient accounts, admin only.
func (h *UserHandler) CreateUser(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-user")
	defer h.tracer.EndTransaction(txn)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Email, req.FullName, req.Password, models.UserRole(req.Role))
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	var role *models.UserRole
	if raw := c.Query("role"); raw != "" {
		r := models.UserRole(raw)
		role = &r
	}
	offset, limit := pagination(c)

	users, err := h.users.ListUsers(c.Request.Context(), role, offset, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
