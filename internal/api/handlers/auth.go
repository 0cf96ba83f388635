package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/clinic/internal/models"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	auth   *service.AuthService
	tracer tracing.Tracer
}

func NewAuthHandler(auth *service.AuthService, tracer tracing.Tracer) *AuthHandler {
	return &AuthHandler{auth: auth, tracer: tracer}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.Register)
	rg.POST("/auth/login", h.Login)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// Register creates a patient account.
func (h *AuthHandler) Register(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-auth-register")
	defer h.tracer.EndTransaction(txn)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	user, err := h.auth.RegisterPatient(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login exchanges credentials for an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-auth-login")
	defer h.tracer.EndTransaction(txn)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidation(c, err.Error())
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.tracer.RecordError(txn, err)
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}
