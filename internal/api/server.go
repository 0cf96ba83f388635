package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/config"
	"example.com/clinic/internal/api/handlers"
	"example.com/clinic/internal/api/middleware"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

// Services bundles everything the HTTP surface needs.
type Services struct {
	Auth       *service.AuthService
	Users      *service.UserService
	Doctors    *service.DoctorService
	Patients   *service.PatientService
	Booking    *service.BookingService
	LabResults *service.LabResultService
	Tasks      *service.TaskService
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	services   Services
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, services Services, tracer tracing.Tracer) *Server {
	server := &Server{
		config:   cfg,
		services: services,
		tracer:   tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	if app := s.tracer.App(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	router.GET("/health", handlers.Health)
	router.GET("/metrics", handlers.Metrics)

	v1 := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(s.services.Auth, s.tracer)
	authHandler.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(middleware.RequireAuth(s.services.Auth))

	handlers.NewUserHandler(s.services.Users, s.tracer).RegisterRoutes(protected)
	handlers.NewDoctorHandler(s.services.Doctors, s.services.Booking, s.tracer).RegisterRoutes(protected)
	handlers.NewPatientHandler(s.services.Patients, s.services.Doctors, s.services.Booking).RegisterRoutes(protected)
	handlers.NewAppointmentHandler(s.services.Booking, s.tracer).RegisterRoutes(protected)
	handlers.NewLabResultHandler(s.services.LabResults, s.tracer).RegisterRoutes(protected)
	handlers.NewTaskHandler(s.services.Tasks, s.services.Booking).RegisterRoutes(protected)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
