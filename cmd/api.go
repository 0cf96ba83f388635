package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"example.com/clinic/config"
	"example.com/clinic/internal/api"
	"example.com/clinic/internal/audit"
	"example.com/clinic/internal/cache"
	"example.com/clinic/internal/db"
	"example.com/clinic/internal/eventbus"
	"example.com/clinic/internal/messaging"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
	"example.com/clinic/internal/search"
	"example.com/clinic/internal/service"
	"example.com/clinic/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for booking, schedules and patient records`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	gormDB, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	redisCache := cache.New(cfg)
	defer redisCache.Close()

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	defer tracer.Close()

	var elasticClient *search.ElasticClient
	if cfg.Elastic.URL != "" {
		elasticClient, err = search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Elasticsearch client, continuing without search")
			elasticClient = nil
		}
	}

	var queue messaging.Client
	if cfg.Worker.Enabled {
		queue, err = messaging.NewClient(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize service bus client, confirmations rely on reconciliation")
			queue = nil
		} else {
			defer queue.Close(context.Background())
		}
	}

	bus := eventbus.New()
	auditSubscriber := audit.Register(bus, gormDB)
	defer auditSubscriber.Close()

	services := buildServices(cfg, gormDB, bus, redisCache, queue, elasticClient)

	if err := ensureSuperadmin(ctx, cfg, repository.NewUserRepository(gormDB)); err != nil {
		return err
	}

	server := api.NewServer(cfg, services, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("API server stopped")
	return nil
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := models.SetupModels(gormDB); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return gormDB, nil
}

func buildServices(cfg *config.Config, gormDB *gorm.DB, bus *eventbus.Bus, redisCache *cache.Cache, queue messaging.Client, elasticClient *search.ElasticClient) api.Services {
	users := repository.NewUserRepository(gormDB)
	doctors := repository.NewDoctorProfileRepository(gormDB)
	patients := repository.NewPatientProfileRepository(gormDB)
	schedules := repository.NewScheduleRepository(gormDB)
	appointments := repository.NewAppointmentRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)
	labResults := repository.NewLabResultRepository(gormDB)

	return api.Services{
		Auth:       service.NewAuthService(users, patients, cfg.Auth),
		Users:      service.NewUserService(users, doctors, patients),
		Doctors:    service.NewDoctorService(doctors, schedules, appointments, redisCache),
		Patients:   service.NewPatientService(patients),
		Booking:    service.NewBookingService(appointments, schedules, doctors, users, tasks, bus, queue, elasticClient),
		LabResults: service.NewLabResultService(labResults, users, bus),
		Tasks:      service.NewTaskService(tasks),
	}
}

// ensureSuperadmin creates the configured superadmin account on first start.
func ensureSuperadmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg.Auth.SuperadminEmail == "" || cfg.Auth.SuperadminPassword == "" {
		return nil
	}

	if _, err := users.GetByEmail(ctx, cfg.Auth.SuperadminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hashed, err := hashPassword(cfg.Auth.SuperadminPassword)
	if err != nil {
		return err
	}

	superadmin := &models.User{
		Email:          cfg.Auth.SuperadminEmail,
		FullName:       cfg.Auth.SuperadminName,
		Role:           models.RoleSuperadmin,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := users.Create(ctx, superadmin); err != nil {
		return errors.Wrap(err, "failed to create superadmin")
	}

	log.Info().Str("email", cfg.Auth.SuperadminEmail).Msg("superadmin account created")
	return nil
}
