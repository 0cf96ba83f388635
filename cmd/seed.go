package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"example.com/clinic/config"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

var specializations = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Orthopedics",
	"Neurology",
	"Endocrinology",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo data",
	Long:  `Create the superadmin account plus demo doctors, patients, schedules and appointments for local development`,
	RunE:  runSeed,
}

var (
	seedDoctors  int
	seedPatients int
)

func init() {
	seedCmd.Flags().IntVar(&seedDoctors, "doctors", 5, "number of demo doctors to create")
	seedCmd.Flags().IntVar(&seedPatients, "patients", 20, "number of demo patients to create")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	ctx := context.Background()

	gormDB, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(gormDB)
	doctors := repository.NewDoctorProfileRepository(gormDB)
	patients := repository.NewPatientProfileRepository(gormDB)
	schedules := repository.NewScheduleRepository(gormDB)
	appointments := repository.NewAppointmentRepository(gormDB)

	if err := ensureSuperadmin(ctx, cfg, users); err != nil {
		return err
	}

	hashed, err := hashPassword("password123")
	if err != nil {
		return err
	}

	log.Info().Int("count", seedDoctors).Msg("seeding doctors")

	var scheduleIDs []uuid.UUID
	doctorBySchedule := map[uuid.UUID]uuid.UUID{}
	for i := 0; i < seedDoctors; i++ {
		user := &models.User{
			Email:          fmt.Sprintf("doctor%d@clinic.local", i+1),
			FullName:       "Dr. " + gofakeit.Name(),
			Role:           models.RoleDoctor,
			HashedPassword: hashed,
			IsActive:       true,
		}
		if err := users.Create(ctx, user); err != nil {
			return errors.Wrap(err, "failed to seed doctor user")
		}

		years := gofakeit.Number(2, 30)
		profile := &models.DoctorProfile{
			UserID:            user.ID,
			Specialization:    specializations[gofakeit.Number(0, len(specializations)-1)],
			YearsOfExperience: &years,
		}
		if err := doctors.Create(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to seed doctor profile")
		}

		// One morning window per day for the next five days.
		for day := 1; day <= 5; day++ {
			start := time.Now().UTC().Truncate(time.Hour).AddDate(0, 0, day).Add(9 * time.Hour)
			schedule := &models.DoctorSchedule{
				DoctorProfileID: profile.ID,
				StartTime:       start,
				EndTime:         start.Add(3 * time.Hour),
				MaxPatients:     gofakeit.Number(3, 8),
				IsActive:        true,
			}
			if err := schedules.Create(ctx, schedule); err != nil {
				return errors.Wrap(err, "failed to seed schedule")
			}
			scheduleIDs = append(scheduleIDs, schedule.ID)
			doctorBySchedule[schedule.ID] = user.ID
		}
	}

	log.Info().Int("count", seedPatients).Msg("seeding patients")

	var patientIDs []uuid.UUID
	for i := 0; i < seedPatients; i++ {
		user := &models.User{
			Email:          fmt.Sprintf("patient%d@clinic.local", i+1),
			FullName:       gofakeit.Name(),
			Role:           models.RolePatient,
			HashedPassword: hashed,
			IsActive:       true,
		}
		if err := users.Create(ctx, user); err != nil {
			return errors.Wrap(err, "failed to seed patient user")
		}

		dob := gofakeit.DateRange(
			time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		gender := gofakeit.Gender()
		phone := gofakeit.Phone()
		profile := &models.PatientProfile{
			UserID:        user.ID,
			DateOfBirth:   &dob,
			Gender:        &gender,
			ContactNumber: &phone,
		}
		if err := patients.Create(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to seed patient profile")
		}
		patientIDs = append(patientIDs, user.ID)
	}

	// Book a handful of pending appointments through the reserving
	// transaction so capacity counts stay truthful.
	booked := 0
	for i, patientID := range patientIDs {
		if i >= len(scheduleIDs) {
			break
		}
		scheduleID := scheduleIDs[i]
		schedule, err := schedules.GetByID(ctx, scheduleID)
		if err != nil {
			return err
		}
		doctorID := doctorBySchedule[scheduleID]
		appointment := &models.Appointment{
			PatientID:     patientID,
			DoctorID:      &doctorID,
			ScheduleID:    &scheduleID,
			ScheduledTime: schedule.StartTime.Add(30 * time.Minute),
			Reason:        gofakeit.Sentence(6),
			Status:        models.AppointmentPending,
		}
		task := &models.BackgroundTaskRecord{
			TaskName: models.TaskScheduleAppointment,
			Status:   models.TaskQueued,
		}
		if err := appointments.Reserve(ctx, appointment, task); err != nil {
			return errors.Wrap(err, "failed to seed appointment")
		}
		booked++
	}

	log.Info().
		Int("doctors", seedDoctors).
		Int("patients", seedPatients).
		Int("appointments", booked).
		Msg("seed complete")
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hashed), nil
}
