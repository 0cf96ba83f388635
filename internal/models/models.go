package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserRole defines the role of a user account
type UserRole string

const (
	RoleSuperadmin UserRole = "superadmin"
	RoleAdmin      UserRole = "admin"
	RoleDoctor     UserRole = "doctor"
	RolePatient    UserRole = "patient"
)

// AppointmentStatus defines the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// BackgroundTaskStatus defines the lifecycle state of a background task record
type BackgroundTaskStatus string

const (
	TaskQueued    BackgroundTaskStatus = "queued"
	TaskRunning   BackgroundTaskStatus = "running"
	TaskSucceeded BackgroundTaskStatus = "succeeded"
	TaskFailed    BackgroundTaskStatus = "failed"
)

// TaskScheduleAppointment is the task name recorded for booking confirmations.
const TaskScheduleAppointment = "schedule_appointment"

// User represents an account in the system
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Email          string    `gorm:"not null;uniqueIndex" json:"email"`
	FullName       string    `gorm:"not null" json:"full_name"`
	Role           UserRole  `gorm:"not null;index" json:"role"`
	HashedPassword string    `gorm:"not null" json:"-"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`

	DoctorProfile  *DoctorProfile  `gorm:"foreignKey:UserID" json:"-"`
	PatientProfile *PatientProfile `gorm:"foreignKey:UserID" json:"-"`
}

// DoctorProfile holds doctor-specific details for a user
type DoctorProfile struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Specialization    string    `gorm:"not null" json:"specialization"`
	LicenseNumber     *string   `gorm:"uniqueIndex" json:"license_number"`
	YearsOfExperience *int      `json:"years_of_experience"`
	ContactNumber     *string   `json:"contact_number"`
	Bio               *string   `json:"bio"`

	User      User             `gorm:"foreignKey:UserID" json:"-"`
	Schedules []DoctorSchedule `gorm:"foreignKey:DoctorProfileID" json:"-"`
}

// PatientProfile holds patient-specific details for a user
type PatientProfile struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Gender           *string    `json:"gender"`
	BloodType        *string    `json:"blood_type"`
	ContactNumber    *string    `json:"contact_number"`
	EmergencyContact *string    `json:"emergency_contact"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// DoctorSchedule represents one contiguous availability window for a doctor.
// Invariants: StartTime < EndTime, MaxPatients >= 1.
type DoctorSchedule struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DoctorProfileID uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_profile_id"`
	StartTime       time.Time `gorm:"not null" json:"start_time"`
	EndTime         time.Time `gorm:"not null" json:"end_time"`
	MaxPatients     int       `gorm:"not null;default:1" json:"max_patients"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`

	DoctorProfile DoctorProfile `gorm:"foreignKey:DoctorProfileID" json:"-"`
	Appointments  []Appointment `gorm:"foreignKey:ScheduleID" json:"-"`
}

// Appointment represents one booking bound to a patient, a doctor and a schedule window
type Appointment struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	PatientID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID      *uuid.UUID        `gorm:"type:uuid;index" json:"doctor_id"`
	ScheduleID    *uuid.UUID        `gorm:"type:uuid;index" json:"schedule_id"`
	ScheduledTime time.Time         `gorm:"not null;index" json:"scheduled_time"`
	Reason        string            `gorm:"not null" json:"reason"`
	Status        AppointmentStatus `gorm:"not null;default:'pending'" json:"status"`
	Notes         *string           `json:"notes"`
	Diagnosis     *string           `json:"diagnosis"`
	Prescription  *string           `json:"prescription"`

	Patient  User                   `gorm:"foreignKey:PatientID" json:"-"`
	Schedule *DoctorSchedule        `gorm:"foreignKey:ScheduleID;constraint:OnDelete:SET NULL" json:"-"`
	Tasks    []BackgroundTaskRecord `gorm:"foreignKey:AppointmentID" json:"-"`
}

// BackgroundTaskRecord is one audit row per asynchronous operation tied to an appointment
type BackgroundTaskRecord struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt         time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	TaskName          string               `gorm:"not null;index" json:"task_name"`
	Status            BackgroundTaskStatus `gorm:"not null;default:'queued'" json:"status"`
	AppointmentID     *uuid.UUID           `gorm:"type:uuid;index" json:"appointment_id"`
	ExternalReference *string              `json:"external_reference"`
	ErrorMessage      *string              `json:"error_message"`

	Appointment *Appointment `gorm:"foreignKey:AppointmentID;constraint:OnDelete:SET NULL" json:"-"`
}

// AuditLog is a durable record of a domain event
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	EventName string    `gorm:"not null;index" json:"event_name"`
	Payload   []byte    `gorm:"type:jsonb;not null" json:"payload"`
}

// LabResult represents one lab test result recorded for a patient
type LabResult struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	PatientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	TestName   string    `gorm:"not null" json:"test_name"`
	ResultData []byte    `gorm:"type:jsonb;not null" json:"result_data"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}

// legalTransitions enumerates the allowed appointment status transitions.
// Pending and confirmed appointments can be cancelled; completed and
// cancelled are terminal.
var legalTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled},
}

// CanTransition reports whether an appointment may move from one status to another.
// Setting the same status again is allowed so that at-least-once task delivery
// stays idempotent.
func CanTransition(from, to AppointmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActive reports whether a status counts against schedule capacity.
// Only cancelled appointments release their slot.
func (s AppointmentStatus) IsActive() bool {
	return s != AppointmentCancelled
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	// Apply all migrations
	err := db.AutoMigrate(
		&User{},
		&DoctorProfile{},
		&PatientProfile{},
		&DoctorSchedule{},
		&Appointment{},
		&BackgroundTaskRecord{},
		&AuditLog{},
		&LabResult{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
