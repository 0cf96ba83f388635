package service

import (
	"github.com/google/uuid"

	"example.com/clinic/internal/models"
)

// Principal identifies the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   models.UserRole
}

// Actions on resources.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Resources subject to authorization.
const (
	ResourceUsers        = "users"
	ResourceDoctors      = "doctors"
	ResourcePatients     = "patients"
	ResourceSchedules    = "schedules"
	ResourceAppointments = "appointments"
	ResourceLabResults   = "lab_results"
	ResourceTasks        = "tasks"
)

type capability struct {
	action   string
	resource string
}

// capabilities maps each role to what it may do. Superadmin is handled
// separately and may do everything.
var capabilities = map[models.UserRole]map[capability]bool{
	models.RoleAdmin: {
		{ActionCreate, ResourceUsers}:        true,
		{ActionRead, ResourceUsers}:          true,
		{ActionUpdate, ResourceUsers}:        true,
		{ActionDelete, ResourceUsers}:        true,
		{ActionRead, ResourceDoctors}:        true,
		{ActionRead, ResourcePatients}:       true,
		{ActionRead, ResourceSchedules}:      true,
		{ActionRead, ResourceAppointments}:   true,
		{ActionUpdate, ResourceAppointments}: true,
		{ActionCreate, ResourceLabResults}:   true,
		{ActionRead, ResourceLabResults}:     true,
		{ActionRead, ResourceTasks}:          true,
	},
	models.RoleDoctor: {
		{ActionRead, ResourceDoctors}:        true,
		{ActionUpdate, ResourceDoctors}:      true,
		{ActionCreate, ResourceSchedules}:    true,
		{ActionRead, ResourceSchedules}:      true,
		{ActionUpdate, ResourceSchedules}:    true,
		{ActionDelete, ResourceSchedules}:    true,
		{ActionRead, ResourceAppointments}:   true,
		{ActionUpdate, ResourceAppointments}: true,
		{ActionCreate, ResourceLabResults}:   true,
		{ActionRead, ResourceLabResults}:     true,
		{ActionRead, ResourceTasks}:          true,
	},
	models.RolePatient: {
		{ActionRead, ResourceDoctors}:        true,
		{ActionRead, ResourceSchedules}:      true,
		{ActionRead, ResourcePatients}:       true,
		{ActionUpdate, ResourcePatients}:     true,
		{ActionCreate, ResourceAppointments}: true,
		{ActionRead, ResourceAppointments}:   true,
		{ActionUpdate, ResourceAppointments}: true,
		{ActionRead, ResourceLabResults}:     true,
		{ActionRead, ResourceTasks}:          true,
	},
}

// Authorize reports whether the principal may perform action on resource.
// Record-level ownership checks stay with the services; this answers only the
// role capability question.
func Authorize(principal Principal, action, resource string) bool {
	if principal.Role == models.RoleSuperadmin {
		return true
	}
	return capabilities[principal.Role][capability{action, resource}]
}
