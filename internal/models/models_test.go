package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    AppointmentStatus
		to      AppointmentStatus
		allowed bool
	}{
		{"pending to confirmed", AppointmentPending, AppointmentConfirmed, true},
		{"pending to cancelled", AppointmentPending, AppointmentCancelled, true},
		{"pending to completed", AppointmentPending, AppointmentCompleted, false},
		{"confirmed to completed", AppointmentConfirmed, AppointmentCompleted, true},
		{"confirmed to cancelled", AppointmentConfirmed, AppointmentCancelled, true},
		{"confirmed to pending", AppointmentConfirmed, AppointmentPending, false},
		{"completed is terminal", AppointmentCompleted, AppointmentCancelled, false},
		{"cancelled is terminal", AppointmentCancelled, AppointmentConfirmed, false},
		{"same status is idempotent", AppointmentConfirmed, AppointmentConfirmed, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestIsActiveCountsAgainstCapacity(t *testing.T) {
	assert.True(t, AppointmentPending.IsActive())
	assert.True(t, AppointmentConfirmed.IsActive())
	assert.True(t, AppointmentCompleted.IsActive())
	assert.False(t, AppointmentCancelled.IsActive())
}
