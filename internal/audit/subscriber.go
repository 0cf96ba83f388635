// Package audit persists domain events into the audit log. Recording is
// best-effort: a failed write is logged and swallowed so it never fails the
// business operation that published the event.
package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/clinic/internal/eventbus"
	"example.com/clinic/internal/models"
	"example.com/clinic/internal/repository"
)

// auditedEvents lists the domain events written to the audit log.
var auditedEvents = []string{
	"appointment.created",
	"appointment.updated",
	"lab_result.created",
}

// Subscriber mirrors domain events into the audit_logs table.
type Subscriber struct {
	repo    repository.AuditLogRepository
	cancels []func()
}

// Register attaches the audit subscriber to the bus. The returned Subscriber's
// Close detaches it again.
func Register(bus *eventbus.Bus, db *gorm.DB) *Subscriber {
	s := &Subscriber{repo: repository.NewAuditLogRepository(db)}
	for _, name := range auditedEvents {
		s.cancels = append(s.cancels, bus.Subscribe(name, s.record))
	}

	return s
}

func (s *Subscriber) record(event eventbus.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Error().Err(err).Str("event", event.Name).Msg("failed to marshal audit payload")
		return nil
	}

	entry := &models.AuditLog{
		EventName: event.Name,
		Payload:   payload,
	}
	if err := s.repo.Create(context.Background(), entry); err != nil {
		log.Error().Err(err).Str("event", event.Name).Msg("failed to write audit log entry")
	}

	return nil
}

// Close detaches the subscriber from the bus.
func (s *Subscriber) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}
