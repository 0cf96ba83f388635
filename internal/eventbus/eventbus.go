// Package eventbus implements a synchronous in-process publish/subscribe bus.
// Handlers run inline on the publisher's goroutine in subscription order, so a
// caller knows every side effect has happened by the time Publish returns.
package eventbus

import (
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is one occurrence of a named domain event.
type Event struct {
	Name       string
	Payload    map[string]interface{}
	OccurredAt time.Time
}

// Handler consumes one event. A non-nil error stops delivery to the
// remaining handlers for that publish.
type Handler func(Event) error

// Bus routes published events to subscribed handlers by event name.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	seen     map[string]map[uintptr]struct{}
}

func New() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		seen:     make(map[string]map[uintptr]struct{}),
	}
}

// Subscribe registers handler for the named event. Subscribing the same
// function twice for the same name is a no-op. The returned function removes
// the subscription.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	ptr := reflect.ValueOf(handler).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[name][ptr]; ok {
		return func() { b.unsubscribe(name, ptr) }
	}
	if b.seen[name] == nil {
		b.seen[name] = make(map[uintptr]struct{})
	}
	b.seen[name][ptr] = struct{}{}
	b.handlers[name] = append(b.handlers[name], handler)

	return func() { b.unsubscribe(name, ptr) }
}

func (b *Bus) unsubscribe(name string, ptr uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[name][ptr]; !ok {
		return
	}
	delete(b.seen[name], ptr)

	kept := b.handlers[name][:0]
	for _, h := range b.handlers[name] {
		if reflect.ValueOf(h).Pointer() != ptr {
			kept = append(kept, h)
		}
	}
	b.handlers[name] = kept
}

// Publish delivers the event to all handlers for its name, in subscription
// order, and returns the stamped event. Delivery stops at the first handler
// error, which is returned to the caller.
func (b *Bus) Publish(name string, payload map[string]interface{}) (Event, error) {
	event := Event{
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[name]))
	copy(handlers, b.handlers[name])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			log.Error().Err(err).Str("event", name).Msg("event handler failed")
			return event, err
		}
	}

	return event, nil
}
