package eventbus

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := New()

	var order []string
	bus.Subscribe("appointment.created", func(e Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("appointment.created", func(e Event) error {
		order = append(order, "second")
		return nil
	})

	event, err := bus.Publish("appointment.created", map[string]interface{}{"appointment_id": "a1"})

	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "appointment.created", event.Name)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublishStopsAtFirstHandlerError(t *testing.T) {
	bus := New()

	boom := errors.New("handler failed")
	secondRan := false
	bus.Subscribe("lab_result.created", func(e Event) error {
		return boom
	})
	bus.Subscribe("lab_result.created", func(e Event) error {
		secondRan = true
		return nil
	})

	_, err := bus.Publish("lab_result.created", nil)

	assert.ErrorIs(t, err, boom)
	assert.False(t, secondRan)
}

func TestSubscribeSameHandlerTwiceIsNoop(t *testing.T) {
	bus := New()

	calls := 0
	handler := func(e Event) error {
		calls++
		return nil
	}
	bus.Subscribe("appointment.updated", handler)
	bus.Subscribe("appointment.updated", handler)

	_, err := bus.Publish("appointment.updated", nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeRemovesHandler(t *testing.T) {
	bus := New()

	calls := 0
	cancel := bus.Subscribe("appointment.created", func(e Event) error {
		calls++
		return nil
	})
	cancel()

	_, err := bus.Publish("appointment.created", nil)

	assert.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestPublishWithNoSubscribers(t *testing.T) {
	bus := New()

	event, err := bus.Publish("appointment.created", map[string]interface{}{"appointment_id": "a1"})

	assert.NoError(t, err)
	assert.Equal(t, "a1", event.Payload["appointment_id"])
}
